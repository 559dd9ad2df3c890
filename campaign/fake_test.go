package campaign

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var errUnreadable = errors.New("execution reverted")

// fakeReader serves campaigns from memory. Campaign IDs listed in failIDs
// fail to read.
type fakeReader struct {
	mu            sync.Mutex
	campaigns     []Campaign
	failIDs       map[uint64]bool
	countErr      error
	events        []FundedEvent
	contributions map[uint64]map[common.Address]*big.Int
	calls         []uint64
	refundable    map[uint64]bool
	supports      map[string]bool
}

func (f *fakeReader) CampaignCount(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint64(len(f.campaigns)), nil
}

func (f *fakeReader) GetCampaign(ctx context.Context, id uint64) (Campaign, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.failIDs[id] {
		return Campaign{}, fmt.Errorf("campaign %d: %w", id, errUnreadable)
	}
	if id == 0 || id > uint64(len(f.campaigns)) {
		return Campaign{}, fmt.Errorf("campaign %d does not exist", id)
	}
	return f.campaigns[id-1], nil
}

func (f *fakeReader) Contribution(ctx context.Context, id uint64, who common.Address) (*big.Int, error) {
	if amt, ok := f.contributions[id][who]; ok {
		return amt, nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) FundedEvents(ctx context.Context) ([]FundedEvent, error) {
	return f.events, nil
}

func (f *fakeReader) Supports(method string) bool {
	return f.supports[method]
}

func (f *fakeReader) CanRefund(ctx context.Context, id uint64) (bool, error) {
	return f.refundable[id], nil
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newFakeReader(n int) *fakeReader {
	f := &fakeReader{failIDs: map[uint64]bool{}}
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		f.campaigns = append(f.campaigns, Campaign{
			ID:          uint64(i),
			Owner:       common.BigToAddress(big.NewInt(int64(1000 + i))),
			Title:       fmt.Sprintf("Campaign %d", i),
			Description: "test",
			Goal:        eth(10),
			Deadline:    deadline,
			FundsRaised: eth(int64(i)),
		})
	}
	return f
}
