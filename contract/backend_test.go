package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"crowdfund-tui/campaign"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	localChainID = big.NewInt(31337)
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// fakeBackend answers contract calls from in-memory state, packing results
// with the real ABI so the gateway's decoding runs unchanged.
type fakeBackend struct {
	t   *testing.T
	abi abi.ABI

	mu            sync.Mutex
	code          []byte
	campaigns     map[uint64]campaign.Campaign
	contributions map[uint64]map[common.Address]*big.Int
	refundable    map[uint64]bool
	rawDeadlines  map[uint64]*big.Int
	logs          []types.Log
	estimateErr   error
	sendErr       error
	callErr       error
	receiptStatus uint64
	sent          []*types.Transaction
	filterQueries []ethereum.FilterQuery
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	parsed, err := abi.JSON(bytes.NewReader(DefaultABI))
	if err != nil {
		t.Fatalf("parse embedded ABI: %v", err)
	}
	return &fakeBackend{
		t:             t,
		abi:           parsed,
		code:          []byte{0x60, 0x80},
		campaigns:     map[uint64]campaign.Campaign{},
		contributions: map[uint64]map[common.Address]*big.Int{},
		refundable:    map[uint64]bool{},
		rawDeadlines:  map[uint64]*big.Int{},
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (b *fakeBackend) addCampaign(c campaign.Campaign) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.campaigns[c.ID] = c
}

func (b *fakeBackend) addFunded(id uint64, from common.Address, amount *big.Int, block uint64) {
	b.addFundedID(new(big.Int).SetUint64(id), from, amount, block)
}

func (b *fakeBackend) addFundedID(id *big.Int, from common.Address, amount *big.Int, block uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := b.abi.Events["Funded"]
	data, err := ev.Inputs.NonIndexed().Pack(id, from, amount)
	if err != nil {
		b.t.Fatalf("pack Funded: %v", err)
	}
	b.logs = append(b.logs, types.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{ev.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
	})
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code, nil
}

func (b *fakeBackend) PendingCodeAt(ctx context.Context, a common.Address) ([]byte, error) {
	return b.CodeAt(ctx, a, nil)
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callErr != nil {
		return nil, b.callErr
	}
	method, err := b.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "campaignCount":
		return method.Outputs.Pack(big.NewInt(int64(len(b.campaigns))))
	case "getCampaign":
		id := args[0].(*big.Int).Uint64()
		c, ok := b.campaigns[id]
		if !ok {
			return nil, errors.New("execution reverted: Campaign does not exist")
		}
		deadline := big.NewInt(c.Deadline.Unix())
		if raw, ok := b.rawDeadlines[id]; ok {
			deadline = raw
		}
		return method.Outputs.Pack(c.Owner, c.Title, c.Description, c.Goal, deadline, c.FundsRaised, c.Completed)
	case "contributions":
		id := args[0].(*big.Int).Uint64()
		amount := b.contributions[id][args[1].(common.Address)]
		if amount == nil {
			amount = new(big.Int)
		}
		return method.Outputs.Pack(amount)
	case "canRefund":
		return method.Outputs.Pack(b.refundable[args[0].(*big.Int).Uint64()])
	}
	return nil, fmt.Errorf("unexpected call to %s", method.Name)
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(params.GWei)}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(params.GWei), nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100_000, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filterQueries = append(b.filterQueries, q)
	return append([]types.Log(nil), b.logs...), nil
}

func (b *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			return &types.Receipt{
				Status:      b.receiptStatus,
				TxHash:      hash,
				BlockNumber: big.NewInt(101),
				GasUsed:     21_000,
			}, nil
		}
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) lastSent() *types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return nil
	}
	return b.sent[len(b.sent)-1]
}

func newGateway(t *testing.T, b *fakeBackend) *Gateway {
	t.Helper()
	g, err := New(contractAddr, nil, b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func newSigner(t *testing.T) *bind.TransactOpts {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, localChainID)
	if err != nil {
		t.Fatal(err)
	}
	return opts
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
