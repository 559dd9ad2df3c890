// Package campaign turns raw crowdfunding contract data into what the
// front end shows: derived status and allowed actions, the synchronized
// campaign list, and per-campaign contributor totals.
package campaign

import (
	"context"
	"errors"
	"io"
	"math/big"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// Campaign is a read-only copy of one on-chain campaign record. IDs are
// assigned by the contract, starting at 1.
type Campaign struct {
	ID          uint64
	Owner       common.Address
	Title       string
	Description string
	Goal        *big.Int // wei
	Deadline    time.Time
	FundsRaised *big.Int // wei
	Completed   bool
}

// FundedEvent is one Funded(id, contributor, amount) log entry.
type FundedEvent struct {
	CampaignID  uint64
	Contributor common.Address
	Amount      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}

// Contributor is the reconciled view of one address's contributions to a
// campaign. Total comes from the contract, Last from the newest event.
type Contributor struct {
	Address common.Address
	Total   *big.Int
	Last    *big.Int
	Events  int
}

// Reader is the read side of the contract gateway.
type Reader interface {
	CampaignCount(ctx context.Context) (uint64, error)
	GetCampaign(ctx context.Context, id uint64) (Campaign, error)
	Contribution(ctx context.Context, id uint64, contributor common.Address) (*big.Int, error)
	FundedEvents(ctx context.Context) ([]FundedEvent, error)
}

// ErrGatewayUnavailable is returned when there is no contract to read from,
// typically because no wallet session is connected.
var ErrGatewayUnavailable = errors.New("contract not initialized")

// readerReady reports whether r can serve reads. Readers that may be typed
// nil pointers expose Ready.
func readerReady(r Reader) bool {
	if r == nil {
		return false
	}
	if rr, ok := r.(interface{ Ready() bool }); ok {
		return rr.Ready()
	}
	return true
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
