package campaign

import (
	"context"
	"fmt"
	"math/big"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// Report is everything the contributors view needs for one campaign.
type Report struct {
	Campaign     Campaign
	Contributors []Contributor // first-contribution order
	Events       int           // Funded events matching the campaign
}

// Aggregator reconstructs per-contributor totals for a campaign.
// Contributors are discovered from the Funded event log; totals always come
// from the contract's contributions mapping, never from summing events.
type Aggregator struct {
	reader Reader
	logger *log.Logger
}

// NewAggregator returns an aggregator over r. A nil logger discards output.
func NewAggregator(r Reader, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = discardLogger()
	}
	return &Aggregator{reader: r, logger: logger}
}

// Load fetches the campaign record and its contributors.
func (a *Aggregator) Load(ctx context.Context, id uint64) (Report, error) {
	if !readerReady(a.reader) {
		return Report{}, ErrGatewayUnavailable
	}
	c, err := a.reader.GetCampaign(ctx, id)
	if err != nil {
		return Report{}, fmt.Errorf("read campaign %d: %w", id, err)
	}
	contributors, events, err := a.contributors(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return Report{Campaign: c, Contributors: contributors, Events: events}, nil
}

// Contributors lists one entry per address that funded campaign id.
func (a *Aggregator) Contributors(ctx context.Context, id uint64) ([]Contributor, error) {
	if !readerReady(a.reader) {
		return nil, ErrGatewayUnavailable
	}
	out, _, err := a.contributors(ctx, id)
	return out, err
}

func (a *Aggregator) contributors(ctx context.Context, id uint64) ([]Contributor, int, error) {
	// No server-side filter on campaign id: the event's id is not indexed.
	events, err := a.reader.FundedEvents(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read funding events: %w", err)
	}

	var (
		order   []common.Address
		byAddr  = make(map[common.Address]*Contributor)
		matched int
	)
	for _, ev := range events {
		if ev.CampaignID != id {
			continue
		}
		matched++
		entry, ok := byAddr[ev.Contributor]
		if !ok {
			entry = &Contributor{Address: ev.Contributor}
			byAddr[ev.Contributor] = entry
			order = append(order, ev.Contributor)
		}
		entry.Last = copyAmount(ev.Amount)
		entry.Events++
	}
	a.logger.Debug("funding events filtered", "campaign", id, "total", len(events), "matched", matched)

	out := make([]Contributor, 0, len(order))
	for _, addr := range order {
		total, err := a.reader.Contribution(ctx, id, addr)
		if err != nil {
			return nil, matched, fmt.Errorf("read contribution of %s to campaign %d: %w", addr.Hex(), id, err)
		}
		entry := byAddr[addr]
		entry.Total = copyAmount(total)
		out = append(out, *entry)
	}
	return out, matched, nil
}

func copyAmount(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
