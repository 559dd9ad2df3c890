package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ErrAllFetchesFailed is returned when campaigns exist but none of them
// could be read. It is distinct from an empty list.
var ErrAllFetchesFailed = errors.New("no campaign could be loaded")

// Skipped records a campaign that could not be read during a refresh.
type Skipped struct {
	ID  uint64
	Err error
}

// Snapshot is the result of one refresh cycle.
type Snapshot struct {
	Count     uint64     // campaignCount() at the time of the refresh
	Campaigns []Campaign // fetched records, ascending by ID
	Skipped   []Skipped
	LoadedAt  time.Time
}

// Empty reports that the contract holds no campaigns at all.
func (s Snapshot) Empty() bool {
	return s.Count == 0
}

// Partial reports that some campaigns were skipped.
func (s Snapshot) Partial() bool {
	return len(s.Skipped) > 0
}

// Synchronizer reads the full campaign list from a Reader.
type Synchronizer struct {
	reader      Reader
	logger      *log.Logger
	concurrency int
	now         func() time.Time
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger used to report skipped campaigns.
func WithLogger(l *log.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency bounds the number of in-flight campaign reads. Values
// below 2 keep the default strictly sequential walk.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		s.concurrency = n
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSynchronizer returns a synchronizer over r.
func NewSynchronizer(r Reader, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		reader:      r,
		logger:      discardLogger(),
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reads campaignCount and then every campaign from 1 to count. A failed
// read of a single campaign is logged and skipped; the refresh carries on.
func (s *Synchronizer) Sync(ctx context.Context) (Snapshot, error) {
	if !readerReady(s.reader) {
		return Snapshot{}, ErrGatewayUnavailable
	}

	count, err := s.reader.CampaignCount(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read campaign count: %w", err)
	}

	snap := Snapshot{Count: count}
	if count > 0 {
		if s.concurrency > 1 {
			err = s.fetchConcurrent(ctx, &snap)
		} else {
			err = s.fetchSequential(ctx, &snap)
		}
		if err != nil {
			return Snapshot{}, err
		}
	}
	snap.LoadedAt = s.now()

	s.logger.Debug("campaigns synced", "count", count, "loaded", len(snap.Campaigns), "skipped", len(snap.Skipped))

	if count > 0 && len(snap.Campaigns) == 0 {
		return snap, fmt.Errorf("%w: all %d reads failed", ErrAllFetchesFailed, count)
	}
	return snap, nil
}

func (s *Synchronizer) fetchSequential(ctx context.Context, snap *Snapshot) error {
	for id := uint64(1); id <= snap.Count; id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := s.reader.GetCampaign(ctx, id)
		if err != nil {
			s.skip(snap, id, err)
			continue
		}
		snap.Campaigns = append(snap.Campaigns, c)
	}
	return nil
}

func (s *Synchronizer) fetchConcurrent(ctx context.Context, snap *Snapshot) error {
	type result struct {
		c   Campaign
		err error
	}
	results := make([]result, snap.Count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range results {
		id := uint64(i) + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.reader.GetCampaign(gctx, id)
			results[i] = result{c: c, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, r := range results {
		if r.err != nil {
			s.skip(snap, uint64(i)+1, r.err)
			continue
		}
		snap.Campaigns = append(snap.Campaigns, r.c)
	}
	return nil
}

func (s *Synchronizer) skip(snap *Snapshot, id uint64, err error) {
	s.logger.Warn("skipping campaign", "id", id, "err", err)
	snap.Skipped = append(snap.Skipped, Skipped{ID: id, Err: err})
}
