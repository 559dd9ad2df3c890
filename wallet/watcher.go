package wallet

import (
	"context"
	"io"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// DefaultPollInterval is used when none is configured.
const DefaultPollInterval = 4 * time.Second

// Watcher polls a Provider and publishes AccountsChanged and ChainChanged
// events on a feed.
type Watcher struct {
	provider Provider
	interval time.Duration
	logger   *log.Logger
	feed     event.Feed

	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int // nil until known
	haveAccs bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a stopped watcher.
func NewWatcher(p Provider, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Watcher{provider: p, interval: interval, logger: logger}
}

// Subscribe delivers events to ch until the subscription is closed.
func (w *Watcher) Subscribe(ch chan<- Event) event.Subscription {
	return w.feed.Subscribe(ch)
}

// Seed sets the chain the session was validated on as the baseline, so a
// switch before the first poll is still reported.
func (w *Watcher) Seed(chainID *big.Int) {
	if chainID == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainID = new(big.Int).Set(chainID)
}

// Start polls in the background until Stop or ctx is done. The first
// successful read of each value only records the baseline.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.Poll(ctx)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Poll(ctx)
			}
		}
	}()
}

// Stop ends polling and waits for the loop to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
}

// Poll reads the provider once and sends an event for each change since
// the previous poll. It returns the events sent.
func (w *Watcher) Poll(ctx context.Context) []Event {
	accs, accErr := w.provider.Accounts(ctx)
	if accErr != nil {
		w.logger.Debug("poll accounts failed", "err", accErr)
	}
	chainID, chainErr := w.provider.ChainID(ctx)
	if chainErr != nil {
		w.logger.Debug("poll chain id failed", "err", chainErr)
	}

	w.mu.Lock()
	var events []Event
	// A failed read leaves its baseline untouched.
	if accErr == nil {
		switch {
		case !w.haveAccs:
			w.accounts, w.haveAccs = slices.Clone(accs), true
		case !slices.Equal(accs, w.accounts):
			w.accounts = slices.Clone(accs)
			events = append(events, Event{Kind: AccountsChanged, Accounts: slices.Clone(accs)})
		}
	}
	if chainErr == nil && chainID != nil {
		switch {
		case w.chainID == nil:
			w.chainID = new(big.Int).Set(chainID)
		case chainID.Cmp(w.chainID) != 0:
			w.chainID = new(big.Int).Set(chainID)
			events = append(events, Event{Kind: ChainChanged, ChainID: new(big.Int).Set(chainID)})
		}
	}
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Info("wallet event", "kind", ev.Kind, "accounts", len(ev.Accounts), "chain", ev.ChainID)
		select {
		case <-ctx.Done():
			return events
		default:
		}
		w.feed.Send(ev)
	}
	return events
}

func (k EventKind) String() string {
	if k == ChainChanged {
		return "chainChanged"
	}
	return "accountsChanged"
}
