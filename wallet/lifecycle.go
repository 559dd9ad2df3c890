package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// State of the wallet connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventKind is the kind of provider change.
type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

// Event is a change observed on the provider.
type Event struct {
	Kind     EventKind
	Accounts []common.Address
	ChainID  *big.Int
}

// Action is what the front end must do in response to an Event.
type Action int

const (
	ActionNone Action = iota
	// ActionDisconnect drops the session.
	ActionDisconnect
	// ActionReconnect starts a fresh connect with the new accounts.
	ActionReconnect
	// ActionReload re-reads config, re-dials RPC, then reconnects.
	ActionReload
)

func (a Action) String() string {
	switch a {
	case ActionDisconnect:
		return "disconnect"
	case ActionReconnect:
		return "reconnect"
	case ActionReload:
		return "reload"
	default:
		return "none"
	}
}

// Lifecycle tracks the single active session. Each Begin starts a new
// generation; a connect result from an older generation is discarded.
// Lifecycle is not safe for concurrent use; the TUI update loop owns it.
type Lifecycle struct {
	state   State
	gen     uint64
	session *Session
}

func (l *Lifecycle) State() State       { return l.state }
func (l *Lifecycle) Session() *Session  { return l.session }
func (l *Lifecycle) Generation() uint64 { return l.gen }

// Begin enters Connecting and drops any current session.
func (l *Lifecycle) Begin() uint64 {
	l.gen++
	l.state = Connecting
	l.session = nil
	return l.gen
}

// Complete records the outcome of the connect started by Begin(gen). It
// reports false, changing nothing, when gen is stale.
func (l *Lifecycle) Complete(gen uint64, s *Session, err error) bool {
	if gen != l.gen || l.state != Connecting {
		return false
	}
	if err != nil || s == nil {
		l.state = Disconnected
		l.session = nil
		return true
	}
	l.state = Connected
	l.session = s
	return true
}

// Disconnect drops the session and invalidates any connect in flight.
func (l *Lifecycle) Disconnect() {
	l.gen++
	l.state = Disconnected
	l.session = nil
}

// Current reports whether id names the active session.
func (l *Lifecycle) Current(id uuid.UUID) bool {
	return l.session != nil && l.session.ID == id
}

// HandleEvent maps a provider event to the action to take. Disconnects
// are applied immediately; reconnect and reload are left to the caller,
// which must call Begin.
func (l *Lifecycle) HandleEvent(ev Event) Action {
	switch ev.Kind {
	case ChainChanged:
		l.Disconnect()
		return ActionReload
	case AccountsChanged:
		if len(ev.Accounts) == 0 {
			l.Disconnect()
			return ActionDisconnect
		}
		return ActionReconnect
	}
	return ActionNone
}
