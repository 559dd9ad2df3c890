package main

import (
	"crowdfund-tui/campaign"
	"crowdfund-tui/config"
	"crowdfund-tui/contract"
	"crowdfund-tui/rpc"
	"crowdfund-tui/wallet"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture. Results of wallet
// bound work carry the session ID they were started for; the update loop
// drops them once that session is gone.

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// toastExpiredMsg clears the toast with the given sequence number
type toastExpiredMsg struct {
	seq int
}

// clockTickMsg re-renders countdowns
type clockTickMsg struct{}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	client *rpc.Client
	err    error
}

// configReloadedMsg carries a fresh config after a chain change
type configReloadedMsg struct {
	cfg config.Config
	err error
}

// walletConnectedMsg is the outcome of the connect started at generation gen
type walletConnectedMsg struct {
	gen      uint64
	session  *wallet.Session
	provider wallet.Provider
	err      error
}

// walletEventMsg is a provider event from the watcher subscribed at gen
type walletEventMsg struct {
	gen   uint64
	event wallet.Event
}

// walletSubClosedMsg reports that the watcher subscription ended
type walletSubClosedMsg struct {
	gen uint64
	err error
}

// balanceLoadedMsg contains the connected account's balance
type balanceLoadedMsg struct {
	sessionID uuid.UUID
	details   rpc.AccountDetails
}

// campaignsLoadedMsg is the result of a list refresh
type campaignsLoadedMsg struct {
	sessionID uuid.UUID
	snapshot  campaign.Snapshot
	err       error
}

// contributorsLoadedMsg is the contributor report for one campaign
type contributorsLoadedMsg struct {
	sessionID uuid.UUID
	id        uint64
	report    campaign.Report
	err       error
}

// auditLoadedMsg is the result of a refund audit
type auditLoadedMsg struct {
	sessionID uuid.UUID
	report    campaign.AuditReport
	err       error
}

// txSubmittedMsg reports that a write was signed and sent, or failed
// before reaching the chain
type txSubmittedMsg struct {
	sessionID uuid.UUID
	op        contract.Op
	tx        *types.Transaction
	err       error
}

// txConfirmedMsg reports the mined outcome of a submitted write
type txConfirmedMsg struct {
	sessionID uuid.UUID
	op        contract.Op
	receipt   *contract.Receipt
	err       error
}
