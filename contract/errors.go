package contract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"crowdfund-tui/campaign"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Kind classifies a failure by how the front end must react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUserCancelled: the signer declined. Nothing changes.
	KindUserCancelled
	// KindNetworkMismatch: wrong or unsupported chain. Forces disconnect.
	KindNetworkMismatch
	// KindContractUnavailable: no bytecode or no gateway. Forces disconnect.
	KindContractUnavailable
	// KindReverted: an on-chain precondition failed.
	KindReverted
	// KindTransientFetch: a read failed and may succeed on retry.
	KindTransientFetch
	// KindInvalidInput: rejected before anything was sent.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindUserCancelled:
		return "user cancelled"
	case KindNetworkMismatch:
		return "network mismatch"
	case KindContractUnavailable:
		return "contract unavailable"
	case KindReverted:
		return "reverted"
	case KindTransientFetch:
		return "fetch failed"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// ForcesDisconnect reports whether the session must be dropped.
func (k Kind) ForcesDisconnect() bool {
	return k == KindNetworkMismatch || k == KindContractUnavailable
}

// Op names the user-visible operation an error belongs to.
type Op string

const (
	OpConnect      Op = "connect"
	OpLoad         Op = "load campaigns"
	OpContributors Op = "load contributors"
	OpAudit        Op = "refund audit"
	OpCreate       Op = "create campaign"
	OpFund         Op = "fund campaign"
	OpWithdraw     Op = "withdraw funds"
	OpRefund       Op = "process refunds"
)

var genericMessages = map[Op]string{
	OpConnect:      "Failed to connect wallet. Please try again.",
	OpLoad:         "Failed to load campaigns. Please try again.",
	OpContributors: "Failed to load contributors",
	OpAudit:        "Refund audit failed",
	OpCreate:       "Failed to create campaign",
	OpFund:         "Failed to fund campaign",
	OpWithdraw:     "Failed to withdraw funds",
	OpRefund:       "Failed to process refunds",
}

// Error is a classified failure carrying the message shown to the user.
type Error struct {
	Kind    Kind
	Op      Op
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel causes.
var (
	// ErrUserRejected is what a signer returns when the user declines.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrNoCode means nothing is deployed at the configured address.
	ErrNoCode = errors.New("no contract code at address")
	// ErrFunctionUnavailable means the deployed ABI lacks the method.
	ErrFunctionUnavailable = errors.New("function not available on this contract")
)

// EIP-1193 "User Rejected Request".
const userRejectedCode = 4001

var rejectionPhrases = []string{
	"request denied",
	"user denied",
	"user rejected",
	"rejected by user",
	"user cancelled",
	"user canceled",
}

// IsUserRejection reports whether err means the signer declined.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rejectionPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

type revertRule struct {
	match   []string
	message string
}

// Known require() messages of the crowdfunding contract, lower-cased.
var revertRules = []revertRule{
	{[]string{"campaign not ended", "not ended yet", "deadline not reached", "deadline not passed"}, "Campaign deadline has not passed yet"},
	{[]string{"goal was reached", "goal reached"}, "Campaign goal was reached, no refunds needed"},
	{[]string{"already refunded"}, "Refunds have already been processed for this campaign"},
	{[]string{"goal not reached"}, "Campaign goal has not been reached yet"},
	{[]string{"campaign ended", "deadline passed", "campaign has ended"}, "Campaign has already ended"},
	{[]string{"only owner", "not the owner", "not owner"}, "Only the campaign owner can withdraw"},
	{[]string{"already completed", "already withdrawn"}, "Funds have already been withdrawn"},
	{[]string{"campaign does not exist", "invalid campaign"}, "Campaign does not exist"},
}

// RevertReason extracts the require() message from err, if any.
func RevertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if raw, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason
				}
			}
		}
	}
	msg := err.Error()
	const marker = "execution reverted: "
	if i := strings.Index(msg, marker); i >= 0 {
		return strings.TrimSpace(msg[i+len(marker):])
	}
	return ""
}

func isRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "call revert") ||
		strings.Contains(msg, "transaction reverted")
}

// Classify turns any error from op into an *Error with a user-facing
// message. Already classified errors pass through unchanged.
func Classify(op Op, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	e := &Error{Kind: KindUnknown, Op: op, Message: generic(op), Err: err}

	switch {
	case IsUserRejection(err):
		e.Kind, e.Message = KindUserCancelled, "Transaction rejected by user"
	case errors.Is(err, campaign.ErrGatewayUnavailable):
		e.Kind, e.Message = KindContractUnavailable, "Please connect your wallet first"
	case errors.Is(err, ErrNoCode):
		e.Kind, e.Message = KindContractUnavailable, "Contract not found at this address. Please check the contract address."
	case errors.Is(err, ErrFunctionUnavailable):
		e.Kind, e.Message = KindReverted, "Refund function not available. Please deploy updated contract."
	case errors.Is(err, campaign.ErrAllFetchesFailed):
		e.Kind, e.Message = KindTransientFetch, "No campaign could be loaded. Please try again."
	case isRevert(err) || RevertReason(err) != "":
		e.Kind = KindReverted
		e.Message = revertMessage(op, RevertReason(err))
	case isTransient(err):
		e.Kind = KindTransientFetch
	}
	return e
}

func revertMessage(op Op, reason string) string {
	lower := strings.ToLower(reason)
	if lower != "" {
		for _, rule := range revertRules {
			for _, m := range rule.match {
				if strings.Contains(lower, m) {
					return rule.message
				}
			}
		}
	}
	switch {
	case op == OpRefund && lower == "":
		// A bare revert from processRefunds comes from a contract that predates it.
		return "Refund function not available. Please deploy updated contract."
	case op == OpLoad:
		return "Contract call failed. Please check if the contract is deployed correctly."
	}
	return generic(op)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "eof")
}

func generic(op Op) string {
	if msg, ok := genericMessages[op]; ok {
		return msg
	}
	return "Something went wrong"
}

// KindOf returns the classification of err, KindUnknown if unclassified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
