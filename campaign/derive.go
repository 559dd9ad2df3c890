package campaign

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the display state of a campaign. It is never stored; Derive
// recomputes it from the record on every render.
type Status int

const (
	StatusActive Status = iota
	StatusGoalReached
	StatusEnded
	StatusRefundEligible
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusGoalReached:
		return "Goal Reached"
	case StatusEnded:
		return "Ended"
	case StatusRefundEligible:
		return "Refundable"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Actions lists what the UI may offer for a campaign.
type Actions struct {
	Fund     bool
	Withdraw bool
	Refund   bool // callers also check the contract has processRefunds
}

// View is the derived, render-ready state of one campaign.
type View struct {
	Campaign Campaign
	Status   Status
	Actions  Actions
	Progress float64 // percent, always within [0, 100]
	GoalMet  bool
	Expired  bool
	IsOwner  bool
	TimeLeft time.Duration // zero once the deadline passed
}

// Derive maps a campaign, the current time and the connected account (zero
// address when none) to its display status and allowed actions. The first
// matching rule wins:
//
//  1. completed                          -> Completed
//  2. deadline passed and raised < goal  -> RefundEligible
//  3. deadline passed or raised >= goal  -> GoalReached, or Ended
//  4. otherwise                          -> Active
func Derive(c Campaign, now time.Time, viewer common.Address) View {
	expired := !now.Before(c.Deadline)
	goalMet := GoalMet(c.FundsRaised, c.Goal)

	v := View{
		Campaign: c,
		Progress: Progress(c.FundsRaised, c.Goal),
		GoalMet:  goalMet,
		Expired:  expired,
		IsOwner:  viewer != (common.Address{}) && viewer == c.Owner,
	}
	if !expired {
		v.TimeLeft = c.Deadline.Sub(now)
	}

	switch {
	case c.Completed:
		v.Status = StatusCompleted
	case expired && !goalMet:
		v.Status = StatusRefundEligible
	case expired || goalMet:
		if goalMet {
			v.Status = StatusGoalReached
		} else {
			v.Status = StatusEnded
		}
	default:
		v.Status = StatusActive
	}

	v.Actions = Actions{
		Fund:     v.Status == StatusActive && !c.Completed,
		Withdraw: v.IsOwner && goalMet && !c.Completed,
		Refund:   expired && !goalMet && !c.Completed,
	}
	return v
}

// GoalMet compares raw wei amounts. A nil amount counts as zero.
func GoalMet(raised, goal *big.Int) bool {
	return orZero(raised).Cmp(orZero(goal)) >= 0
}

var basisPoints = big.NewInt(10000)

// Progress returns raised/goal as a percentage clamped to [0, 100],
// computed on wei integers to two decimal places. A goal of zero (or less)
// is met by definition and reports 100.
func Progress(raised, goal *big.Int) float64 {
	r, g := orZero(raised), orZero(goal)
	if g.Sign() <= 0 {
		return 100
	}
	if r.Sign() <= 0 {
		return 0
	}
	if r.Cmp(g) >= 0 {
		return 100
	}
	bp := new(big.Int).Mul(r, basisPoints)
	bp.Quo(bp, g)
	pct := float64(bp.Int64()) / 100
	if pct > 100 {
		return 100
	}
	return pct
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
