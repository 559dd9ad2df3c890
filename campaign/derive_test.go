package campaign

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	now     = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	owner   = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	visitor = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb2")
)

func mkCampaign(goal, raised *big.Int, deadline time.Time, completed bool) Campaign {
	return Campaign{
		ID:          1,
		Owner:       owner,
		Title:       "Solar roof",
		Goal:        goal,
		Deadline:    deadline,
		FundsRaised: raised,
		Completed:   completed,
	}
}

func TestDeriveCompletedWins(t *testing.T) {
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	for _, deadline := range []time.Time{past, now, future} {
		for _, raised := range []*big.Int{eth(0), eth(5), eth(10), eth(50)} {
			v := Derive(mkCampaign(eth(10), raised, deadline, true), now, owner)
			if v.Status != StatusCompleted {
				t.Errorf("completed campaign (deadline %v, raised %v) derived %v", deadline, raised, v.Status)
			}
			if v.Actions != (Actions{}) {
				t.Errorf("completed campaign offers actions %+v", v.Actions)
			}
		}
	}
}

func TestDerive(t *testing.T) {
	past, future := now.Add(-time.Minute), now.Add(48*time.Hour)

	tests := []struct {
		name    string
		c       Campaign
		viewer  common.Address
		status  Status
		actions Actions
	}{
		{
			name:    "active, visitor can fund",
			c:       mkCampaign(eth(10), eth(3), future, false),
			viewer:  visitor,
			status:  StatusActive,
			actions: Actions{Fund: true},
		},
		{
			name:    "active without wallet",
			c:       mkCampaign(eth(10), eth(3), future, false),
			status:  StatusActive,
			actions: Actions{Fund: true},
		},
		{
			name:    "expired short of goal is refund eligible",
			c:       mkCampaign(eth(10), eth(3), past, false),
			viewer:  visitor,
			status:  StatusRefundEligible,
			actions: Actions{Refund: true},
		},
		{
			name:    "deadline equal to now counts as passed",
			c:       mkCampaign(eth(10), eth(3), now, false),
			viewer:  visitor,
			status:  StatusRefundEligible,
			actions: Actions{Refund: true},
		},
		{
			name:    "goal reached early, owner may withdraw",
			c:       mkCampaign(eth(10), eth(10), future, false),
			viewer:  owner,
			status:  StatusGoalReached,
			actions: Actions{Withdraw: true},
		},
		{
			name:    "goal reached early, visitor gets nothing",
			c:       mkCampaign(eth(10), eth(12), future, false),
			viewer:  visitor,
			status:  StatusGoalReached,
			actions: Actions{},
		},
		{
			name:    "goal reached and expired",
			c:       mkCampaign(eth(10), eth(11), past, false),
			viewer:  owner,
			status:  StatusGoalReached,
			actions: Actions{Withdraw: true},
		},
		{
			name:    "zero goal is met",
			c:       mkCampaign(new(big.Int), new(big.Int), future, false),
			viewer:  owner,
			status:  StatusGoalReached,
			actions: Actions{Withdraw: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Derive(tt.c, now, tt.viewer)
			if v.Status != tt.status {
				t.Errorf("status = %v, want %v", v.Status, tt.status)
			}
			if v.Actions != tt.actions {
				t.Errorf("actions = %+v, want %+v", v.Actions, tt.actions)
			}
		})
	}
}

func TestDeriveOwnerRequiresConnectedAccount(t *testing.T) {
	c := mkCampaign(eth(1), eth(1), now.Add(time.Hour), false)
	c.Owner = common.Address{}
	v := Derive(c, now, common.Address{})
	if v.IsOwner || v.Actions.Withdraw {
		t.Error("zero viewer treated as owner of a zero-owner campaign")
	}
}

func TestDeriveTimeLeft(t *testing.T) {
	v := Derive(mkCampaign(eth(10), eth(1), now.Add(90*time.Minute), false), now, visitor)
	if v.TimeLeft != 90*time.Minute {
		t.Errorf("TimeLeft = %v", v.TimeLeft)
	}
	v = Derive(mkCampaign(eth(10), eth(1), now.Add(-time.Hour), false), now, visitor)
	if v.TimeLeft != 0 || !v.Expired {
		t.Errorf("expired campaign TimeLeft = %v, Expired = %v", v.TimeLeft, v.Expired)
	}
}

func TestProgress(t *testing.T) {
	huge, _ := new(big.Int).SetString("1000000000000000000000000000000", 10) // 1e30 wei
	hugeThird := new(big.Int).Quo(huge, big.NewInt(3))

	tests := []struct {
		name   string
		raised *big.Int
		goal   *big.Int
		want   float64
	}{
		{"nothing raised", eth(0), eth(10), 0},
		{"nil raised", nil, eth(10), 0},
		{"half", eth(5), eth(10), 50},
		{"third", eth(1), eth(3), 33.33},
		{"exactly met", eth(10), eth(10), 100},
		{"overfunded clamps", eth(25), eth(10), 100},
		{"zero goal", eth(0), new(big.Int), 100},
		{"nil goal", eth(1), nil, 100},
		{"one wei of a huge goal", big.NewInt(1), huge, 0},
		{"huge values stay exact", hugeThird, huge, 33.33},
		{"negative raised clamps to zero", big.NewInt(-5), eth(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress(tt.raised, tt.goal)
			if got != tt.want {
				t.Errorf("Progress(%v, %v) = %v, want %v", tt.raised, tt.goal, got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("Progress out of range: %v", got)
			}
		})
	}
}

func TestGoalMetUsesWei(t *testing.T) {
	goal := eth(1)
	justShort := new(big.Int).Sub(goal, big.NewInt(1))
	if GoalMet(justShort, goal) {
		t.Error("one wei short counted as goal met")
	}
	if !GoalMet(goal, goal) {
		t.Error("exact goal not counted as met")
	}
}
