package main

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"crowdfund-tui/campaign"
	"crowdfund-tui/contract"
	"crowdfund-tui/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// connectedModel returns a model holding an active session and a cached list
func connectedModel(t *testing.T) (*model, *wallet.Session) {
	t.Helper()
	buf := &logBuffer{}
	m := &model{logBuffer: buf, logger: newLogger(buf), snapshot: snapshotOf(1, 2)}
	s := &wallet.Session{ID: uuid.New(), ChainID: big.NewInt(31337)}
	if !m.lifecycle.Complete(m.lifecycle.Begin(), s, nil) {
		t.Fatal("session not accepted")
	}
	m.restoreSelection()
	return m, s
}

func snapshotOf(ids ...uint64) campaign.Snapshot {
	snap := campaign.Snapshot{Count: uint64(len(ids)), LoadedAt: time.Now()}
	for _, id := range ids {
		snap.Campaigns = append(snap.Campaigns, campaign.Campaign{
			ID:          id,
			Goal:        big.NewInt(100),
			FundsRaised: big.NewInt(0),
			Deadline:    time.Now().Add(time.Hour),
		})
	}
	return snap
}

func TestRestoreSelection(t *testing.T) {
	t.Run("keeps the selected campaign by ID", func(t *testing.T) {
		m := &model{snapshot: snapshotOf(1, 2, 3), selected: 0, selectedID: 3}
		m.restoreSelection()
		if m.selected != 2 || m.selectedID != 3 {
			t.Errorf("selected = %d (#%d), want 2 (#3)", m.selected, m.selectedID)
		}
	})

	t.Run("clamps the index when the campaign is gone", func(t *testing.T) {
		m := &model{snapshot: snapshotOf(1, 2), selected: 5, selectedID: 9}
		m.restoreSelection()
		if m.selected != 1 || m.selectedID != 2 {
			t.Errorf("selected = %d (#%d), want 1 (#2)", m.selected, m.selectedID)
		}
	})

	t.Run("empty list resets selection", func(t *testing.T) {
		m := &model{selected: 3, selectedID: 4}
		m.restoreSelection()
		if m.selected != 0 || m.selectedID != 0 {
			t.Errorf("selected = %d (#%d), want 0 (#0)", m.selected, m.selectedID)
		}
	})
}

func TestLogBufferConcurrentWrites(t *testing.T) {
	buf := &logBuffer{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fmt.Fprintf(buf, "line %d\n", i)
		}(i)
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "\n"); got != 20 {
		t.Errorf("got %d lines, want 20", got)
	}
	buf.Reset()
	if buf.String() != "" {
		t.Error("Reset should empty the buffer")
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"60", false},
		{" 10080 ", false},
		{fmt.Sprint(contract.MaxDurationMinutes), false},
		{fmt.Sprint(contract.MaxDurationMinutes + 1), true},
		{"0", true},
		{"-5", true},
		{"1.5", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := validateDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestValidateGoal(t *testing.T) {
	if err := validateGoal("1.5"); err != nil {
		t.Errorf("1.5 ETH should be valid: %v", err)
	}
	if err := validateGoal("0"); err == nil {
		t.Error("zero goal should be rejected")
	}
	if err := validateGoal("abc"); err == nil {
		t.Error("non-numeric goal should be rejected")
	}
}

func TestBlockerMessages(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	other := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	now := time.Now()

	base := campaign.Campaign{
		ID:          1,
		Owner:       owner,
		Goal:        big.NewInt(100),
		FundsRaised: big.NewInt(100),
		Deadline:    now.Add(-time.Hour),
	}

	t.Run("withdraw by non-owner", func(t *testing.T) {
		v := campaign.Derive(base, now, other)
		if got := withdrawBlocker(v); got != "Only the campaign owner can withdraw" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("withdraw after completion", func(t *testing.T) {
		c := base
		c.Completed = true
		v := campaign.Derive(c, now, owner)
		if got := withdrawBlocker(v); got != "Funds have already been withdrawn" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("withdraw before goal", func(t *testing.T) {
		c := base
		c.FundsRaised = big.NewInt(10)
		v := campaign.Derive(c, now, owner)
		if got := withdrawBlocker(v); got != "Campaign goal has not been reached yet" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("refund when goal met", func(t *testing.T) {
		v := campaign.Derive(base, now, other)
		if got := refundBlocker(v); got != "Campaign goal was reached, no refunds needed" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("refund before deadline", func(t *testing.T) {
		c := base
		c.FundsRaised = big.NewInt(10)
		c.Deadline = now.Add(time.Hour)
		v := campaign.Derive(c, now, other)
		if got := refundBlocker(v); got != "Campaign deadline has not passed yet" {
			t.Errorf("got %q", got)
		}
	})
}

func TestSuccessMessage(t *testing.T) {
	if got := successMessage(contract.OpRefund); got != "All contributors have been automatically refunded!" {
		t.Errorf("refund message = %q", got)
	}
	if got := successMessage(contract.OpCreate); got != "Campaign created successfully!" {
		t.Errorf("create message = %q", got)
	}
}

func TestShowToastSupersedes(t *testing.T) {
	m := &model{}
	m.showToast(toastInfo, "first")
	first := m.toastSeq
	m.showToast(toastError, "second")

	// an expiry for the older toast must not clear the newer one
	m.Update(toastExpiredMsg{seq: first})
	if m.toast != "second" {
		t.Errorf("toast = %q, want %q", m.toast, "second")
	}
	m.Update(toastExpiredMsg{seq: m.toastSeq})
	if m.toast != "" {
		t.Errorf("toast = %q, want it cleared", m.toast)
	}
}

func TestConfirmedWriteRefreshesList(t *testing.T) {
	t.Run("success schedules a sync", func(t *testing.T) {
		m, s := connectedModel(t)
		m.txPending = true

		_, cmd := m.Update(txConfirmedMsg{sessionID: s.ID, op: contract.OpFund, receipt: &contract.Receipt{BlockNumber: 7}})
		if cmd == nil {
			t.Fatal("no command returned")
		}
		if !m.syncing {
			t.Error("list refresh not started after a confirmed write")
		}
		if m.txPending {
			t.Error("txPending still set")
		}
		if m.toast != "Campaign funded successfully!" {
			t.Errorf("toast = %q", m.toast)
		}
	})

	t.Run("confirmed create selects the new campaign", func(t *testing.T) {
		m, s := connectedModel(t)
		m.Update(txConfirmedMsg{sessionID: s.ID, op: contract.OpCreate, receipt: &contract.Receipt{}})
		if m.selectedID != 3 {
			t.Errorf("selectedID = %d, want 3", m.selectedID)
		}
	})

	t.Run("failure keeps the cached list", func(t *testing.T) {
		m, s := connectedModel(t)
		m.txPending = true
		before := m.snapshot

		reverted := contract.Classify(contract.OpRefund, errors.New("execution reverted: Already refunded"))
		m.Update(txConfirmedMsg{sessionID: s.ID, op: contract.OpRefund, err: reverted})

		if m.syncing {
			t.Error("a failed write must not refresh the list")
		}
		if len(m.snapshot.Campaigns) != len(before.Campaigns) || m.snapshot.Count != before.Count {
			t.Errorf("snapshot changed: %+v", m.snapshot)
		}
		if m.session() != s {
			t.Error("a revert must not drop the session")
		}
		if m.toast != "Refunds have already been processed for this campaign" {
			t.Errorf("toast = %q", m.toast)
		}
	})

	t.Run("result of a replaced session is dropped", func(t *testing.T) {
		m, _ := connectedModel(t)
		_, cmd := m.Update(txConfirmedMsg{sessionID: uuid.New(), op: contract.OpFund, receipt: &contract.Receipt{}})
		if cmd != nil || m.syncing {
			t.Errorf("stale confirmation acted on: cmd=%v syncing=%v", cmd != nil, m.syncing)
		}
	})
}

func TestDeclineIsUserCancelled(t *testing.T) {
	m, s := connectedModel(t)
	m.pending = &pendingWrite{op: contract.OpWithdraw, id: 1}

	if cmd := m.decline(); cmd == nil {
		t.Fatal("decline returned no command")
	}
	if m.toast != "Transaction rejected by user" || m.toastKind != toastError {
		t.Errorf("toast = %q (kind %d)", m.toast, m.toastKind)
	}
	if m.pending != nil || m.confirmForm != nil {
		t.Error("confirmation state not cleared")
	}
	if m.syncing || m.txPending {
		t.Error("declining must not start any work")
	}
	if m.session() != s || len(m.snapshot.Campaigns) != 2 {
		t.Error("declining must leave session and cached list untouched")
	}
	if !strings.Contains(m.logBuffer.String(), contract.KindUserCancelled.String()) {
		t.Errorf("log misses the cancel kind:\n%s", m.logBuffer.String())
	}
}
