package contract

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"crowdfund-tui/campaign"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func sampleCampaign(id uint64) campaign.Campaign {
	return campaign.Campaign{
		ID:          id,
		Owner:       alice,
		Title:       "Community garden",
		Description: "Raised beds for the whole block",
		Goal:        eth(10),
		Deadline:    time.Unix(1_900_000_000, 0),
		FundsRaised: eth(4),
	}
}

func TestNewRejectsIncompleteABI(t *testing.T) {
	b := newFakeBackend(t)
	tests := []struct {
		name string
		abi  string
	}{
		{"not json", "{"},
		{"no methods", "[]"},
		{"missing event", `[{"type":"function","name":"campaignCount","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(contractAddr, []byte(tt.abi), b); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if _, err := New(contractAddr, nil, nil); err == nil {
		t.Error("nil backend accepted")
	}
}

func TestReadyOnNilGateway(t *testing.T) {
	var g *Gateway
	if g.Ready() || g.Supports("campaignCount") {
		t.Error("nil gateway reports ready")
	}
	if _, err := g.CampaignCount(testContext(t)); !errors.Is(err, campaign.ErrGatewayUnavailable) {
		t.Errorf("CampaignCount on nil gateway: %v", err)
	}
}

func TestReads(t *testing.T) {
	b := newFakeBackend(t)
	want := sampleCampaign(1)
	b.addCampaign(want)
	b.contributions[1] = map[common.Address]*big.Int{alice: eth(2)}
	g := newGateway(t, b)
	ctx := testContext(t)

	n, err := g.CampaignCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CampaignCount = %d, %v", n, err)
	}

	got, err := g.GetCampaign(ctx, 1)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got.Owner != want.Owner || got.Title != want.Title || got.Description != want.Description {
		t.Errorf("campaign = %+v", got)
	}
	if got.Goal.Cmp(want.Goal) != 0 || got.FundsRaised.Cmp(want.FundsRaised) != 0 {
		t.Errorf("amounts = %v / %v", got.FundsRaised, got.Goal)
	}
	if !got.Deadline.Equal(want.Deadline) || got.Completed {
		t.Errorf("deadline = %v completed = %v", got.Deadline, got.Completed)
	}

	amount, err := g.Contribution(ctx, 1, alice)
	if err != nil || amount.Cmp(eth(2)) != 0 {
		t.Errorf("Contribution = %v, %v", amount, err)
	}
	none, err := g.Contribution(ctx, 1, common.HexToAddress("0x01"))
	if err != nil || none.Sign() != 0 {
		t.Errorf("Contribution of stranger = %v, %v", none, err)
	}

	if _, err := g.GetCampaign(ctx, 7); err == nil || RevertReason(err) != "Campaign does not exist" {
		t.Errorf("missing campaign err = %v", err)
	}
}

func TestGatewayServesSynchronizer(t *testing.T) {
	b := newFakeBackend(t)
	for id := uint64(1); id <= 3; id++ {
		b.addCampaign(sampleCampaign(id))
	}
	snap, err := campaign.NewSynchronizer(newGateway(t, b), campaign.WithConcurrency(2)).Sync(testContext(t))
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(snap.Campaigns) != 3 || snap.Campaigns[2].ID != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestFundedEvents(t *testing.T) {
	b := newFakeBackend(t)
	b.addFunded(1, alice, eth(1), 10)
	b.addFunded(2, alice, eth(3), 11)
	b.logs = append(b.logs, b.logs[0])
	b.logs[2].Removed = true

	g, err := New(contractAddr, nil, b, WithStartBlock(5))
	if err != nil {
		t.Fatal(err)
	}
	events, err := g.FundedEvents(testContext(t))
	if err != nil {
		t.Fatalf("FundedEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (removed log dropped)", len(events))
	}
	if events[1].CampaignID != 2 || events[1].Contributor != alice || events[1].Amount.Cmp(eth(3)) != 0 || events[1].BlockNumber != 11 {
		t.Errorf("event = %+v", events[1])
	}

	q := b.filterQueries[0]
	if q.FromBlock.Uint64() != 5 || len(q.Addresses) != 1 || q.Addresses[0] != contractAddr {
		t.Errorf("filter query = %+v", q)
	}
}

func TestSupports(t *testing.T) {
	g := newGateway(t, newFakeBackend(t))
	for _, m := range []string{"campaignCount", "processRefunds", "canRefund"} {
		if !g.Supports(m) {
			t.Errorf("Supports(%q) = false", m)
		}
	}
	if g.Supports("selfDestruct") {
		t.Error("Supports reports a method that does not exist")
	}
}

const legacyABI = `[
 {"type":"function","name":"campaignCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getCampaign","stateMutability":"view","inputs":[{"name":"_id","type":"uint256"}],"outputs":[{"name":"owner","type":"address"},{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"goal","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"fundsRaised","type":"uint256"},{"name":"completed","type":"bool"}]},
 {"type":"function","name":"contributions","stateMutability":"view","inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[{"name":"_title","type":"string"},{"name":"_description","type":"string"},{"name":"_goal","type":"uint256"},{"name":"_durationInMinutes","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"fundCampaign","stateMutability":"payable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"withdrawFunds","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
 {"type":"event","name":"Funded","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":false},{"name":"contributor","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
]`

func TestLegacyContractHasNoRefunds(t *testing.T) {
	b := newFakeBackend(t)
	g, err := New(contractAddr, []byte(legacyABI), b)
	if err != nil {
		t.Fatalf("New with legacy ABI: %v", err)
	}
	if _, err := g.CanRefund(testContext(t), 1); !errors.Is(err, ErrFunctionUnavailable) {
		t.Errorf("CanRefund err = %v", err)
	}
	_, err = g.ProcessRefunds(testContext(t), newSigner(t), 1)
	if Message(err) != "Refund function not available. Please deploy updated contract." {
		t.Errorf("ProcessRefunds message = %q", Message(err))
	}
	if len(b.sent) != 0 {
		t.Error("a transaction was sent for a missing method")
	}
}

func TestVerifyDeployed(t *testing.T) {
	b := newFakeBackend(t)
	g := newGateway(t, b)
	if err := g.VerifyDeployed(testContext(t)); err != nil {
		t.Fatalf("VerifyDeployed: %v", err)
	}
	b.code = nil
	err := g.VerifyDeployed(testContext(t))
	if !errors.Is(err, ErrNoCode) {
		t.Fatalf("err = %v, want ErrNoCode", err)
	}
	if KindOf(Classify(OpConnect, err)) != KindContractUnavailable {
		t.Error("missing code not classified as contract unavailable")
	}
}

func TestFundCampaignSubmitsAndConfirms(t *testing.T) {
	b := newFakeBackend(t)
	g := newGateway(t, b)
	opts := newSigner(t)
	ctx := testContext(t)

	tx, err := g.FundCampaign(ctx, opts, 3, eth(2))
	if err != nil {
		t.Fatalf("FundCampaign: %v", err)
	}
	if tx.Value().Cmp(eth(2)) != 0 {
		t.Errorf("value = %v, want 2 ETH", tx.Value())
	}
	if *tx.To() != contractAddr {
		t.Errorf("to = %s", tx.To().Hex())
	}
	if opts.Value != nil {
		t.Error("caller's TransactOpts mutated")
	}

	method, err := b.abi.MethodById(tx.Data()[:4])
	if err != nil || method.Name != "fundCampaign" {
		t.Fatalf("called %v, %v", method, err)
	}
	args, _ := method.Inputs.Unpack(tx.Data()[4:])
	if args[0].(*big.Int).Uint64() != 3 {
		t.Errorf("campaign id = %v", args[0])
	}

	receipt, err := g.Confirm(ctx, OpFund, opts.From, tx)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if receipt.TxHash != tx.Hash() || receipt.BlockNumber != 101 || receipt.GasUsed != 21_000 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestCreateCampaignEncodesArguments(t *testing.T) {
	b := newFakeBackend(t)
	g := newGateway(t, b)

	tx, err := g.CreateCampaign(testContext(t), newSigner(t), CreateParams{
		Title:           "Library books",
		Description:     "New shelves",
		Goal:            eth(5),
		DurationMinutes: 1440,
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	method, _ := b.abi.MethodById(tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != "Library books" || args[2].(*big.Int).Cmp(eth(5)) != 0 || args[3].(*big.Int).Int64() != 1440 {
		t.Errorf("args = %v", args)
	}
	if tx.Value().Sign() != 0 {
		t.Error("createCampaign carried value")
	}
}

func TestWritesRejectInvalidInputWithoutSending(t *testing.T) {
	b := newFakeBackend(t)
	g := newGateway(t, b)
	ctx := testContext(t)
	opts := newSigner(t)

	_, err := g.FundCampaign(ctx, opts, 1, big.NewInt(0))
	if KindOf(err) != KindInvalidInput || Message(err) != "Please enter a valid amount" {
		t.Errorf("zero fund err = %v", err)
	}
	_, err = g.WithdrawFunds(ctx, opts, 0)
	if KindOf(err) != KindInvalidInput {
		t.Errorf("withdraw id 0 err = %v", err)
	}
	_, err = g.CreateCampaign(ctx, opts, CreateParams{Title: "t", Description: "d", Goal: eth(1)})
	if Message(err) != "Duration must be greater than 0 minutes" {
		t.Errorf("zero duration err = %v", err)
	}
	if len(b.sent) != 0 {
		t.Errorf("%d transactions sent for invalid input", len(b.sent))
	}
}

func TestWriteRevertsAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		op      func(*testing.T, *Gateway) error
		message string
	}{
		{
			name:    "refund before deadline",
			reason:  "execution reverted: Campaign not ended yet",
			op:      func(t *testing.T, g *Gateway) error { _, err := g.ProcessRefunds(testContext(t), newSigner(t), 1); return err },
			message: "Campaign deadline has not passed yet",
		},
		{
			name:    "refund after success",
			reason:  "execution reverted: Goal was reached",
			op:      func(t *testing.T, g *Gateway) error { _, err := g.ProcessRefunds(testContext(t), newSigner(t), 1); return err },
			message: "Campaign goal was reached, no refunds needed",
		},
		{
			name:    "refund twice",
			reason:  "execution reverted: Already refunded",
			op:      func(t *testing.T, g *Gateway) error { _, err := g.ProcessRefunds(testContext(t), newSigner(t), 1); return err },
			message: "Refunds have already been processed for this campaign",
		},
		{
			name:    "bare revert on refund",
			reason:  "execution reverted",
			op:      func(t *testing.T, g *Gateway) error { _, err := g.ProcessRefunds(testContext(t), newSigner(t), 1); return err },
			message: "Refund function not available. Please deploy updated contract.",
		},
		{
			name:    "unknown withdraw revert",
			reason:  "execution reverted: something odd",
			op:      func(t *testing.T, g *Gateway) error { _, err := g.WithdrawFunds(testContext(t), newSigner(t), 1); return err },
			message: "Failed to withdraw funds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(t)
			b.estimateErr = errors.New(tt.reason)
			err := tt.op(t, newGateway(t, b))
			if KindOf(err) != KindReverted {
				t.Errorf("kind = %v, want reverted (err %v)", KindOf(err), err)
			}
			if Message(err) != tt.message {
				t.Errorf("message = %q, want %q", Message(err), tt.message)
			}
		})
	}
}

func TestConfirmFailedReceipt(t *testing.T) {
	b := newFakeBackend(t)
	g := newGateway(t, b)
	opts := newSigner(t)
	ctx := testContext(t)

	tx, err := g.WithdrawFunds(ctx, opts, 1)
	if err != nil {
		t.Fatal(err)
	}
	b.receiptStatus = 0
	b.callErr = errors.New("execution reverted: Goal not reached")

	_, err = g.Confirm(ctx, OpWithdraw, opts.From, tx)
	if KindOf(err) != KindReverted || Message(err) != "Campaign goal has not been reached yet" {
		t.Errorf("err = %v", err)
	}
}

func TestSignerRejection(t *testing.T) {
	create := CreateParams{Title: "Roof", Description: "New roof", Goal: eth(1), DurationMinutes: 60}
	tests := []struct {
		op    Op
		write func(g *Gateway, opts *bind.TransactOpts) (*types.Transaction, error)
	}{
		{OpCreate, func(g *Gateway, opts *bind.TransactOpts) (*types.Transaction, error) {
			return g.CreateCampaign(testContext(t), opts, create)
		}},
		{OpFund, func(g *Gateway, opts *bind.TransactOpts) (*types.Transaction, error) {
			return g.FundCampaign(testContext(t), opts, 1, eth(1))
		}},
		{OpWithdraw, func(g *Gateway, opts *bind.TransactOpts) (*types.Transaction, error) {
			return g.WithdrawFunds(testContext(t), opts, 1)
		}},
		{OpRefund, func(g *Gateway, opts *bind.TransactOpts) (*types.Transaction, error) {
			return g.ProcessRefunds(testContext(t), opts, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			b := newFakeBackend(t)
			g := newGateway(t, b)
			opts := newSigner(t)
			opts.Signer = func(common.Address, *types.Transaction) (*types.Transaction, error) {
				return nil, errors.New("Request denied")
			}

			tx, err := tt.write(g, opts)
			if tx != nil {
				t.Errorf("got transaction %s after rejection", tx.Hash().Hex())
			}
			if KindOf(err) != KindUserCancelled || Message(err) != "Transaction rejected by user" {
				t.Errorf("err = %v", err)
			}
			if !strings.Contains(err.Error(), string(tt.op)) {
				t.Errorf("op missing from error text: %v", err)
			}
			if b.lastSent() != nil {
				t.Error("a rejected write reached the backend")
			}
		})
	}
}

func TestOutOfRangeValues(t *testing.T) {
	t.Run("deadline past int64", func(t *testing.T) {
		b := newFakeBackend(t)
		b.addCampaign(sampleCampaign(1))
		b.rawDeadlines[1] = new(big.Int).Lsh(big.NewInt(1), 70)
		g := newGateway(t, b)

		if _, err := g.GetCampaign(testContext(t), 1); err == nil || !strings.Contains(err.Error(), "deadline out of range") {
			t.Errorf("err = %v, want deadline out of range", err)
		}
	})

	t.Run("funded id past uint64", func(t *testing.T) {
		b := newFakeBackend(t)
		b.addFunded(1, alice, eth(1), 10)
		// low 64 bits equal 1, so truncation would credit campaign 1
		huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
		b.addFundedID(huge, alice, eth(5), 11)
		g := newGateway(t, b)

		events, err := g.FundedEvents(testContext(t))
		if err != nil {
			t.Fatalf("FundedEvents: %v", err)
		}
		if len(events) != 1 || events[0].Amount.Cmp(eth(1)) != 0 {
			t.Errorf("events = %+v, want only the in-range one", events)
		}
	})
}
