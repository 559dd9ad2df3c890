// Package contract binds the crowdfunding contract: typed reads, the four
// write operations, and the classification of everything that can fail
// along the way.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"time"

	"crowdfund-tui/campaign"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed abi/crowdfunding.json
var DefaultABI []byte

// Backend is everything the gateway needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Methods and events every deployment must expose.
var required = []string{"campaignCount", "getCampaign", "contributions", "createCampaign", "fundCampaign", "withdrawFunds"}

const fundedEvent = "Funded"

// Receipt is the confirmed outcome of a write.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Gateway is a typed handle on one deployed crowdfunding contract.
type Gateway struct {
	address    common.Address
	abi        abi.ABI
	backend    Backend
	contract   *bind.BoundContract
	startBlock *big.Int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithStartBlock limits event scans to blocks at or after n.
func WithStartBlock(n uint64) Option {
	return func(g *Gateway) { g.startBlock = new(big.Int).SetUint64(n) }
}

// New parses abiJSON and binds it at address. A nil abiJSON uses the
// embedded ABI.
func New(address common.Address, abiJSON []byte, backend Backend, opts ...Option) (*Gateway, error) {
	if backend == nil {
		return nil, errors.New("contract: nil backend")
	}
	if len(abiJSON) == 0 {
		abiJSON = DefaultABI
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}
	for _, m := range required {
		if _, ok := parsed.Methods[m]; !ok {
			return nil, fmt.Errorf("ABI is missing %s", m)
		}
	}
	if _, ok := parsed.Events[fundedEvent]; !ok {
		return nil, fmt.Errorf("ABI is missing event %s", fundedEvent)
	}

	g := &Gateway{
		address:  address,
		abi:      parsed,
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Ready reports whether g is bound. Safe on a nil receiver.
func (g *Gateway) Ready() bool {
	return g != nil && g.contract != nil
}

// Address returns the bound contract address.
func (g *Gateway) Address() common.Address { return g.address }

// Supports reports whether the bound ABI has method.
func (g *Gateway) Supports(method string) bool {
	if !g.Ready() {
		return false
	}
	_, ok := g.abi.Methods[method]
	return ok
}

// VerifyDeployed fails with ErrNoCode when nothing lives at the address.
func (g *Gateway) VerifyDeployed(ctx context.Context) error {
	code, err := g.backend.CodeAt(ctx, g.address, nil)
	if err != nil {
		return fmt.Errorf("read contract code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w %s", ErrNoCode, g.address.Hex())
	}
	return nil
}

func (g *Gateway) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	if !g.Ready() {
		return nil, campaign.ErrGatewayUnavailable
	}
	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// CampaignCount returns the number of campaigns ever created.
func (g *Gateway) CampaignCount(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, "campaignCount")
	if err != nil {
		return 0, err
	}
	n := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !n.IsUint64() {
		return 0, fmt.Errorf("campaignCount out of range: %s", n)
	}
	return n.Uint64(), nil
}

// GetCampaign reads campaign id.
func (g *Gateway) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	out, err := g.call(ctx, "getCampaign", new(big.Int).SetUint64(id))
	if err != nil {
		return campaign.Campaign{}, err
	}
	if len(out) != 7 {
		return campaign.Campaign{}, fmt.Errorf("getCampaign: got %d values, want 7", len(out))
	}

	deadline := *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)
	if !deadline.IsInt64() {
		return campaign.Campaign{}, fmt.Errorf("getCampaign %d: deadline out of range: %s", id, deadline)
	}
	return campaign.Campaign{
		ID:          id,
		Owner:       *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Title:       *abi.ConvertType(out[1], new(string)).(*string),
		Description: *abi.ConvertType(out[2], new(string)).(*string),
		Goal:        *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
		Deadline:    time.Unix(deadline.Int64(), 0),
		FundsRaised: *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		Completed:   *abi.ConvertType(out[6], new(bool)).(*bool),
	}, nil
}

// Contribution returns the contract's running total for contributor.
func (g *Gateway) Contribution(ctx context.Context, id uint64, contributor common.Address) (*big.Int, error) {
	out, err := g.call(ctx, "contributions", new(big.Int).SetUint64(id), contributor)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// CanRefund asks the contract whether campaign id may be refunded.
func (g *Gateway) CanRefund(ctx context.Context, id uint64) (bool, error) {
	if !g.Supports("canRefund") {
		return false, ErrFunctionUnavailable
	}
	out, err := g.call(ctx, "canRefund", new(big.Int).SetUint64(id))
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

type fundedLog struct {
	Id          *big.Int
	Contributor common.Address
	Amount      *big.Int
}

// FundedEvents returns every Funded log of the contract in chain order.
func (g *Gateway) FundedEvents(ctx context.Context) ([]campaign.FundedEvent, error) {
	if !g.Ready() {
		return nil, campaign.ErrGatewayUnavailable
	}
	from := g.startBlock
	if from == nil {
		from = new(big.Int)
	}
	logs, err := g.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{{g.abi.Events[fundedEvent].ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", fundedEvent, err)
	}

	events := make([]campaign.FundedEvent, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		var ev fundedLog
		if err := g.contract.UnpackLog(&ev, fundedEvent, lg); err != nil {
			return nil, fmt.Errorf("decode %s log %s: %w", fundedEvent, lg.TxHash.Hex(), err)
		}
		// ids past uint64 name no campaign
		if ev.Id == nil || !ev.Id.IsUint64() {
			continue
		}
		events = append(events, campaign.FundedEvent{
			CampaignID:  ev.Id.Uint64(),
			Contributor: ev.Contributor,
			Amount:      ev.Amount,
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash,
		})
	}
	return events, nil
}

// CreateParams are the inputs of createCampaign.
type CreateParams struct {
	Title           string
	Description     string
	Goal            *big.Int // wei
	DurationMinutes int64
}

// CreateCampaign validates p and submits createCampaign.
func (g *Gateway) CreateCampaign(ctx context.Context, opts *bind.TransactOpts, p CreateParams) (*types.Transaction, error) {
	if err := ValidateCreate(p); err != nil {
		return nil, err
	}
	return g.transact(ctx, OpCreate, opts, nil, "createCampaign", p.Title, p.Description, p.Goal, big.NewInt(p.DurationMinutes))
}

// FundCampaign submits fundCampaign with amount wei attached.
func (g *Gateway) FundCampaign(ctx context.Context, opts *bind.TransactOpts, id uint64, amount *big.Int) (*types.Transaction, error) {
	if err := ValidateFund(id, amount); err != nil {
		return nil, err
	}
	return g.transact(ctx, OpFund, opts, amount, "fundCampaign", new(big.Int).SetUint64(id))
}

// WithdrawFunds submits withdrawFunds.
func (g *Gateway) WithdrawFunds(ctx context.Context, opts *bind.TransactOpts, id uint64) (*types.Transaction, error) {
	if err := ValidateCampaignID(OpWithdraw, id); err != nil {
		return nil, err
	}
	return g.transact(ctx, OpWithdraw, opts, nil, "withdrawFunds", new(big.Int).SetUint64(id))
}

// ProcessRefunds submits processRefunds. Contracts deployed before the
// method existed fail with ErrFunctionUnavailable.
func (g *Gateway) ProcessRefunds(ctx context.Context, opts *bind.TransactOpts, id uint64) (*types.Transaction, error) {
	if err := ValidateCampaignID(OpRefund, id); err != nil {
		return nil, err
	}
	return g.transact(ctx, OpRefund, opts, nil, "processRefunds", new(big.Int).SetUint64(id))
}

func (g *Gateway) transact(ctx context.Context, op Op, opts *bind.TransactOpts, value *big.Int, method string, params ...interface{}) (*types.Transaction, error) {
	if !g.Ready() {
		return nil, Classify(op, campaign.ErrGatewayUnavailable)
	}
	if !g.Supports(method) {
		return nil, Classify(op, fmt.Errorf("%s: %w", method, ErrFunctionUnavailable))
	}
	if opts == nil {
		return nil, Classify(op, errors.New("no signer"))
	}
	o := *opts
	o.Context = ctx
	if value != nil {
		o.Value = new(big.Int).Set(value)
	}
	tx, err := g.contract.Transact(&o, method, params...)
	if err != nil {
		return nil, Classify(op, err)
	}
	return tx, nil
}

// Confirm waits for tx to be mined. A failed receipt is replayed as a
// call at its block to recover the revert reason.
func (g *Gateway) Confirm(ctx context.Context, op Op, from common.Address, tx *types.Transaction) (*Receipt, error) {
	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return nil, Classify(op, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, Classify(op, g.replay(ctx, from, tx, receipt.BlockNumber))
	}
	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (g *Gateway) replay(ctx context.Context, from common.Address, tx *types.Transaction, block *big.Int) error {
	_, err := g.backend.CallContract(ctx, ethereum.CallMsg{
		From:  from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	if err != nil {
		return fmt.Errorf("transaction reverted: %w", err)
	}
	return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
}
