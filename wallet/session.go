package wallet

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"crowdfund-tui/contract"
	"crowdfund-tui/network"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Session is one fully established wallet connection. It is never
// mutated; any change produces a new Session.
type Session struct {
	ID          uuid.UUID
	Account     common.Address
	ChainID     *big.Int
	Network     network.Network
	Gateway     *contract.Gateway
	ConnectedAt time.Time

	opts *bind.TransactOpts
}

// TransactOpts returns a copy of the session's signing options.
func (s *Session) TransactOpts() *bind.TransactOpts {
	if s == nil || s.opts == nil {
		return nil
	}
	o := *s.opts
	return &o
}

// Options controls Connect.
type Options struct {
	Contract common.Address
	// ABI overrides the embedded contract ABI.
	ABI []byte
	// Account selects the signer; empty means the provider's first account.
	Account    string
	Validator  *network.Validator
	StartBlock uint64
	Logger     *log.Logger
}

// Connect runs the connect sequence against p. It returns either a
// complete Session or an error, never both.
func Connect(ctx context.Context, p Provider, o Options) (*Session, error) {
	logger := o.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	validator := o.Validator
	if validator == nil {
		validator = network.NewValidator()
	}

	accs, err := p.Accounts(ctx)
	if err != nil {
		return nil, contract.Classify(contract.OpConnect, fmt.Errorf("request accounts: %w", err))
	}
	if len(accs) == 0 {
		return nil, &contract.Error{Kind: contract.KindUnknown, Op: contract.OpConnect, Message: "No accounts found. Please unlock your wallet.", Err: ErrNoAccounts}
	}
	account, err := pickAccount(accs, o.Account)
	if err != nil {
		return nil, &contract.Error{Kind: contract.KindUnknown, Op: contract.OpConnect, Message: "Configured account is not available in the wallet", Err: err}
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, contract.Classify(contract.OpConnect, fmt.Errorf("read chain id: %w", err))
	}
	result, net := validator.Validate(chainID)
	if result != network.Supported {
		logger.Warn("network rejected", "chain", chainID, "name", net.Name, "result", result)
		return nil, &contract.Error{Kind: contract.KindNetworkMismatch, Op: contract.OpConnect, Message: network.Message(result, net)}
	}

	opts, err := p.Transactor(ctx, account, chainID)
	if err != nil {
		return nil, contract.Classify(contract.OpConnect, fmt.Errorf("signer for %s: %w", account.Hex(), err))
	}

	var gwOpts []contract.Option
	if o.StartBlock > 0 {
		gwOpts = append(gwOpts, contract.WithStartBlock(o.StartBlock))
	}
	gw, err := contract.New(o.Contract, o.ABI, p.Backend(), gwOpts...)
	if err != nil {
		return nil, &contract.Error{Kind: contract.KindContractUnavailable, Op: contract.OpConnect, Message: "Contract ABI could not be loaded", Err: err}
	}
	if err := gw.VerifyDeployed(ctx); err != nil {
		return nil, contract.Classify(contract.OpConnect, err)
	}

	s := &Session{
		ID:          uuid.New(),
		Account:     account,
		ChainID:     new(big.Int).Set(chainID),
		Network:     net,
		Gateway:     gw,
		ConnectedAt: time.Now(),
		opts:        opts,
	}
	logger.Info("wallet connected", "session", s.ID, "account", account.Hex(), "network", net.Name)
	return s, nil
}

func pickAccount(accs []common.Address, want string) (common.Address, error) {
	if strings.TrimSpace(want) == "" {
		return accs[0], nil
	}
	if !common.IsHexAddress(want) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrUnknownAccount, want)
	}
	target := common.HexToAddress(want)
	for _, a := range accs {
		if a == target {
			return a, nil
		}
	}
	return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownAccount, target.Hex())
}
