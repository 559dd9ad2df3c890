// Package wallet owns the connected-wallet session: which account signs,
// on which chain, against which contract, and how provider changes tear
// that session down.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"crowdfund-tui/contract"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Provider is a source of accounts and signatures plus the node they
// sign for.
type Provider interface {
	// Backend is the node connection shared by reads and writes.
	Backend() contract.Backend
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	// Transactor returns signing options for account on chainID.
	Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
	Close() error
}

// ErrNoAccounts is returned when the provider exposes no account.
var ErrNoAccounts = errors.New("no accounts available")

// ErrUnknownAccount is returned when the requested signer is not managed
// by the provider.
var ErrUnknownAccount = errors.New("account not managed by this signer")

// Backend is a node connection that can also report its chain ID.
// *ethclient.Client satisfies it.
type Backend interface {
	contract.Backend
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeystoreProvider signs with keys from a local go-ethereum keystore
// directory.
type KeystoreProvider struct {
	backend    Backend
	ks         *keystore.KeyStore
	passphrase string

	mu       sync.Mutex
	unlocked map[common.Address]bool
}

// NewKeystoreProvider opens the keystore at dir. Accounts are unlocked with
// passphrase on first use.
func NewKeystoreProvider(backend Backend, dir, passphrase string) (*KeystoreProvider, error) {
	if dir == "" {
		return nil, errors.New("keystore directory not configured")
	}
	return &KeystoreProvider{
		backend:    backend,
		ks:         keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		passphrase: passphrase,
		unlocked:   make(map[common.Address]bool),
	}, nil
}

func (p *KeystoreProvider) Backend() contract.Backend { return p.backend }

// KeyStore exposes the underlying store, e.g. for wallet event subscription.
func (p *KeystoreProvider) KeyStore() *keystore.KeyStore { return p.ks }

func (p *KeystoreProvider) Accounts(context.Context) ([]common.Address, error) {
	accs := p.ks.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out, nil
}

func (p *KeystoreProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.backend.ChainID(ctx)
}

func (p *KeystoreProvider) Transactor(_ context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	acc := accounts.Account{Address: account}
	if !p.ks.HasAddress(account) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked[account] {
		if err := p.ks.Unlock(acc, p.passphrase); err != nil {
			return nil, fmt.Errorf("unlock %s: %w", account.Hex(), err)
		}
		p.unlocked[account] = true
	}
	return bind.NewKeyStoreTransactorWithChainID(p.ks, acc, chainID)
}

// Close locks every account this provider unlocked.
func (p *KeystoreProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for addr := range p.unlocked {
		if err := p.ks.Lock(addr); err != nil {
			errs = append(errs, err)
		}
	}
	clear(p.unlocked)
	return errors.Join(errs...)
}

// ExternalProvider delegates signing to a clef instance. Clef prompts the
// user for every transaction and answers "Request denied" when declined.
type ExternalProvider struct {
	backend Backend
	signer  *external.ExternalSigner
}

// NewExternalProvider dials clef at endpoint.
func NewExternalProvider(backend Backend, endpoint string) (*ExternalProvider, error) {
	signer, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial clef %s: %w", endpoint, err)
	}
	return &ExternalProvider{backend: backend, signer: signer}, nil
}

func (p *ExternalProvider) Backend() contract.Backend { return p.backend }

func (p *ExternalProvider) Accounts(context.Context) ([]common.Address, error) {
	accs := p.signer.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out, nil
}

func (p *ExternalProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.backend.ChainID(ctx)
}

func (p *ExternalProvider) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if !p.signer.Contains(accounts.Account{Address: account}) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	id := new(big.Int).Set(chainID)
	return &bind.TransactOpts{
		From:    account,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != account {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, addr.Hex())
			}
			return p.signer.SignTx(accounts.Account{Address: addr}, tx, id)
		},
	}, nil
}

// Close is a no-op; the clef connection lives as long as the process.
func (p *ExternalProvider) Close() error { return nil }
