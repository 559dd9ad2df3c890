package rpc

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// ErrNoEndpoint is returned when no RPC URL is configured.
var ErrNoEndpoint = errors.New("no RPC endpoint configured (set ETH_RPC_URL)")

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	if url == "" {
		return ConnectResult{Error: ErrNoEndpoint}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// Close releases the underlying connection. Safe on a nil client.
func (c *Client) Close() {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Close()
}

// AccountDetails contains the balance shown for the connected account
type AccountDetails struct {
	Address    string
	EthWei     *big.Int
	LoadedAt   time.Time
	ErrMessage string
}

// LoadAccountDetails fetches the ETH balance for an address
func LoadAccountDetails(client *Client, addr common.Address) AccountDetails {
	return LoadAccountDetailsWithTimeout(client, addr, 12*time.Second)
}

// LoadAccountDetailsWithTimeout fetches account details with a custom timeout
func LoadAccountDetailsWithTimeout(client *Client, addr common.Address, timeout time.Duration) AccountDetails {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	d := AccountDetails{
		Address:  addr.Hex(),
		EthWei:   big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		d.ErrMessage = "No RPC client (set ETH_RPC_URL)."
		return d
	}

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		d.ErrMessage = "Failed to load ETH balance."
		return d
	}
	d.EthWei = wei

	return d
}
