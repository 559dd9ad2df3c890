// Package network decides whether a connected chain may be used with the
// crowdfunding contract.
package network

import (
	"fmt"
	"math/big"
)

// Result is the outcome of validating a chain ID.
type Result int

const (
	Supported Result = iota
	UnsupportedKnownName
	UnsupportedUnknown
	MainnetWarning
)

func (r Result) String() string {
	switch r {
	case Supported:
		return "supported"
	case UnsupportedKnownName:
		return "unsupported"
	case UnsupportedUnknown:
		return "unknown"
	case MainnetWarning:
		return "mainnet"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// MainnetChainID is never accepted, whatever the configuration says.
const MainnetChainID uint64 = 1

// Network describes a chain the front end knows by name.
type Network struct {
	ChainID  uint64
	Name     string
	Explorer string // base URL, no trailing slash; empty when there is none
}

// AddressURL links an address on the network's block explorer.
func (n Network) AddressURL(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/address/" + addr
}

// TxURL links a transaction on the network's block explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

var defaultSupported = []Network{
	{ChainID: 5, Name: "Goerli Testnet", Explorer: "https://goerli.etherscan.io"},
	{ChainID: 11155111, Name: "Sepolia Testnet", Explorer: "https://sepolia.etherscan.io"},
	{ChainID: 31337, Name: "Localhost"},
}

// Chains we can name in an error message but do not run against.
var knownNames = []Network{
	{ChainID: MainnetChainID, Name: "Ethereum Mainnet", Explorer: "https://etherscan.io"},
	{ChainID: 10, Name: "OP Mainnet", Explorer: "https://optimistic.etherscan.io"},
	{ChainID: 56, Name: "BNB Smart Chain", Explorer: "https://bscscan.com"},
	{ChainID: 137, Name: "Polygon", Explorer: "https://polygonscan.com"},
	{ChainID: 8453, Name: "Base", Explorer: "https://basescan.org"},
	{ChainID: 17000, Name: "Holesky Testnet", Explorer: "https://holesky.etherscan.io"},
	{ChainID: 42161, Name: "Arbitrum One", Explorer: "https://arbiscan.io"},
	{ChainID: 560048, Name: "Hoodi Testnet", Explorer: "https://hoodi.etherscan.io"},
}

// Validator holds the supported chain set.
type Validator struct {
	supported map[uint64]Network
}

// NewValidator returns a validator for the default supported chains plus
// extra. Mainnet entries in extra are ignored.
func NewValidator(extra ...Network) *Validator {
	v := &Validator{supported: make(map[uint64]Network)}
	for _, n := range defaultSupported {
		v.supported[n.ChainID] = n
	}
	for _, n := range extra {
		if n.ChainID == MainnetChainID || n.ChainID == 0 {
			continue
		}
		if n.Name == "" {
			n.Name = fmt.Sprintf("Chain ID %d", n.ChainID)
		}
		v.supported[n.ChainID] = n
	}
	return v
}

// Validate classifies chainID and returns the network it refers to. The
// returned network always has a human-readable name.
func (v *Validator) Validate(chainID *big.Int) (Result, Network) {
	if chainID == nil || !chainID.IsUint64() {
		return UnsupportedUnknown, Network{Name: fmt.Sprintf("Chain ID %v", chainID)}
	}
	id := chainID.Uint64()
	if id == MainnetChainID {
		n, _ := lookup(knownNames, id)
		return MainnetWarning, n
	}
	if n, ok := v.supported[id]; ok {
		return Supported, n
	}
	if n, ok := lookup(knownNames, id); ok {
		return UnsupportedKnownName, n
	}
	return UnsupportedUnknown, Network{ChainID: id, Name: fmt.Sprintf("Chain ID %d", id)}
}

// Message is the user-facing explanation for a non-supported result.
func Message(r Result, n Network) string {
	switch r {
	case Supported:
		return "Connected to " + n.Name
	case MainnetWarning:
		return "You are on Ethereum Mainnet! Please switch to the Sepolia test network."
	default:
		return fmt.Sprintf("Unsupported network: %s. Please switch to the Sepolia test network.", n.Name)
	}
}

func lookup(list []Network, id uint64) (Network, bool) {
	for _, n := range list {
		if n.ChainID == id {
			return n, true
		}
	}
	return Network{}, false
}
