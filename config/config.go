package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"crowdfund-tui/helpers"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

// Config represents the application configuration
type Config struct {
	RPCURLs  []RPCUrl       `json:"rpc_urls"`
	Contract ContractConfig `json:"contract"`
	Signer   SignerConfig   `json:"signer"`
	Networks []NetworkEntry `json:"networks,omitempty"`
	Logger   bool           `json:"logger"`

	// PollIntervalSeconds controls how often the wallet watcher checks for
	// account and chain changes.
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
	SyncConcurrency     int `json:"sync_concurrency,omitempty"`

	// pollInterval is the exact env override; it is never saved.
	pollInterval time.Duration
}

// MinPollInterval is the shortest accepted watcher interval.
const MinPollInterval = time.Second

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// ContractConfig locates the crowdfunding contract. An empty ABIPath selects
// the ABI bundled with the binary.
type ContractConfig struct {
	Address string `json:"address"`
	ABIPath string `json:"abi_path,omitempty"`
}

// Signer kinds.
const (
	SignerKeystore = "keystore"
	SignerClef     = "clef"
)

// SignerConfig selects where transactions get signed.
type SignerConfig struct {
	Kind        string `json:"kind"`
	KeystoreDir string `json:"keystore_dir,omitempty"`
	ClefURL     string `json:"clef_url,omitempty"`
	Account     string `json:"account,omitempty"`
}

// NetworkEntry adds a chain to the supported set.
type NetworkEntry struct {
	ChainID  uint64 `json:"chain_id"`
	Name     string `json:"name"`
	Explorer string `json:"explorer,omitempty"`
}

// Env holds the environment overrides. The keystore passphrase only ever
// comes from the environment and is never written to the config file.
type Env struct {
	RPCURL          string        `env:"ETH_RPC_URL"`
	ContractAddress string        `env:"CROWDFUND_CONTRACT_ADDRESS"`
	ABIPath         string        `env:"CROWDFUND_ABI_PATH"`
	KeystoreDir     string        `env:"CROWDFUND_KEYSTORE_DIR"`
	Passphrase      string        `env:"CROWDFUND_KEYSTORE_PASSPHRASE"`
	ClefURL         string        `env:"CROWDFUND_CLEF_URL"`
	Account         string        `env:"CROWDFUND_ACCOUNT"`
	PollInterval    time.Duration `env:"CROWDFUND_POLL_INTERVAL"`
	SyncConcurrency int           `env:"CROWDFUND_SYNC_CONCURRENCY"`
}

// ParseEnv loads overrides from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, e.validate()
}

// ParseEnvFrom loads overrides from the given variables instead of the
// process environment.
func ParseEnvFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, e.validate()
}

func (e *Env) validate() error {
	if e.PollInterval != 0 && e.PollInterval < MinPollInterval {
		err := fmt.Errorf("CROWDFUND_POLL_INTERVAL %v is below %v", e.PollInterval, MinPollInterval)
		e.PollInterval = 0
		return err
	}
	return nil
}

// WithEnv returns a copy of cfg with the non-empty overrides in e applied.
func (cfg Config) WithEnv(e Env) Config {
	out := cfg
	out.RPCURLs = append([]RPCUrl(nil), cfg.RPCURLs...)

	if url := strings.TrimSpace(e.RPCURL); url != "" {
		found := false
		for i := range out.RPCURLs {
			out.RPCURLs[i].Active = out.RPCURLs[i].URL == url
			found = found || out.RPCURLs[i].Active
		}
		if !found {
			out.RPCURLs = append(out.RPCURLs, RPCUrl{Name: "Environment", URL: url, Active: true})
		}
	}
	if e.ContractAddress != "" {
		out.Contract.Address = e.ContractAddress
	}
	if e.ABIPath != "" {
		out.Contract.ABIPath = e.ABIPath
	}
	if e.ClefURL != "" {
		out.Signer.Kind = SignerClef
		out.Signer.ClefURL = e.ClefURL
	}
	if e.KeystoreDir != "" {
		out.Signer.KeystoreDir = e.KeystoreDir
	}
	if e.Account != "" {
		out.Signer.Account = e.Account
	}
	if e.PollInterval > 0 {
		out.pollInterval = e.PollInterval
	}
	if e.SyncConcurrency > 0 {
		out.SyncConcurrency = e.SyncConcurrency
	}
	return out
}

// ActiveRPC returns the URL of the active endpoint, or the first one.
func (cfg Config) ActiveRPC() string {
	for _, r := range cfg.RPCURLs {
		if r.Active {
			return r.URL
		}
	}
	if len(cfg.RPCURLs) > 0 {
		return cfg.RPCURLs[0].URL
	}
	return ""
}

// PollInterval returns the watcher interval, defaulting to four seconds.
func (cfg Config) PollInterval() time.Duration {
	if cfg.pollInterval >= MinPollInterval {
		return cfg.pollInterval
	}
	if cfg.PollIntervalSeconds <= 0 {
		return 4 * time.Second
	}
	return time.Duration(cfg.PollIntervalSeconds) * time.Second
}

// ErrPlaceholderAddress reports a contract address that was never filled in.
var ErrPlaceholderAddress = errors.New("invalid contract address in config")

var placeholderMarkers = []string{"replace", "your_", "your-", "<", "0x..."}

// ValidateContract checks that the contract address is a real, non-zero
// address and not a template placeholder.
func (cfg Config) ValidateContract() (common.Address, error) {
	raw := strings.TrimSpace(cfg.Contract.Address)
	if raw == "" {
		return common.Address{}, fmt.Errorf("%w: address is empty", ErrPlaceholderAddress)
	}
	lower := strings.ToLower(raw)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return common.Address{}, fmt.Errorf("%w: %q looks like a placeholder", ErrPlaceholderAddress, raw)
		}
	}
	if !helpers.IsValidEthAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q is not a hex address", ErrPlaceholderAddress, raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrPlaceholderAddress)
	}
	return addr, nil
}

// Load reads the config from the specified path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Public Sepolia",
				URL:    "https://ethereum-sepolia-rpc.publicnode.com",
				Active: true,
			},
			{
				Name: "Local Node",
				URL:  "http://localhost:8545",
			},
		},
		Contract: ContractConfig{
			Address: "Replace with your deployed contract address",
		},
		Signer: SignerConfig{
			Kind: SignerKeystore,
		},
		Logger: false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		// Invalid config, run on defaults but leave the file for the user to fix
		return DefaultConfig(), err
	}

	cfg = DefaultConfig()
	if err := Save(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
