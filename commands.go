package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crowdfund-tui/campaign"
	"crowdfund-tui/config"
	"crowdfund-tui/contract"
	"crowdfund-tui/network"
	"crowdfund-tui/rpc"
	"crowdfund-tui/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

const (
	connectTimeout = 30 * time.Second
	readTimeout    = 45 * time.Second
	toastDuration  = 3 * time.Second
)

// connectRPC establishes an RPC connection to the Ethereum node
func connectRPC(url string) tea.Cmd {
	return func() tea.Msg {
		result := rpc.Connect(url)
		return rpcConnectedMsg{client: result.Client, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig(path string) (config.Config, config.Env, error) {
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		err = fmt.Errorf("load %s: %w", path, err)
	}
	// a rejected variable is reset; the remaining overrides still apply
	env, envErr := config.ParseEnv()
	return cfg.WithEnv(env), env, errors.Join(err, envErr)
}

// reloadConfig re-reads config from disk for a full environment reload
func reloadConfig(path string) tea.Cmd {
	return func() tea.Msg {
		cfg, _, err := loadConfig(path)
		return configReloadedMsg{cfg: cfg, err: err}
	}
}

// validatorFor builds the network validator including configured chains.
func validatorFor(cfg config.Config) *network.Validator {
	extra := make([]network.Network, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		extra = append(extra, network.Network{ChainID: n.ChainID, Name: n.Name, Explorer: n.Explorer})
	}
	return network.NewValidator(extra...)
}

// newProvider opens the signer selected in cfg on top of the RPC client.
func newProvider(client *rpc.Client, cfg config.Config, env config.Env) (wallet.Provider, error) {
	switch cfg.Signer.Kind {
	case config.SignerClef:
		return wallet.NewExternalProvider(client, cfg.Signer.ClefURL)
	default:
		dir := cfg.Signer.KeystoreDir
		if dir == "" {
			home, _ := os.UserHomeDir()
			dir = filepath.Join(home, ".ethereum", "keystore")
		}
		return wallet.NewKeystoreProvider(client, dir, env.Passphrase)
	}
}

// connectWallet runs the full connect sequence for generation gen. On
// failure the provider is closed and only the error is returned.
func connectWallet(gen uint64, client *rpc.Client, cfg config.Config, env config.Env, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		fail := func(err error) tea.Msg {
			return walletConnectedMsg{gen: gen, err: err}
		}

		if client == nil || client.Client == nil {
			return fail(&contract.Error{Kind: contract.KindContractUnavailable, Op: contract.OpConnect, Message: "No RPC connection. Check RPC settings.", Err: rpc.ErrNoEndpoint})
		}
		addr, err := cfg.ValidateContract()
		if err != nil {
			return fail(&contract.Error{Kind: contract.KindContractUnavailable, Op: contract.OpConnect, Message: "Invalid contract address in config. Please check the contract address.", Err: err})
		}
		var abiJSON []byte
		if cfg.Contract.ABIPath != "" {
			abiJSON, err = os.ReadFile(cfg.Contract.ABIPath)
			if err != nil {
				return fail(&contract.Error{Kind: contract.KindContractUnavailable, Op: contract.OpConnect, Message: "Contract ABI could not be loaded", Err: err})
			}
		}

		p, err := newProvider(client, cfg, env)
		if err != nil {
			return fail(contract.Classify(contract.OpConnect, fmt.Errorf("open %s signer: %w", cfg.Signer.Kind, err)))
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := wallet.Connect(ctx, p, wallet.Options{
			Contract:  addr,
			ABI:       abiJSON,
			Account:   cfg.Signer.Account,
			Validator: validatorFor(cfg),
			Logger:    logger,
		})
		if err != nil {
			if cerr := p.Close(); cerr != nil {
				logger.Debug("close provider", "err", cerr)
			}
			return fail(err)
		}
		return walletConnectedMsg{gen: gen, session: s, provider: p}
	}
}

// waitForWalletEvent blocks until the watcher publishes an event or the
// subscription ends. It is re-armed after every event.
func waitForWalletEvent(gen uint64, ch <-chan wallet.Event, sub event.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return walletEventMsg{gen: gen, event: ev}
		case err := <-sub.Err():
			return walletSubClosedMsg{gen: gen, err: err}
		}
	}
}

// loadBalance fetches the ETH balance of the session account
func loadBalance(client *rpc.Client, s *wallet.Session) tea.Cmd {
	return func() tea.Msg {
		return balanceLoadedMsg{sessionID: s.ID, details: rpc.LoadAccountDetails(client, s.Account)}
	}
}

// syncCampaigns reloads the whole campaign list through the session gateway
func syncCampaigns(s *wallet.Session, concurrency int, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		syncer := campaign.NewSynchronizer(s.Gateway, campaign.WithLogger(logger), campaign.WithConcurrency(concurrency))
		snap, err := syncer.Sync(ctx)
		if err != nil {
			err = contract.Classify(contract.OpLoad, err)
		}
		return campaignsLoadedMsg{sessionID: s.ID, snapshot: snap, err: err}
	}
}

// loadContributors rebuilds the contributor table of campaign id
func loadContributors(s *wallet.Session, id uint64, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		report, err := campaign.NewAggregator(s.Gateway, logger).Load(ctx, id)
		if err != nil {
			err = contract.Classify(contract.OpContributors, err)
		}
		return contributorsLoadedMsg{sessionID: s.ID, id: id, report: report, err: err}
	}
}

// runAudit asks canRefund for every campaign
func runAudit(s *wallet.Session, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		report, err := campaign.AuditRefunds(ctx, s.Gateway, s.Gateway, time.Now(), s.Account, logger)
		if err != nil {
			err = contract.Classify(contract.OpAudit, err)
		}
		return auditLoadedMsg{sessionID: s.ID, report: report, err: err}
	}
}

// submitWrite signs and sends w. Confirmation is a separate step so the
// UI can report the submission first.
func submitWrite(s *wallet.Session, w pendingWrite) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		opts := s.TransactOpts()

		var (
			tx  *types.Transaction
			err error
		)
		switch w.op {
		case contract.OpCreate:
			tx, err = s.Gateway.CreateCampaign(ctx, opts, w.create)
		case contract.OpFund:
			tx, err = s.Gateway.FundCampaign(ctx, opts, w.id, w.amount)
		case contract.OpWithdraw:
			tx, err = s.Gateway.WithdrawFunds(ctx, opts, w.id)
		case contract.OpRefund:
			tx, err = s.Gateway.ProcessRefunds(ctx, opts, w.id)
		default:
			err = fmt.Errorf("unknown write %q", w.op)
		}
		return txSubmittedMsg{sessionID: s.ID, op: w.op, tx: tx, err: err}
	}
}

// confirmWrite waits, without a timeout, for tx to be mined
func confirmWrite(s *wallet.Session, op contract.Op, tx *types.Transaction) tea.Cmd {
	return func() tea.Msg {
		r, err := s.Gateway.Confirm(context.Background(), op, s.Account, tx)
		return txConfirmedMsg{sessionID: s.ID, op: op, receipt: r, err: err}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		err := clipboard.WriteAll(text)
		if err == nil {
			return clipboardCopiedMsg{what: what}
		}
		return nil
	}
}

// clearToast waits toastDuration then clears toast seq
func clearToast(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// clockTick refreshes countdowns every 30 seconds
func clockTick() tea.Cmd {
	return tea.Tick(30*time.Second, func(time.Time) tea.Msg {
		return clockTickMsg{}
	})
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with the given type
func (m *model) addLog(logType, message string) {
	if m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logEnabled || !m.logReady || m.logBuffer == nil {
		return
	}
	m.logViewport.SetContent(m.logBuffer.String())
	// Scroll to bottom to show latest entries
	m.logViewport.GotoBottom()
}

// showToast replaces the toast and schedules its removal
func (m *model) showToast(kind toastKind, text string) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastKind = kind
	return clearToast(m.toastSeq)
}

// fail reports a classified error as a toast and a log line. Kinds that
// invalidate the session drop it.
func (m *model) fail(err error) tea.Cmd {
	kind := contract.KindOf(err)
	msg := contract.Message(err)
	m.logger.Error(msg, "kind", kind, "err", err)
	m.updateLogViewport()

	if kind.ForcesDisconnect() {
		m.lifecycle.Disconnect()
		m.teardownWallet()
		m.clearSessionData()
	}
	return m.showToast(toastError, msg)
}

// beginConnect starts a fresh wallet connect, replacing any session
func (m *model) beginConnect() tea.Cmd {
	if !m.rpcConnected || m.ethClient == nil {
		return m.showToast(toastError, "No RPC connection. Check RPC settings.")
	}
	m.teardownWallet()
	m.clearSessionData()
	gen := m.lifecycle.Begin()
	m.addLog("info", "Connecting wallet...")
	return connectWallet(gen, m.ethClient, m.cfg, m.env, m.logger)
}

// startWatcher polls the provider for account and chain changes
func (m *model) startWatcher() tea.Cmd {
	m.watchGen++
	m.watcher = wallet.NewWatcher(m.provider, m.cfg.PollInterval(), m.logger)
	if s := m.session(); s != nil {
		m.watcher.Seed(s.ChainID)
	}
	m.walletCh = make(chan wallet.Event, 8)
	m.walletSub = m.watcher.Subscribe(m.walletCh)
	m.watcher.Start(context.Background())
	return waitForWalletEvent(m.watchGen, m.walletCh, m.walletSub)
}

// teardownWallet stops the watcher and releases the provider. Pending
// watcher messages become stale.
func (m *model) teardownWallet() {
	m.watchGen++
	if m.walletSub != nil {
		m.walletSub.Unsubscribe()
		m.walletSub = nil
	}
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	if m.provider != nil {
		if err := m.provider.Close(); err != nil {
			m.addLog("debug", fmt.Sprintf("close provider: %v", err))
		}
		m.provider = nil
	}
	m.walletCh = nil
}

// clearSessionData drops everything read through the previous session
func (m *model) clearSessionData() {
	m.snapshot = campaign.Snapshot{}
	m.syncing = false
	m.loadErr = ""
	m.balance = rpc.AccountDetails{}
	m.contribReport = campaign.Report{}
	m.contribErr = ""
	m.contribLoading = false
	m.auditReport = campaign.AuditReport{}
	m.auditErr = ""
	m.auditRunning = false
	m.txPending = false
	m.pending = nil
	m.confirmForm = nil
	m.fundQR = ""
}

// reloadEnvironment drops the session and the RPC connection, then
// re-reads config and dials again
func (m *model) reloadEnvironment() tea.Cmd {
	m.lifecycle.Disconnect()
	m.teardownWallet()
	m.clearSessionData()
	m.ethClient.Close()
	m.ethClient = nil
	m.rpcConnected = false
	m.rpcConnecting = true
	m.autoConnect = true
	return reloadConfig(m.configPath)
}

// refresh reloads the campaign list for the active session
func (m *model) refresh() tea.Cmd {
	s := m.session()
	if s == nil {
		return nil
	}
	m.syncing = true
	m.loadErr = ""
	return syncCampaigns(s, m.cfg.SyncConcurrency, m.logger)
}

// restoreSelection keeps the highlighted campaign across refreshes
func (m *model) restoreSelection() {
	if len(m.snapshot.Campaigns) == 0 {
		m.selected, m.selectedID = 0, 0
		return
	}
	idx := -1
	for i, c := range m.snapshot.Campaigns {
		if c.ID == m.selectedID {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = min(max(m.selected, 0), len(m.snapshot.Campaigns)-1)
	}
	m.selected = idx
	m.selectedID = m.snapshot.Campaigns[m.selected].ID
}

// saveConfig persists settings edited in the UI without writing
// environment overrides back to the file
func (m *model) saveConfig() {
	onDisk, err := config.Load(m.configPath)
	if err != nil {
		onDisk = config.DefaultConfig()
	}
	onDisk.RPCURLs = m.cfg.RPCURLs
	onDisk.Logger = m.logEnabled
	if err := config.Save(m.configPath, onDisk); err != nil {
		m.addLog("error", fmt.Sprintf("Failed to save config: %v", err))
	}
}
