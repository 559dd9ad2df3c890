package main

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"crowdfund-tui/campaign"
	"crowdfund-tui/config"
	"crowdfund-tui/contract"
	"crowdfund-tui/helpers"
	"crowdfund-tui/rpc"
	"crowdfund-tui/views/explorer"
	"crowdfund-tui/views/home"
	"crowdfund-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEMP FORM STORAGE --------------------
// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var (
	tempRPCFormName    string
	tempRPCFormURL     string
	tempCreateTitle    string
	tempCreateDesc     string
	tempCreateGoal     string
	tempCreateDuration string
	tempFundAmount     string
	tempConfirm        bool
)

func (m *model) createAddRPCForm() {
	tempRPCFormName = ""
	tempRPCFormURL = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Description("A friendly name for this RPC endpoint").
				Value(&tempRPCFormName).
				Placeholder("My Sepolia Node"),

			huh.NewInput().
				Title("RPC URL").
				Description("The complete RPC URL (https://...)").
				Value(&tempRPCFormURL).
				Placeholder("https://sepolia.infura.io/v3/..."),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createEditRPCForm(idx int) {
	if idx < 0 || idx >= len(m.cfg.RPCURLs) {
		return
	}

	entry := m.cfg.RPCURLs[idx]
	tempRPCFormName = entry.Name
	tempRPCFormURL = entry.URL

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Value(&tempRPCFormName).
				Placeholder("My Node"),

			huh.NewInput().
				Title("RPC URL").
				Value(&tempRPCFormURL).
				Placeholder("https://..."),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateGoal(s string) error {
	wei, err := helpers.ParseEther(s)
	if err != nil {
		return errors.New("enter an amount in ETH, e.g. 1.5")
	}
	if wei.Sign() <= 0 {
		return errors.New("Goal must be greater than 0")
	}
	return nil
}

func validateDuration(s string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return errors.New("enter a whole number of minutes")
	}
	if n <= 0 {
		return errors.New("Duration must be greater than 0 minutes")
	}
	if n > contract.MaxDurationMinutes {
		return fmt.Errorf("Duration cannot exceed %d minutes (1 year)", contract.MaxDurationMinutes)
	}
	return nil
}

func (m *model) createCampaignForm() {
	tempCreateTitle = ""
	tempCreateDesc = ""
	tempCreateGoal = ""
	tempCreateDuration = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&tempCreateTitle).
				Placeholder("Community garden").
				Validate(required("title")),

			huh.NewText().
				Title("Description").
				Value(&tempCreateDesc).
				Lines(4).
				Validate(required("description")),

			huh.NewInput().
				Title("Goal (ETH)").
				Value(&tempCreateGoal).
				Placeholder("1.5").
				Validate(validateGoal),

			huh.NewInput().
				Title("Duration (minutes)").
				Description(fmt.Sprintf("Up to %d minutes (1 year)", contract.MaxDurationMinutes)).
				Value(&tempCreateDuration).
				Placeholder("10080").
				Validate(validateDuration),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createFundForm(v campaign.View) {
	tempFundAmount = ""

	remaining := "goal reached"
	if !v.GoalMet {
		left := new(big.Int).Sub(v.Campaign.Goal, v.Campaign.FundsRaised)
		remaining = helpers.FormatETH(left) + " to goal"
	}
	desc := fmt.Sprintf("#%d %s · %s", v.Campaign.ID, helpers.Truncate(v.Campaign.Title, 32), remaining)
	if m.balance.EthWei != nil {
		desc += fmt.Sprintf("\nAvailable: %s", helpers.FormatETH(m.balance.EthWei))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount (ETH)").
				Description(desc).
				Value(&tempFundAmount).
				Placeholder("0.1").
				Validate(func(s string) error {
					wei, err := helpers.ParseEther(s)
					if err != nil || wei.Sign() <= 0 {
						return errors.New("Please enter a valid amount")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

// openConfirm asks the user to approve w before it is signed
func (m *model) openConfirm(w pendingWrite) {
	tempConfirm = true
	m.pending = &w
	m.fundQR = ""
	if s := m.session(); s != nil && w.op == contract.OpFund {
		m.fundQR = rpc.GenerateQRCode(rpc.FundURI(s.Gateway.Address(), s.ChainID, w.id, w.amount))
	}

	m.confirmForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(w.summary).
				Description("The transaction is signed with "+helpers.ShortenAddr(m.viewer().Hex())).
				Affirmative("Sign & send").
				Negative("Reject").
				Value(&tempConfirm),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.confirmForm.Init()
}

// decline turns a rejected confirmation into the user-cancelled outcome
func (m *model) decline() tea.Cmd {
	w := m.pending
	m.pending = nil
	m.confirmForm = nil
	m.fundQR = ""
	if w == nil {
		return nil
	}
	return m.fail(contract.Classify(w.op, contract.ErrUserRejected))
}

// submit signs and sends the confirmed write
func (m *model) submit() tea.Cmd {
	w := m.pending
	m.pending = nil
	m.confirmForm = nil
	m.fundQR = ""
	s := m.session()
	if w == nil || s == nil {
		return m.fail(contract.Classify(contract.OpConnect, campaign.ErrGatewayUnavailable))
	}

	m.txPending = true
	m.txOp = w.op
	m.addLog("info", fmt.Sprintf("Signing %s: %s", w.op, w.summary))

	var note string
	switch w.op {
	case contract.OpCreate:
		note = "Creating campaign... Signing transaction"
	case contract.OpFund:
		note = "Processing funding... Signing transaction"
	case contract.OpWithdraw:
		note = "Processing withdrawal... Signing transaction"
	case contract.OpRefund:
		note = "Processing automatic refunds... Signing transaction"
	}
	return tea.Batch(m.showToast(toastInfo, note), submitWrite(s, *w))
}

// requireWrite checks that a new write may start
func (m *model) requireWrite() (*wallet.Session, tea.Cmd) {
	s := m.session()
	if s == nil {
		return nil, m.showToast(toastError, "Please connect your wallet first")
	}
	if m.txPending {
		return nil, m.showToast(toastInfo, "A transaction is already waiting for confirmation")
	}
	return s, nil
}

// stepForm forwards msg to f and reports its state. Esc aborts.
func stepForm(f *huh.Form, msg tea.Msg) (*huh.Form, tea.Cmd, huh.FormState) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
		return f, nil, huh.StateAborted
	}
	form, cmd := f.Update(msg)
	if next, ok := form.(*huh.Form); ok {
		f = next
	}
	return f, cmd, f.State
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Confirmation dialog takes every key while open
	if _, isKey := msg.(tea.KeyMsg); isKey && m.confirmForm != nil {
		form, cmd, state := stepForm(m.confirmForm, msg)
		m.confirmForm = form
		switch state {
		case huh.StateCompleted:
			if tempConfirm {
				return m, m.submit()
			}
			return m, m.decline()
		case huh.StateAborted:
			return m, m.decline()
		}
		return m, cmd
	}

	// Handle form updates first (before message switching)
	if _, isKey := msg.(tea.KeyMsg); isKey && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case rpcConnectedMsg:
		m.rpcConnecting = false
		if msg.err != nil {
			m.ethClient = nil
			m.rpcConnected = false
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			return m, m.showToast(toastError, "RPC connection failed. Check RPC settings.")
		}
		m.ethClient = msg.client
		m.rpcConnected = true
		m.addLog("success", fmt.Sprintf("RPC connected to `%s`", msg.client.URL))
		if m.autoConnect {
			m.autoConnect = false
			return m, m.beginConnect()
		}
		return m, nil

	case configReloadedMsg:
		m.cfg = msg.cfg
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Config reload: %v", msg.err))
		}
		m.rpcURL = m.cfg.ActiveRPC()
		if m.rpcURL == "" {
			m.rpcConnecting = false
			return m, m.showToast(toastError, "No RPC endpoint configured")
		}
		m.addLog("info", fmt.Sprintf("Reloaded config, dialing `%s`", m.rpcURL))
		return m, connectRPC(m.rpcURL)

	case walletConnectedMsg:
		if !m.lifecycle.Complete(msg.gen, msg.session, msg.err) {
			if msg.provider != nil {
				_ = msg.provider.Close()
			}
			m.addLog("debug", "Discarded a superseded wallet connection")
			return m, nil
		}
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		s := msg.session
		m.provider = msg.provider
		m.addLog("success", fmt.Sprintf("Wallet `%s` connected on %s (session %s)", helpers.ShortenAddr(s.Account.Hex()), s.Network.Name, shortID(s)))
		return m, tea.Batch(
			m.showToast(toastSuccess, "Wallet connected successfully!"),
			m.startWatcher(),
			m.refresh(),
			loadBalance(m.ethClient, s),
		)

	case walletEventMsg:
		if msg.gen != m.watchGen {
			return m, nil
		}
		action := m.lifecycle.HandleEvent(msg.event)
		m.addLog("info", fmt.Sprintf("Wallet event `%s` → %s", msg.event.Kind, action))
		switch action {
		case wallet.ActionDisconnect:
			m.teardownWallet()
			m.clearSessionData()
			return m, m.showToast(toastInfo, "Wallet locked or all accounts removed. Disconnected.")
		case wallet.ActionReconnect:
			return m, tea.Batch(m.showToast(toastInfo, "Account changed. Reconnecting..."), m.beginConnect())
		case wallet.ActionReload:
			return m, tea.Batch(m.showToast(toastInfo, "Network changed. Reconnecting..."), m.reloadEnvironment())
		}
		return m, waitForWalletEvent(m.watchGen, m.walletCh, m.walletSub)

	case walletSubClosedMsg:
		if msg.gen == m.watchGen && msg.err != nil {
			m.addLog("error", fmt.Sprintf("Wallet watcher stopped: %v", msg.err))
		}
		return m, nil

	case balanceLoadedMsg:
		if !m.lifecycle.Current(msg.sessionID) {
			return m, nil
		}
		m.balance = msg.details
		if m.balance.ErrMessage != "" {
			m.addLog("error", m.balance.ErrMessage)
		}
		return m, nil

	case campaignsLoadedMsg:
		if !m.lifecycle.Current(msg.sessionID) {
			m.addLog("debug", "Dropped campaign list of a previous session")
			return m, nil
		}
		m.syncing = false
		if msg.err != nil {
			m.loadErr = contract.Message(msg.err)
			return m, m.fail(msg.err)
		}
		m.snapshot = msg.snapshot
		m.restoreSelection()
		m.addLog("info", fmt.Sprintf("Loaded %d of %d campaigns", len(m.snapshot.Campaigns), m.snapshot.Count))
		if m.snapshot.Partial() {
			return m, m.showToast(toastError, fmt.Sprintf("%d campaign(s) could not be loaded", len(m.snapshot.Skipped)))
		}
		return m, nil

	case contributorsLoadedMsg:
		if !m.lifecycle.Current(msg.sessionID) || msg.id != m.contribID {
			return m, nil
		}
		m.contribLoading = false
		if msg.err != nil {
			m.contribErr = contract.Message(msg.err)
			return m, m.fail(msg.err)
		}
		m.contribReport = msg.report
		m.addLog("info", fmt.Sprintf("Campaign #%d has %d contributors", msg.id, len(msg.report.Contributors)))
		return m, nil

	case auditLoadedMsg:
		if !m.lifecycle.Current(msg.sessionID) {
			return m, nil
		}
		m.auditRunning = false
		if msg.err != nil {
			m.auditErr = contract.Message(msg.err)
			return m, m.fail(msg.err)
		}
		m.auditReport = msg.report
		m.addLog("info", fmt.Sprintf("Refund audit covered %d campaigns", len(msg.report.Entries)))
		return m, nil

	case txSubmittedMsg:
		if !m.lifecycle.Current(msg.sessionID) {
			m.addLog("warning", fmt.Sprintf("Result of %s arrived after the session changed", msg.op))
			return m, nil
		}
		if msg.err != nil {
			m.txPending = false
			return m, m.fail(msg.err)
		}
		m.lastTx = msg.tx.Hash()
		m.addLog("info", fmt.Sprintf("Submitted %s: `%s`", msg.op, msg.tx.Hash().Hex()))
		note := "Transaction submitted! Waiting for confirmation..."
		if msg.op == contract.OpRefund {
			note = "Refund transaction submitted! Waiting for confirmation..."
		}
		return m, tea.Batch(m.showToast(toastInfo, note), confirmWrite(m.session(), msg.op, msg.tx))

	case txConfirmedMsg:
		if !m.lifecycle.Current(msg.sessionID) {
			m.addLog("warning", fmt.Sprintf("Confirmation of %s arrived after the session changed", msg.op))
			return m, nil
		}
		m.txPending = false
		if msg.err != nil {
			return m, m.fail(msg.err)
		}
		m.addLog("success", fmt.Sprintf("%s mined in block %d (gas %d)", msg.op, msg.receipt.BlockNumber, msg.receipt.GasUsed))
		if msg.op == contract.OpCreate {
			// the new campaign takes the next ID
			m.selectedID = m.snapshot.Count + 1
		}

		cmds := []tea.Cmd{m.showToast(toastSuccess, successMessage(msg.op)), m.refresh(), loadBalance(m.ethClient, m.session())}
		if m.activePage == config.PageContributors && m.contribID != 0 {
			m.contribLoading = true
			cmds = append(cmds, loadContributors(m.session(), m.contribID, m.logger))
		}
		if m.activePage == config.PageRefundAudit {
			m.auditRunning = true
			cmds = append(cmds, runAudit(m.session(), m.logger))
		}
		return m, tea.Batch(cmds...)

	case clipboardCopiedMsg:
		return m, m.showToast(toastSuccess, msg.what+" copied to clipboard")

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case clockTickMsg:
		return m, clockTick()

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height

		if m.logEnabled {
			// Width accounts for border and padding
			m.logViewport.Width = max(0, msg.Width-6)
			if m.logReady {
				m.updateLogViewport()
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Forward everything else to an open form (cursor blink etc.)
	if m.confirmForm != nil {
		form, cmd := m.confirmForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.confirmForm = f
		}
		return m, cmd
	}
	if m.form != nil {
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		return m, cmd
	}
	return m, nil
}

func successMessage(op contract.Op) string {
	switch op {
	case contract.OpCreate:
		return "Campaign created successfully!"
	case contract.OpFund:
		return "Campaign funded successfully!"
	case contract.OpWithdraw:
		return "Funds withdrawn successfully!"
	case contract.OpRefund:
		return "All contributors have been automatically refunded!"
	default:
		return "Transaction confirmed"
	}
}

// updateForm drives whichever page form is open
func (m *model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd, state := stepForm(m.form, msg)
	m.form = form

	switch state {
	case huh.StateAborted:
		m.form = nil
		m.settingsMode = "list"
		if m.activePage != config.PageSettings {
			m.activePage = config.PageCampaigns
		}
		return m, nil

	case huh.StateCompleted:
		m.form = nil
		switch m.activePage {
		case config.PageHome:
			return m, m.navigate(home.TempSelection)

		case config.PageCreate:
			m.activePage = config.PageCampaigns
			goal, _ := helpers.ParseEther(tempCreateGoal)
			minutes, _ := strconv.ParseInt(strings.TrimSpace(tempCreateDuration), 10, 64)
			p := contract.CreateParams{
				Title:           strings.TrimSpace(tempCreateTitle),
				Description:     strings.TrimSpace(tempCreateDesc),
				Goal:            goal,
				DurationMinutes: minutes,
			}
			if err := contract.ValidateCreate(p); err != nil {
				return m, m.fail(err)
			}
			m.openConfirm(pendingWrite{
				op:      contract.OpCreate,
				create:  p,
				summary: fmt.Sprintf("Create %q with a goal of %s for %d minutes?", p.Title, helpers.FormatETH(p.Goal), p.DurationMinutes),
			})
			return m, nil

		case config.PageFund:
			m.activePage = config.PageCampaigns
			amount, err := helpers.ParseEther(tempFundAmount)
			if err != nil {
				return m, m.fail(contract.ValidateFund(m.selectedID, nil))
			}
			if err := contract.ValidateFund(m.selectedID, amount); err != nil {
				return m, m.fail(err)
			}
			m.openConfirm(pendingWrite{
				op:      contract.OpFund,
				id:      m.selectedID,
				amount:  amount,
				summary: fmt.Sprintf("Fund campaign #%d with %s?", m.selectedID, helpers.FormatETH(amount)),
			})
			return m, nil

		case config.PageSettings:
			name := strings.TrimSpace(tempRPCFormName)
			url := strings.TrimSpace(tempRPCFormURL)
			if m.settingsMode == "add" {
				if name != "" && url != "" {
					m.cfg.RPCURLs = append(m.cfg.RPCURLs, config.RPCUrl{Name: name, URL: url})
					m.saveConfig()
					m.addLog("success", fmt.Sprintf("Added RPC endpoint: `%s` (%s)", name, url))
				}
			} else if m.settingsMode == "edit" {
				if m.selectedRPCIdx >= 0 && m.selectedRPCIdx < len(m.cfg.RPCURLs) {
					m.cfg.RPCURLs[m.selectedRPCIdx].Name = name
					m.cfg.RPCURLs[m.selectedRPCIdx].URL = url
					m.saveConfig()
					m.addLog("success", fmt.Sprintf("Updated RPC endpoint: `%s`", name))
				}
			}
			m.settingsMode = "list"
			return m, nil
		}
		return m, nil
	}
	return m, cmd
}

// navigate switches page, starting whatever the page needs
func (m *model) navigate(p config.Page) tea.Cmd {
	m.activePage = p
	switch p {
	case config.PageCreate:
		if _, cmd := m.requireWrite(); cmd != nil {
			m.activePage = config.PageCampaigns
			return cmd
		}
		m.createCampaignForm()
	case config.PageRefundAudit:
		s := m.session()
		if s == nil {
			m.activePage = config.PageCampaigns
			return m.showToast(toastError, "Please connect your wallet first")
		}
		m.auditRunning = true
		m.auditErr = ""
		return runAudit(s, m.logger)
	case config.PageExplorer:
		m.explorerIdx = 0
	case config.PageSettings:
		m.settingsMode = "list"
	}
	return nil
}

// handleKey processes key presses when no form is open
func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// global keys
	switch msg.String() {
	case "ctrl+c", "q":
		m.lifecycle.Disconnect()
		m.teardownWallet()
		m.ethClient.Close()
		return m, tea.Quit

	case "l", "L":
		m.logEnabled = !m.logEnabled
		m.saveConfig()
		if m.logEnabled {
			if m.w > 0 {
				m.logViewport.Width = m.w - 6
			}
			m.logReady = false
			return m, tea.Batch(initLogViewport(), m.logSpinner.Tick)
		}
		m.logBuffer.Reset()
		m.logReady = false
		return m, nil

	case "pageup", "pagedown":
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
	}

	// page-specific behavior
	switch m.activePage {

	case config.PageCampaigns:
		return m.handleCampaignKey(msg)

	case config.PageContributors:
		switch msg.String() {
		case "esc", "v":
			m.activePage = config.PageCampaigns
		case "r", "R":
			if s := m.session(); s != nil && m.contribID != 0 {
				m.contribLoading = true
				m.contribErr = ""
				return m, loadContributors(s, m.contribID, m.logger)
			}
		}
		return m, nil

	case config.PageRefundAudit:
		switch msg.String() {
		case "esc", "t":
			m.activePage = config.PageCampaigns
		case "r", "R":
			return m, m.navigate(config.PageRefundAudit)
		}
		return m, nil

	case config.PageExplorer:
		links := m.explorerLinks()
		switch msg.String() {
		case "esc", "e":
			m.activePage = config.PageCampaigns
		case "tab", "right", "down":
			if len(links) > 0 {
				m.explorerIdx = (m.explorerIdx + 1) % len(links)
			}
		case "shift+tab", "left", "up":
			if len(links) > 0 {
				m.explorerIdx = (m.explorerIdx - 1 + len(links)) % len(links)
			}
		case "y", "enter":
			if m.explorerIdx < len(links) {
				l := links[m.explorerIdx]
				if l.URL != "" {
					m.addLog("info", fmt.Sprintf("Opening %s on the block explorer", l.Label))
					return m, copyToClipboard(l.URL, "Explorer URL")
				}
				return m, copyToClipboard(l.Value, l.Label)
			}
		}
		return m, nil

	case config.PageSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m *model) handleCampaignKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()

	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.selectedID = m.snapshot.Campaigns[m.selected].ID
		}
		return m, nil

	case "down", "j":
		if m.selected < len(m.snapshot.Campaigns)-1 {
			m.selected++
			m.selectedID = m.snapshot.Campaigns[m.selected].ID
		}
		return m, nil

	case "c", "C":
		if m.lifecycle.State() != wallet.Disconnected {
			m.lifecycle.Disconnect()
			m.teardownWallet()
			m.clearSessionData()
			m.addLog("info", "Wallet disconnected")
			return m, m.showToast(toastInfo, "Wallet disconnected")
		}
		if !m.rpcConnected && !m.rpcConnecting && m.rpcURL != "" {
			m.rpcConnecting = true
			m.autoConnect = true
			return m, connectRPC(m.rpcURL)
		}
		return m, m.beginConnect()

	case "r", "R":
		if m.session() == nil {
			return m, m.showToast(toastError, "Please connect your wallet first")
		}
		return m, tea.Batch(m.refresh(), loadBalance(m.ethClient, m.session()))

	case "n", "N":
		return m, m.navigate(config.PageCreate)

	case "h", "H":
		m.activePage = config.PageHome
		m.form = home.CreateForm(m.session() != nil)
		return m, nil

	case "s", "S":
		return m, m.navigate(config.PageSettings)

	case "t", "T":
		return m, m.navigate(config.PageRefundAudit)

	case "e", "E":
		return m, m.navigate(config.PageExplorer)
	}

	v, ok := m.selectedView(now)
	if !ok {
		return m, nil
	}
	c := v.Campaign

	switch msg.String() {
	case "f", "F":
		if _, cmd := m.requireWrite(); cmd != nil {
			return m, cmd
		}
		if !v.Actions.Fund {
			return m, m.showToast(toastError, "Campaign has already ended")
		}
		m.activePage = config.PageFund
		m.createFundForm(v)
		return m, nil

	case "w", "W":
		if _, cmd := m.requireWrite(); cmd != nil {
			return m, cmd
		}
		if !v.Actions.Withdraw {
			return m, m.showToast(toastError, withdrawBlocker(v))
		}
		m.openConfirm(pendingWrite{
			op:      contract.OpWithdraw,
			id:      c.ID,
			summary: fmt.Sprintf("Withdraw %s from campaign #%d?", helpers.FormatETH(c.FundsRaised), c.ID),
		})
		return m, nil

	case "x", "X":
		if _, cmd := m.requireWrite(); cmd != nil {
			return m, cmd
		}
		if !m.refundSupported() {
			return m, m.fail(contract.Classify(contract.OpRefund, contract.ErrFunctionUnavailable))
		}
		if !v.Actions.Refund {
			return m, m.showToast(toastError, refundBlocker(v))
		}
		m.openConfirm(pendingWrite{
			op:      contract.OpRefund,
			id:      c.ID,
			summary: fmt.Sprintf("Refund all contributors of campaign #%d?", c.ID),
		})
		return m, nil

	case "v", "V":
		s := m.session()
		if s == nil {
			return m, m.showToast(toastError, "Please connect your wallet first")
		}
		m.activePage = config.PageContributors
		m.contribID = c.ID
		m.contribLoading = true
		m.contribErr = ""
		m.contribReport = campaign.Report{}
		return m, loadContributors(s, c.ID, m.logger)

	case "y", "Y":
		return m, copyToClipboard(c.Owner.Hex(), "Owner address")
	}
	return m, nil
}

func withdrawBlocker(v campaign.View) string {
	switch {
	case !v.IsOwner:
		return "Only the campaign owner can withdraw"
	case v.Campaign.Completed:
		return "Funds have already been withdrawn"
	default:
		return "Campaign goal has not been reached yet"
	}
}

func refundBlocker(v campaign.View) string {
	switch {
	case v.Campaign.Completed:
		return "Refunds have already been processed for this campaign"
	case v.GoalMet:
		return "Campaign goal was reached, no refunds needed"
	default:
		return "Campaign deadline has not passed yet"
	}
}

func (m *model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showRPCDeleteDialog {
		switch msg.String() {
		case "left", "right", "tab":
			m.deleteRPCDialogYesSelected = !m.deleteRPCDialogYesSelected
			return m, nil
		case "enter":
			if m.deleteRPCDialogYesSelected {
				idx := m.deleteRPCDialogIdx
				if idx >= 0 && idx < len(m.cfg.RPCURLs) {
					m.cfg.RPCURLs = append(m.cfg.RPCURLs[:idx], m.cfg.RPCURLs[idx+1:]...)
					if m.selectedRPCIdx >= len(m.cfg.RPCURLs) && m.selectedRPCIdx > 0 {
						m.selectedRPCIdx--
					}
					m.saveConfig()
					m.addLog("warning", fmt.Sprintf("Deleted RPC endpoint `%s`", m.deleteRPCDialogName))
				}
			}
			m.showRPCDeleteDialog = false
			return m, nil
		case "esc":
			m.showRPCDeleteDialog = false
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.activePage = config.PageCampaigns
		return m, nil

	case "a", "A":
		m.settingsMode = "add"
		m.createAddRPCForm()
		return m, nil

	case "e", "E":
		if len(m.cfg.RPCURLs) > 0 {
			m.settingsMode = "edit"
			m.createEditRPCForm(m.selectedRPCIdx)
		}
		return m, nil

	case "d", "D", "delete", "backspace":
		if len(m.cfg.RPCURLs) > 0 && m.selectedRPCIdx < len(m.cfg.RPCURLs) {
			m.showRPCDeleteDialog = true
			m.deleteRPCDialogYesSelected = true
			m.deleteRPCDialogIdx = m.selectedRPCIdx
			name := strings.TrimSpace(m.cfg.RPCURLs[m.selectedRPCIdx].Name)
			if name == "" {
				name = m.cfg.RPCURLs[m.selectedRPCIdx].URL
			}
			m.deleteRPCDialogName = name
		}
		return m, nil

	case "up", "k":
		if m.selectedRPCIdx > 0 {
			m.selectedRPCIdx--
		}
		return m, nil

	case "down", "j":
		if m.selectedRPCIdx < len(m.cfg.RPCURLs)-1 {
			m.selectedRPCIdx++
		}
		return m, nil

	case "enter", " ":
		// Set as active and reconnect everything against it
		if len(m.cfg.RPCURLs) > 0 && m.selectedRPCIdx < len(m.cfg.RPCURLs) {
			for i := range m.cfg.RPCURLs {
				m.cfg.RPCURLs[i].Active = (i == m.selectedRPCIdx)
			}
			m.saveConfig()
			m.addLog("info", fmt.Sprintf("Switching RPC to `%s`", m.cfg.RPCURLs[m.selectedRPCIdx].Name))
			return m, m.reloadEnvironment()
		}
		return m, nil
	}
	return m, nil
}

// explorerLinks lists the block-explorer targets for the current session
func (m *model) explorerLinks() []explorer.Link {
	s := m.session()
	if s == nil {
		return nil
	}
	net := s.Network
	links := []explorer.Link{
		{Label: "Contract", Icon: "📜", Value: s.Gateway.Address().Hex(), URL: net.AddressURL(s.Gateway.Address().Hex())},
		{Label: "Your account", Icon: "👛", Value: s.Account.Hex(), URL: net.AddressURL(s.Account.Hex())},
	}
	if v, ok := m.selectedView(time.Now()); ok {
		owner := v.Campaign.Owner.Hex()
		links = append(links, explorer.Link{Label: fmt.Sprintf("Owner of #%d", v.Campaign.ID), Icon: "👤", Value: owner, URL: net.AddressURL(owner)})
	}
	if m.lastTx != (common.Hash{}) {
		links = append(links, explorer.Link{Label: "Last transaction", Icon: "🧾", Value: m.lastTx.Hex(), URL: net.TxURL(m.lastTx.Hex())})
	}
	return links
}

func shortID(s *wallet.Session) string {
	if s == nil {
		return ""
	}
	return s.ID.String()[:8]
}
