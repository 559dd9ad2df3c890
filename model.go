package main

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"crowdfund-tui/campaign"
	"crowdfund-tui/config"
	"crowdfund-tui/contract"
	"crowdfund-tui/network"
	"crowdfund-tui/rpc"
	"crowdfund-tui/styles"
	"crowdfund-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// -------------------- MODEL --------------------

// toastKind selects the toast color
type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

// pendingWrite is a write the user is about to confirm
type pendingWrite struct {
	op      contract.Op
	id      uint64
	amount  *big.Int
	create  contract.CreateParams
	summary string
}

// logBuffer is the in-memory sink of the logger. Library code logs from
// command goroutines while View reads it, so access is locked.
type logBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (l *logBuffer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Reset()
}

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	// configuration
	cfg        config.Config
	env        config.Env
	configPath string

	// rpc
	spin          spinner.Model
	rpcURL        string
	ethClient     *rpc.Client
	rpcConnected  bool // true if RPC is successfully connected
	rpcConnecting bool // true if connection attempt is in progress
	autoConnect   bool // connect the wallet once RPC is up

	// wallet session
	lifecycle wallet.Lifecycle
	provider  wallet.Provider
	watcher   *wallet.Watcher
	walletSub event.Subscription
	walletCh  chan wallet.Event
	watchGen  uint64
	balance   rpc.AccountDetails

	// campaign list
	snapshot   campaign.Snapshot
	syncing    bool
	loadErr    string
	selected   int
	selectedID uint64

	// contributors popup
	contribID      uint64
	contribLoading bool
	contribReport  campaign.Report
	contribErr     string

	// refund audit
	auditReport  campaign.AuditReport
	auditRunning bool
	auditErr     string

	// explorer
	explorerIdx int

	// forms: create, fund and the main menu share form; confirm gates writes
	form        *huh.Form
	confirmForm *huh.Form
	pending     *pendingWrite
	fundQR      string

	// transaction in flight
	txOp      contract.Op
	txPending bool
	lastTx    common.Hash

	// toast
	toast     string
	toastKind toastKind
	toastSeq  int

	// settings state
	settingsMode               string // "list", "add", "edit"
	selectedRPCIdx             int
	showRPCDeleteDialog        bool
	deleteRPCDialogName        string
	deleteRPCDialogIdx         int
	deleteRPCDialogYesSelected bool

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *logBuffer
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model

	// load problems found before the program started
	startupErr error
}

// -------------------- INIT --------------------

// newModel creates and initializes a new model with configuration from disk
func newModel() model {
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".crowdfund-tui.json")

	cfg, env, loadErr := loadConfig(configPath)

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	buf := &logBuffer{}

	m := model{
		activePage:   config.PageCampaigns,
		cfg:          cfg,
		env:          env,
		configPath:   configPath,
		spin:         sp,
		rpcURL:       cfg.ActiveRPC(),
		autoConnect:  true,
		settingsMode: "list",
		logEnabled:   cfg.Logger,
		logViewport:  vp,
		logBuffer:    buf,
		logger:       newLogger(buf),
		logSpinner:   logSpin,
		startupErr:   loadErr,
	}

	return m
}

// newLogger creates the logger that writes into the log panel buffer
func newLogger(buf *logBuffer) *log.Logger {
	logger := log.NewWithOptions(buf, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "",
	})
	logger.SetLevel(log.DebugLevel)
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(cMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
		Message:   lipgloss.NewStyle().Foreground(cText),
		Key:       lipgloss.NewStyle().Foreground(cAccent),
		Value:     lipgloss.NewStyle().Foreground(cText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(styles.CError).SetString("ERROR"),
		},
	})
	return logger
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, clockTick()}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	if m.startupErr != nil {
		m.logger.Error("config", "err", m.startupErr)
	}
	// connect if rpc is set
	if m.rpcURL != "" {
		m.rpcConnecting = true
		cmds = append(cmds, connectRPC(m.rpcURL))
	}
	return tea.Batch(cmds...)
}

// -------------------- DERIVED STATE --------------------

// session returns the active wallet session, nil when not connected
func (m *model) session() *wallet.Session {
	return m.lifecycle.Session()
}

// viewer is the connected account, zero when disconnected
func (m *model) viewer() common.Address {
	if s := m.session(); s != nil {
		return s.Account
	}
	return common.Address{}
}

// currentNetwork is the session's network, zero when disconnected
func (m *model) currentNetwork() network.Network {
	if s := m.session(); s != nil {
		return s.Network
	}
	return network.Network{}
}

// views derives display state for every loaded campaign at now
func (m *model) views(now time.Time) []campaign.View {
	out := make([]campaign.View, 0, len(m.snapshot.Campaigns))
	viewer := m.viewer()
	for _, c := range m.snapshot.Campaigns {
		out = append(out, campaign.Derive(c, now, viewer))
	}
	return out
}

// selectedView returns the highlighted campaign, if any
func (m *model) selectedView(now time.Time) (campaign.View, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Campaigns) {
		return campaign.View{}, false
	}
	return campaign.Derive(m.snapshot.Campaigns[m.selected], now, m.viewer()), true
}

// refundSupported reports whether the connected contract has processRefunds
func (m *model) refundSupported() bool {
	s := m.session()
	return s != nil && s.Gateway.Supports("processRefunds")
}

// textInputActive returns true if any text input is currently active
func (m *model) textInputActive() bool {
	if m.confirmForm != nil || m.form != nil {
		return true
	}
	return false
}
