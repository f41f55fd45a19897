package main

import (
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/session"
	"wave-portal-tui/styles"
	"wave-portal-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// focus is the portal panel element receiving keys
type focus int

const (
	focusList focus = iota
	focusInput
	focusButton
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page
	fileCfg    config.Config // what saveConfig writes
	cfg        config.Config // fileCfg with environment and flag overrides
	configPath string
	walletOpts wallet.Options

	// portal session
	sess         session.State
	input        textinput.Model
	focus        focus
	selectedWave int
	loadingWaves bool
	pending      session.Effect

	// wallet
	provider     wallet.Provider
	walletReady  bool
	connecting   bool
	accountsSub  event.Subscription
	accountsCh   chan []common.Address
	balance      rpc.AccountBalance
	balanceReady bool

	// chain
	spin          spinner.Model
	rpcURL        string
	ethClient     *rpc.Client
	portal        *portal.Client
	rpcConnected  bool
	rpcConnecting bool

	// live NewWave subscription
	waveSub  event.Subscription
	waveSink chan portal.Wave

	// wave transactions
	sending    int
	showTx     bool
	txHash     string
	txURL      string
	txMining   bool
	txBlock    uint64
	txError    string
	copiedMsg  string
	copiedTime time.Time

	// missing wallet alert
	showAlert bool
	alertText string

	// passphrase prompt
	passForm *huh.Form

	// settings state
	settingsMode               string // "list", "add", "edit"
	rpcURLs                    []config.RPCUrl
	selectedRPCIdx             int
	form                       *huh.Form
	showRPCDeleteDialog        bool
	deleteRPCDialogName        string
	deleteRPCDialogIdx         int
	deleteRPCDialogYesSelected bool

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *strings.Builder
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// -------------------- INIT --------------------

// newModel creates and initializes a new model. Overrides from env are used
// for dialing and display but never written back to configPath.
func newModel(fileCfg config.Config, env config.Env, configPath string, opts wallet.Options) model {
	cfg := env.Merge(fileCfg)

	in := textinput.New()
	in.Placeholder = "Write a message"
	in.Prompt = "Message: "
	in.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	in.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Will be resized in Update on first WindowSizeMsg
	vp := viewport.New(0, 20)
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	return model{
		activePage:   config.PagePortal,
		fileCfg:      fileCfg,
		cfg:          cfg,
		configPath:   configPath,
		walletOpts:   opts,
		input:        in,
		spin:         sp,
		rpcURL:       cfg.ActiveRPC(),
		settingsMode: "list",
		rpcURLs:      append([]config.RPCUrl(nil), fileCfg.RPCURLs...),
		logEnabled:   fileCfg.Logger,
		logViewport:  vp,
		logBuffer:    &strings.Builder{},
		logSpinner:   logSpin,
	}
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, detectWallet(m.walletOpts)}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	if m.rpcURL != "" {
		m.rpcConnecting = true
		cmds = append(cmds, connectRPC(m.rpcURL))
	}
	return tea.Batch(cmds...)
}

// shutdown releases subscriptions and connections when the program exits
func (m *model) shutdown() {
	m.stopWaveSub()
	if m.accountsSub != nil {
		m.accountsSub.Unsubscribe()
	}
	if m.provider != nil {
		_ = m.provider.Close()
	}
	if m.ethClient != nil {
		m.ethClient.Close()
	}
}
