package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/portal"
	"wave-portal-tui/session"
	"wave-portal-tui/views/connect"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEMP FORM STORAGE --------------------
// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var (
	tempRPCFormName string
	tempRPCFormURL  string
)

func (m *model) createPassphraseForm() {
	m.passForm = connect.CreatePassphraseForm(m.walletOpts.KeystoreDir)
}

func (m *model) createAddRPCForm() {
	tempRPCFormName = ""
	tempRPCFormURL = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Description("A friendly name for this RPC endpoint").
				Value(&tempRPCFormName).
				Placeholder("Sepolia Alchemy"),

			huh.NewInput().
				Title("RPC URL").
				Description("http(s):// or ws(s):// endpoint; websockets get live events").
				Value(&tempRPCFormURL).
				Placeholder("wss://eth-sepolia.g.alchemy.com/v2/...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func (m *model) createEditRPCForm(idx int) {
	if idx < 0 || idx >= len(m.rpcURLs) {
		return
	}

	r := m.rpcURLs[idx]
	tempRPCFormName = r.Name
	tempRPCFormURL = r.URL

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC Name").
				Value(&tempRPCFormName).
				Placeholder("My Node"),

			huh.NewInput().
				Title("RPC URL").
				Value(&tempRPCFormURL).
				Placeholder("https://...").
				Validate(validateRPCURL),
		),
	).WithTheme(huh.ThemeCatppuccin())

	m.form.Init()
}

func validateRPCURL(s string) error {
	s = strings.TrimSpace(s)
	for _, p := range []string{"http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(s, p) {
			return nil
		}
	}
	return fmt.Errorf("url must start with http(s):// or ws(s)://")
}

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Passphrase prompt owns the keyboard while open
	if m.passForm != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.passForm = nil
			return m, nil
		}

		form, cmd := m.passForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.passForm = f

			if m.passForm.State == huh.StateCompleted {
				m.passForm = nil
				m.connecting = true
				m.addLog("info", "Unlocking keystore")
				return m, requestAccounts(m.provider, connect.TempPassphrase)
			}
			if m.passForm.State == huh.StateAborted {
				m.passForm = nil
				return m, nil
			}
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, cmd
		}
		// async results still need to reach the model below
		next, more := m.update(msg)
		return next, tea.Batch(cmd, more)
	}

	if m.activePage == config.PageSettings && (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.settingsMode = "list"
			m.form = nil
			return m, nil
		}

		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f

			if m.form.State == huh.StateCompleted {
				name := strings.TrimSpace(tempRPCFormName)
				url := strings.TrimSpace(tempRPCFormURL)
				if m.settingsMode == "add" {
					if name != "" && url != "" {
						m.rpcURLs = append(m.rpcURLs, config.RPCUrl{Name: name, URL: url})
						m.saveConfig()
						m.addLog("success", fmt.Sprintf("Added RPC endpoint: `%s` (%s)", name, url))
					}
				} else if m.selectedRPCIdx >= 0 && m.selectedRPCIdx < len(m.rpcURLs) {
					m.rpcURLs[m.selectedRPCIdx].Name = name
					m.rpcURLs[m.selectedRPCIdx].URL = url
					m.saveConfig()
					m.addLog("success", fmt.Sprintf("Updated RPC endpoint: `%s`", name))
				}
				m.settingsMode = "list"
				m.form = nil
				return m, nil
			}

			if m.form.State == huh.StateAborted {
				m.settingsMode = "list"
				m.form = nil
				return m, nil
			}
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m, cmd
		}
		next, more := m.update(msg)
		return next, tea.Batch(cmd, more)
	}

	return m.update(msg)
}

func (m *model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logger = log.NewWithOptions(m.logBuffer, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
		m.logger.SetLevel(log.DebugLevel)
		m.logger.SetStyles(&log.Styles{
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
				log.ErrorLevel: lipgloss.NewStyle().Foreground(cError).SetString("ERROR"),
			},
		})
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case rpcConnectedMsg:
		if msg.url != m.rpcURL || m.rpcConnected {
			// endpoint changed while dialing, or a duplicate dial for the live one
			if msg.client != nil {
				msg.client.Close()
			}
			return m, nil
		}
		m.rpcConnecting = false
		if msg.err != nil {
			m.ethClient = nil
			m.portal = nil
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			return m, nil
		}
		pc, err := portal.NewClient(common.HexToAddress(m.cfg.Contract), msg.client,
			portal.WithPollInterval(time.Duration(m.cfg.PollInterval)))
		if err != nil {
			msg.client.Close()
			m.addLog("error", fmt.Sprintf("Contract binding failed: %v", err))
			return m, nil
		}
		if m.ethClient != nil {
			m.ethClient.Close()
		}
		m.ethClient = msg.client
		m.portal = pc
		m.rpcConnected = true
		m.addLog("success", fmt.Sprintf("RPC connected to `%s` (chain %s)", msg.client.URL, msg.client.ChainID))
		pending := m.pending
		m.pending = 0
		return m, m.runEffects(pending)

	case walletDetectedMsg:
		m.walletReady = true
		for _, err := range msg.skipped {
			m.addLog("warning", err.Error())
		}
		if !msg.ok {
			m.addLog("warning", "No wallet found (set PRIVATE_KEY, KEYSTORE_DIR or WALLET_RPC_URL)")
			return m, nil
		}
		m.provider = msg.provider
		m.accountsCh = make(chan []common.Address, 4)
		m.accountsSub = m.provider.WatchAccounts(m.accountsCh)
		m.addLog("info", fmt.Sprintf("Found %s wallet", m.provider.Name()))
		return m, tea.Batch(
			listenAccounts(m.accountsSub, m.accountsCh),
			checkAuthorized(m.provider),
		)

	case authorizedAccountsMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Checking authorized accounts failed: %v", msg.err))
			return m, nil
		}
		if len(msg.accounts) == 0 {
			m.addLog("info", "No authorized account found")
			return m, nil
		}
		m.addLog("success", fmt.Sprintf("Found an authorized account: %s", msg.accounts[0].Hex()))
		return m, m.apply(session.AccountsFound{Accounts: msg.accounts})

	case accountsRequestedMsg:
		m.connecting = false
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Connect failed: %v", msg.err))
			return m, nil
		}
		if len(msg.accounts) == 0 {
			m.addLog("warning", "Wallet granted no accounts")
			return m, nil
		}
		m.addLog("success", fmt.Sprintf("Connected %s", msg.accounts[0].Hex()))
		return m, m.apply(session.AccountsFound{Accounts: msg.accounts})

	case accountsChangedMsg:
		if msg.sub != m.accountsSub {
			return m, nil
		}
		cmd := m.apply(session.AccountsChanged{Accounts: msg.accounts})
		m.balanceReady = false
		if len(msg.accounts) == 0 {
			m.addLog("warning", "Wallet reported no accounts")
		} else {
			m.addLog("info", fmt.Sprintf("Wallet switched to %s", msg.accounts[0].Hex()))
			if m.ethClient != nil && m.sess.Mode() == session.Connected {
				cmd = tea.Batch(cmd, loadBalance(m.ethClient, m.sess.Account))
			}
		}
		return m, tea.Batch(cmd, listenAccounts(m.accountsSub, m.accountsCh))

	case wavesFetchedMsg:
		m.loadingWaves = false
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Fetching waves failed: %v", msg.err))
			return m, nil
		}
		m.apply(session.WavesFetched{Waves: msg.waves})
		m.clampSelection()
		m.addLog("success", fmt.Sprintf("Loaded %d waves", len(msg.waves)))
		return m, nil

	case countFetchedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Fetching wave count failed: %v", msg.err))
			return m, nil
		}
		m.apply(session.CountFetched{Count: msg.count})
		m.addLog("info", fmt.Sprintf("Retrieved total wave count... %d", msg.count))
		return m, nil

	case waveSubscribedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("NewWave subscription failed: %v", msg.err))
			return m, nil
		}
		if m.sess.Mode() == session.Disconnected || m.waveSub != nil {
			msg.sub.Unsubscribe()
			return m, nil
		}
		m.waveSub = msg.sub
		m.waveSink = msg.sink
		m.addLog("info", "Listening for NewWave events")
		return m, listenWaves(m.waveSub, m.waveSink)

	case waveReceivedMsg:
		if msg.sub != m.waveSub {
			return m, nil
		}
		m.apply(session.WaveReceived{Wave: msg.wave})
		m.addLog("info", fmt.Sprintf("NewWave from %s: %s", helpers.ShortenAddr(msg.wave.Address.Hex()), msg.wave.Message))
		return m, listenWaves(m.waveSub, m.waveSink)

	case waveSubEndedMsg:
		if msg.sub != m.waveSub {
			return m, nil
		}
		m.waveSub = nil
		m.waveSink = nil
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("NewWave subscription ended: %v", msg.err))
		}
		return m, nil

	case waveSentMsg:
		m.sending = max(0, m.sending-1)
		if msg.hasPreCount {
			m.apply(session.CountFetched{Count: msg.preCount})
			m.addLog("info", fmt.Sprintf("Retrieved total wave count... %d", msg.preCount))
		}
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Wave failed: %v", msg.err))
			return m, nil
		}
		hash := msg.tx.Hash().Hex()
		m.showTx = true
		m.txHash = hash
		m.txURL = helpers.TxURL(m.cfg.ExplorerURL, hash)
		m.txMining = true
		m.txBlock = 0
		m.txError = ""
		m.addLog("info", fmt.Sprintf("Mining... %s", hash))
		return m, waitWaveMined(m.portal, msg.tx)

	case waveMinedMsg:
		hash := msg.tx.Hash().Hex()
		current := hash == m.txHash
		if current {
			m.txMining = false
		}
		if msg.err != nil {
			if current {
				m.txError = msg.err.Error()
			}
			if errors.Is(msg.err, portal.ErrWaveReverted) {
				m.addLog("error", fmt.Sprintf("Wave reverted: %s", hash))
			} else {
				m.addLog("error", fmt.Sprintf("Waiting for %s failed: %v", hash, msg.err))
			}
			return m, nil
		}
		if current && msg.receipt != nil && msg.receipt.BlockNumber != nil {
			m.txBlock = msg.receipt.BlockNumber.Uint64()
		}
		m.addLog("success", fmt.Sprintf("Mined -- %s", hash))
		var cmds []tea.Cmd
		if msg.countErr != nil {
			m.addLog("error", fmt.Sprintf("Fetching wave count failed: %v", msg.countErr))
		} else {
			m.apply(session.CountFetched{Count: msg.count})
			m.addLog("info", fmt.Sprintf("Retrieved total wave count... %d", msg.count))
		}
		if m.ethClient != nil && m.sess.Mode() == session.Connected {
			cmds = append(cmds, loadBalance(m.ethClient, m.sess.Account))
		}
		return m, tea.Batch(cmds...)

	case balanceLoadedMsg:
		if msg.err != nil {
			m.addLog("error", fmt.Sprintf("Balance: %v", msg.err))
			return m, nil
		}
		if msg.balance.Address != m.sess.Account.Hex() {
			return m, nil
		}
		m.balance = msg.balance
		m.balanceReady = true
		return m, nil

	case clipboardCopiedMsg:
		m.copiedMsg = "✓ Copied " + msg.what + " to clipboard"
		m.copiedTime = time.Now()
		return m, clearClipboard()

	case clearClipboardMsg:
		if time.Since(m.copiedTime) >= 2*time.Second {
			m.copiedMsg = ""
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.input.Width = max(10, (m.w*4)/10-16)
		if m.logEnabled {
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

	case tea.MouseMsg:
		if m.activePage == config.PagePortal && !m.showTx && !m.showAlert {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				if m.selectedWave > 0 {
					m.selectedWave--
				}
			case tea.MouseButtonWheelDown:
				if m.selectedWave < len(m.sess.Waves)-1 {
					m.selectedWave++
				}
			}
		}
		return m, nil
	}

	// cursor blink and other input internals
	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// -------------------- KEYS --------------------

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showAlert {
		switch msg.String() {
		case "enter", "esc", " ":
			m.showAlert = false
		}
		return m, nil
	}

	if m.showTx {
		switch msg.String() {
		case "c", "C":
			if m.txHash != "" {
				m.addLog("info", "Copied transaction hash to clipboard")
				return m, copyToClipboard(m.txHash, "transaction hash")
			}
		case "u", "U":
			if m.txURL != "" {
				return m, copyToClipboard(m.txURL, "explorer link")
			}
		case "esc", "enter":
			m.showTx = false
			m.copiedMsg = ""
		}
		return m, nil
	}

	if !m.textInputActive() {
		switch msg.String() {
		case "q":
			return m, tea.Quit

		case "l", "L":
			m.logEnabled = !m.logEnabled
			if m.logEnabled {
				if m.w > 0 {
					m.logViewport.Width = m.w - 6
				}
				m.logReady = false
				m.saveConfig()
				return m, tea.Batch(initLogViewport(), m.logSpinner.Tick)
			}
			if m.logBuffer != nil {
				m.logBuffer.Reset()
			}
			m.logger = nil
			m.logReady = false
			m.saveConfig()
			return m, nil

		case "pageup", "pagedown":
			if m.logEnabled && m.logReady {
				var cmd tea.Cmd
				m.logViewport, cmd = m.logViewport.Update(msg)
				return m, cmd
			}
		}
	}

	switch m.activePage {
	case config.PagePortal:
		return m.handlePortalKey(msg)
	case config.PageSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m *model) handlePortalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	connected := m.sess.Mode() == session.Connected

	switch m.focus {
	case focusInput:
		switch msg.String() {
		case "esc":
			m.setFocus(focusList)
			return m, nil
		case "tab":
			m.setFocus(focusButton)
			return m, nil
		case "enter":
			return m, m.submitWave()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != m.sess.Message {
			m.apply(session.MessageTyped{Message: v})
		}
		return m, cmd

	case focusButton:
		switch msg.String() {
		case "enter", " ":
			return m, m.submitWave()
		case "shift+tab":
			m.setFocus(focusInput)
		case "tab", "esc":
			m.setFocus(focusList)
		}
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.selectedWave > 0 {
			m.selectedWave--
		}
	case "down", "j":
		if m.selectedWave < len(m.sess.Waves)-1 {
			m.selectedWave++
		}
	case "home", "g":
		m.selectedWave = 0
	case "end", "G":
		m.selectedWave = max(0, len(m.sess.Waves)-1)
	case "enter":
		if !connected {
			if m.connecting || !m.walletReady {
				return m, nil
			}
			return m, m.connectWallet()
		}
		m.setFocus(focusInput)
		return m, textinput.Blink
	case "tab", "i":
		if connected {
			m.setFocus(focusInput)
			return m, textinput.Blink
		}
	case "c", "C":
		if m.selectedWave >= 0 && m.selectedWave < len(m.sess.Waves) {
			addr := m.sess.Waves[m.selectedWave].Address.Hex()
			m.addLog("info", fmt.Sprintf("Copied %s to clipboard", addr))
			return m, copyToClipboard(addr, "address")
		}
	case "r", "R":
		if connected {
			m.addLog("info", "Refreshing waves")
			return m, m.runEffects(session.FetchWaves | session.FetchCount)
		}
	case "d", "D":
		if connected && m.provider != nil {
			m.addLog("info", fmt.Sprintf("Disconnecting %s", m.provider.Name()))
			return m, revokeWallet(m.provider)
		}
	case "t", "T":
		if m.txHash != "" {
			m.showTx = true
		}
	case "s", "S":
		m.activePage = config.PageSettings
		m.settingsMode = "list"
	case "esc":
		return m, tea.Quit
	}
	return m, nil
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
				if idx >= 0 && idx < len(m.rpcURLs) {
					m.rpcURLs = append(m.rpcURLs[:idx], m.rpcURLs[idx+1:]...)
					if m.selectedRPCIdx >= len(m.rpcURLs) && m.selectedRPCIdx > 0 {
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

	if m.settingsMode != "list" {
		return m, nil
	}

	switch msg.String() {
	case "esc", "p", "P":
		m.activePage = config.PagePortal

	case "a", "A":
		m.settingsMode = "add"
		m.createAddRPCForm()

	case "e", "E":
		if len(m.rpcURLs) > 0 {
			m.settingsMode = "edit"
			m.createEditRPCForm(m.selectedRPCIdx)
		}

	case "delete", "backspace", "x":
		if len(m.rpcURLs) > 0 && m.selectedRPCIdx < len(m.rpcURLs) {
			m.showRPCDeleteDialog = true
			m.deleteRPCDialogYesSelected = true
			m.deleteRPCDialogIdx = m.selectedRPCIdx
			name := strings.TrimSpace(m.rpcURLs[m.selectedRPCIdx].Name)
			if name == "" {
				name = m.rpcURLs[m.selectedRPCIdx].URL
			}
			m.deleteRPCDialogName = name
		}

	case "up", "k":
		if m.selectedRPCIdx > 0 {
			m.selectedRPCIdx--
		}

	case "down", "j":
		if m.selectedRPCIdx < len(m.rpcURLs)-1 {
			m.selectedRPCIdx++
		}

	case "enter", " ":
		if len(m.rpcURLs) > 0 && m.selectedRPCIdx < len(m.rpcURLs) {
			m.fileCfg.RPCURLs = m.rpcURLs
			m.fileCfg.Activate(m.selectedRPCIdx)
			m.saveConfig()
			return m, m.switchRPC(m.rpcURLs[m.selectedRPCIdx].URL)
		}
	}
	return m, nil
}

// switchRPC drops the current connection and its subscription and dials url.
// A connected session refetches everything once the new endpoint is up.
func (m *model) switchRPC(url string) tea.Cmd {
	m.stopWaveSub()
	if m.ethClient != nil {
		m.ethClient.Close()
	}
	m.ethClient = nil
	m.portal = nil
	m.rpcURL = url
	m.rpcConnected = false
	m.rpcConnecting = true
	if m.sess.Mode() == session.Connected {
		m.pending |= session.FetchWaves | session.FetchCount | session.Subscribe
	}
	m.addLog("info", fmt.Sprintf("Switching RPC to `%s`", url))
	return connectRPC(url)
}

func (m *model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *model) clampSelection() {
	if m.selectedWave >= len(m.sess.Waves) {
		m.selectedWave = max(0, len(m.sess.Waves)-1)
	}
}
