package main

import (
	"context"
	"fmt"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/portal"
	"wave-portal-tui/rpc"
	"wave-portal-tui/session"
	"wave-portal-tui/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const readTimeout = 15 * time.Second

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// connectRPC establishes an RPC connection to the Ethereum node
func connectRPC(url string) tea.Cmd {
	return func() tea.Msg {
		result := rpc.Connect(url)
		return rpcConnectedMsg{url: url, client: result.Client, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// detectWallet looks for a configured wallet without prompting
func detectWallet(opts wallet.Options) tea.Cmd {
	return func() tea.Msg {
		p, skipped := wallet.Find(opts)
		return walletDetectedMsg{provider: p, ok: p != nil, skipped: skipped}
	}
}

// checkAuthorized asks the wallet for accounts it already granted
func checkAuthorized(p wallet.Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		accs, err := p.Accounts(ctx)
		return authorizedAccountsMsg{accounts: accs, err: err}
	}
}

// requestAccounts asks the wallet to grant access
func requestAccounts(p wallet.Provider, passphrase string) tea.Cmd {
	return func() tea.Msg {
		accs, err := p.RequestAccounts(context.Background(), passphrase)
		return accountsRequestedMsg{accounts: accs, err: err}
	}
}

// listenAccounts waits for the next account set change
func listenAccounts(sub event.Subscription, ch <-chan []common.Address) tea.Cmd {
	return func() tea.Msg {
		select {
		case accs := <-ch:
			return accountsChangedMsg{accounts: accs, sub: sub}
		case <-sub.Err():
			return nil
		}
	}
}

// revokeWallet drops the wallet grant; the change arrives through listenAccounts
func revokeWallet(p wallet.Provider) tea.Cmd {
	return func() tea.Msg {
		_ = p.Revoke()
		return nil
	}
}

// fetchWaves reads every wave stored in the contract
func fetchWaves(pc *portal.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		waves, err := pc.FetchAllWaves(ctx)
		return wavesFetchedMsg{waves: waves, err: err}
	}
}

// fetchCount reads the total wave count
func fetchCount(pc *portal.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		n, err := pc.FetchTotalCount(ctx)
		return countFetchedMsg{count: n, err: err}
	}
}

// subscribeWaves registers for live NewWave notifications
func subscribeWaves(pc *portal.Client) tea.Cmd {
	return func() tea.Msg {
		sink := make(chan portal.Wave, 16)
		sub, err := pc.WatchWaves(context.Background(), sink)
		return waveSubscribedMsg{sub: sub, sink: sink, err: err}
	}
}

// listenWaves waits for the next wave on sub. The subscription is carried in
// the message so results from a torn-down subscription can be dropped.
func listenWaves(sub event.Subscription, sink <-chan portal.Wave) tea.Cmd {
	return func() tea.Msg {
		select {
		case w := <-sink:
			return waveReceivedMsg{wave: w, sub: sub}
		case err := <-sub.Err():
			return waveSubEndedMsg{sub: sub, err: err}
		}
	}
}

// sendWave reads the current count and then sends the wave transaction
func sendWave(pc *portal.Client, p wallet.Provider, client *rpc.Client, account common.Address, message string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		n, err := pc.FetchTotalCount(readCtx)
		cancel()
		if err != nil {
			return waveSentMsg{err: fmt.Errorf("read count: %w", err)}
		}

		opts, err := p.Transactor(ctx, account, client.ChainID)
		if err != nil {
			return waveSentMsg{preCount: n, hasPreCount: true, err: err}
		}
		tx, err := pc.SubmitWave(ctx, opts, message)
		return waveSentMsg{preCount: n, hasPreCount: true, tx: tx, err: err}
	}
}

// waitWaveMined waits for the wave to be mined, then reads the count again
func waitWaveMined(pc *portal.Client, tx *types.Transaction) tea.Cmd {
	return func() tea.Msg {
		receipt, err := pc.WaitMined(context.Background(), tx)
		if err != nil {
			return waveMinedMsg{tx: tx, receipt: receipt, err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		n, countErr := pc.FetchTotalCount(ctx)
		return waveMinedMsg{tx: tx, receipt: receipt, count: n, countErr: countErr}
	}
}

// loadBalance fetches the ETH balance of the connected account
func loadBalance(client *rpc.Client, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		b, err := rpc.LoadBalance(client, addr)
		return balanceLoadedMsg{balance: b, err: err}
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

// clearClipboard waits 2 seconds then clears clipboard feedback
func clearClipboard() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return clearClipboardMsg{}
	})
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if !m.logEnabled || !m.logReady || m.logger == nil {
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
	if !m.logReady || m.logBuffer == nil {
		return
	}
	m.logViewport.SetContent(m.logBuffer.String())
	m.logViewport.GotoBottom()
}

// textInputActive returns true if any text input is currently active
func (m *model) textInputActive() bool {
	if m.focus == focusInput && m.sess.Mode() == session.Connected {
		return true
	}
	if m.passForm != nil {
		return true
	}
	if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
		return true
	}
	return false
}

// apply feeds ev into the session and starts whatever it asks for
func (m *model) apply(ev session.Event) tea.Cmd {
	eff := m.sess.Apply(ev)
	if m.sess.Mode() == session.Disconnected && m.focus != focusList {
		m.focus = focusList
		m.input.Blur()
	}
	return m.runEffects(eff)
}

// runEffects turns session effects into commands. Effects that need the
// contract are parked until the RPC connection is up.
func (m *model) runEffects(eff session.Effect) tea.Cmd {
	var cmds []tea.Cmd

	if eff.Has(session.Unsubscribe) {
		m.pending &^= session.Subscribe
		m.stopWaveSub()
		m.addLog("info", "Unsubscribed from NewWave")
	}

	work := eff & (session.FetchWaves | session.FetchCount | session.Subscribe)
	if work == 0 {
		return nil
	}
	if m.portal == nil {
		m.pending |= work
		return nil
	}

	if work.Has(session.FetchWaves) {
		m.loadingWaves = true
		cmds = append(cmds, fetchWaves(m.portal))
	}
	if work.Has(session.FetchCount) {
		cmds = append(cmds, fetchCount(m.portal))
	}
	if work.Has(session.Subscribe) && m.waveSub == nil {
		cmds = append(cmds, subscribeWaves(m.portal))
	}
	if m.ethClient != nil && m.sess.Mode() == session.Connected {
		cmds = append(cmds, loadBalance(m.ethClient, m.sess.Account))
	}
	return tea.Batch(cmds...)
}

// stopWaveSub tears down the live NewWave subscription, if any
func (m *model) stopWaveSub() {
	if m.waveSub != nil {
		m.waveSub.Unsubscribe()
		m.waveSub = nil
	}
	m.waveSink = nil
}

// connectWallet runs the explicit connect action
func (m *model) connectWallet() tea.Cmd {
	if m.provider == nil {
		m.showAlert = true
		m.alertText = "No wallet found. Set PRIVATE_KEY, KEYSTORE_DIR or WALLET_RPC_URL and restart."
		m.addLog("warning", "Connect requested but no wallet is configured")
		return nil
	}
	if m.provider.NeedsPassphrase() {
		m.createPassphraseForm()
		return m.passForm.Init()
	}
	m.connecting = true
	m.addLog("info", fmt.Sprintf("Requesting accounts from %s", m.provider.Name()))
	return requestAccounts(m.provider, "")
}

// submitWave sends the typed message if the wave action is enabled
func (m *model) submitWave() tea.Cmd {
	if !m.sess.CanSubmit() {
		return nil
	}
	if m.portal == nil || m.ethClient == nil {
		m.addLog("error", "Cannot wave: RPC not connected")
		return nil
	}
	m.sending++
	m.addLog("info", fmt.Sprintf("Waving `%s` from %s", m.sess.Message, helpers.ShortenAddr(m.sess.Account.Hex())))
	return sendWave(m.portal, m.provider, m.ethClient, m.sess.Account, m.sess.Message)
}

// saveConfig persists RPC endpoints and the logger toggle
func (m *model) saveConfig() {
	m.fileCfg.RPCURLs = m.rpcURLs
	m.fileCfg.Logger = m.logEnabled
	if err := config.Save(m.configPath, m.fileCfg); err != nil {
		m.addLog("error", fmt.Sprintf("Failed to save config: %v", err))
	}
}
