package main

import (
	"fmt"
	"strings"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/session"
	"wave-portal-tui/styles"
	"wave-portal-tui/views/connect"
	logview "wave-portal-tui/views/log"
	portalview "wave-portal-tui/views/portal"
	"wave-portal-tui/views/settings"
	"wave-portal-tui/views/waves"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

func (m *model) renderTxContent() string {
	content := styles.TitleStyle.Render("Wave Transaction") + "\n\n"

	if m.txURL != "" {
		content += helpers.GenerateQRCode(m.txURL) + "\n"
	}
	content += okStyle.Render("Transaction hash:") + "\n" + m.txHash + "\n"
	if m.txURL != "" {
		content += hintStyle.Render(m.txURL) + "\n"
	}
	content += "\n"

	switch {
	case m.txMining:
		content += m.spin.View() + " Mining..."
	case m.txError != "":
		content += errorStyle.Render("Error: " + m.txError)
	default:
		content += okStyle.Render(fmt.Sprintf("Mined -- block %d", m.txBlock))
	}

	content += "\n\n" + hintStyle.Render("Scan the QR code to open the transaction in the explorer")
	content += "\n" + hintStyle.Render("c: copy hash • u: copy link • Esc/Enter: close")
	if m.copiedMsg != "" {
		content += "\n" + okStyle.Render(m.copiedMsg)
	}
	return content
}

func (m *model) renderTxPanel() string {
	contentWidth := max(0, m.w-8)
	centered := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(m.renderTxContent())
	content := panelStyle.Width(max(0, m.w-4)).Render(centered)
	return appStyle.Render(lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		content,
	))
}

func (m *model) rpcStatus() (string, lipgloss.Color) {
	switch {
	case m.rpcURL == "":
		return "○ No RPC", cError
	case m.rpcConnecting:
		return "○ Connecting...", cWarn
	case !m.rpcConnected:
		return "○ Connection Failed", cError
	}

	name := "Connected"
	for _, r := range m.rpcURLs {
		if r.Active && r.URL == m.rpcURL {
			name = r.Name
			break
		}
	}
	if m.ethClient != nil && m.ethClient.ChainID != nil {
		name += fmt.Sprintf(" (chain %s)", m.ethClient.ChainID)
	}
	if m.waveSub != nil {
		name += " · events on"
	}
	return "● " + name, cAccent
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8)

	var addrDisplay string
	if m.sess.Mode() == session.Connected {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render("Account: " + helpers.FadeString(helpers.ShortenAddr(m.sess.Account.Hex()), "#F25D94", "#EDFF82"))
	} else {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Account: Not connected")
	}

	text, color := m.rpcStatus()
	rpcDisplay := statusStyle.Foreground(color).Render(text)

	titleText := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString("wave portal", "#7EE787", "#82CFFD"))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay + strings.Repeat(" ", max(1, leftPadding)) +
			titleText + strings.Repeat(" ", max(1, rightPadding)) + rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) portalPage() string {
	panel := portalview.Panel{
		Connected:   m.sess.Mode() == session.Connected,
		Connecting:  m.connecting,
		Account:     m.sess.Account.Hex(),
		TotalCount:  m.sess.TotalCount,
		InputView:   m.input.View(),
		CanSubmit:   m.sess.CanSubmit(),
		ButtonFocus: m.focus == focusButton,
		Sending:     m.sending,
		SpinnerView: m.spin.View(),
	}
	if m.provider != nil {
		panel.WalletName = m.provider.Name()
	}
	if m.balanceReady {
		panel.Balance = helpers.FormatETH(m.balance.Wei)
		panel.BalanceAt = m.balance.LoadedAt
	}

	listWidth := max(0, (m.w*4)/10-2)
	wavesWidth := max(0, (m.w*6)/10-2)

	leftPanel := panelStyle.Width(listWidth).Render(portalview.Render(panel))

	// the wave list gets whatever height is left after header, nav and log
	reserved := 8
	if m.logEnabled {
		reserved += logview.Height(m.h) + 4
	}
	listHeight := max(lipgloss.Height(leftPanel)-2, m.h-reserved)

	wavesContent := waves.Render(m.sess.Waves, m.selectedWave, listHeight-2, m.loadingWaves, m.spin.View(), m.copiedMsg)
	rightPanel := panelStyle.
		Width(wavesWidth + 1).
		Height(listHeight).
		Render(wavesContent)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m *model) View() string {
	if m.showAlert {
		return connect.RenderAlert(m.w, m.h, m.alertText)
	}
	if m.passForm != nil {
		return connect.RenderPassphrase(m.w, m.h, m.provider.Name(), m.passForm)
	}
	if m.showTx {
		return m.renderTxPanel()
	}

	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	var pageContent string
	var nav string

	switch m.activePage {
	case config.PagePortal:
		pageContent = m.portalPage()
		nav = portalview.Nav(m.w-2, m.sess.Mode() == session.Connected, m.focus != focusList)

	case config.PageSettings:
		if m.showRPCDeleteDialog {
			return connect.RenderConfirm(m.w, m.h,
				"Are you sure you want to delete the RPC endpoint "+m.deleteRPCDialogName+"?",
				m.deleteRPCDialogYesSelected)
		}

		settingsContent := settings.Render(m.cfg, m.rpcURLs, m.selectedRPCIdx)
		if (m.settingsMode == "add" || m.settingsMode == "edit") && m.form != nil {
			settingsContent = styles.TitleStyle.Render("RPC Settings") + "\n\n" + m.form.View()
		}

		pageContent = panelStyle.Width(max(0, m.w-2)).Render(settingsContent)
		nav = settings.Nav(m.w-2, m.settingsMode)
	}

	sections := []string{headerPanel, pageContent, nav}
	if m.logEnabled {
		m.logViewport.Height = logview.Height(m.h)
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
