package connect

import (
	"errors"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// TempPassphrase stores the passphrase typed into the unlock form
var TempPassphrase string

var errPassphraseRequired = errors.New("passphrase is required")

// CreatePassphraseForm creates the masked keystore unlock form
func CreatePassphraseForm(keystoreDir string) *huh.Form {
	TempPassphrase = ""

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keystore Passphrase").
				Description("Unlocks the first account in " + keystoreDir).
				EchoMode(huh.EchoModePassword).
				Value(&TempPassphrase).
				Validate(func(s string) error {
					if s == "" {
						return errPassphraseRequired
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())
}

// RenderPassphrase renders the unlock form centered on screen
func RenderPassphrase(width, height int, walletName string, form *huh.Form) string {
	title := styles.TitleStyle.Render("Connect " + walletName)
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", form.View(), "",
		styles.Muted("Enter: unlock • Esc: cancel"))

	dialog := styles.DialogBoxStyle.Padding(1, 2).Width(min(70, max(30, width-4))).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dialog)
}

// RenderAlert renders a blocking message with a single OK button
func RenderAlert(width, height int, text string) string {
	msg := helpers.FadeString(text, "#F25D94", "#EDFF82")
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)
	ok := styles.ActiveButtonStyle.Render("OK")

	ui := lipgloss.JoinVertical(lipgloss.Center, question, ok)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styles.DialogBoxStyle.Render(ui))
}

// RenderConfirm renders a yes/no dialog; yes selects the highlighted button
func RenderConfirm(width, height int, text string, yes bool) string {
	msg := helpers.FadeString(text, "#F25D94", "#EDFF82")
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	var okButton, cancelButton string
	if yes {
		okButton = styles.ActiveButtonStyle.MarginRight(2).Render("Yes")
		cancelButton = styles.ButtonStyle.Render("No")
	} else {
		okButton = styles.ButtonStyle.MarginRight(2).Render("Yes")
		cancelButton = styles.ActiveButtonStyle.Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, buttons)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, styles.DialogBoxStyle.Render(ui))
}
