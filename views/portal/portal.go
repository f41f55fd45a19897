package portal

import (
	"fmt"
	"strings"
	"time"

	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// DisabledHint is shown under the wave button while the message is empty
const DisabledHint = "type a message to wave"

// DisabledButtonStyle renders the wave button while it cannot be pressed
var DisabledButtonStyle = lipgloss.NewStyle().
	Foreground(styles.CMuted).
	Background(styles.CBg).
	Padding(0, 3).
	MarginTop(1)

// Panel holds what the left portal panel shows
type Panel struct {
	Connected   bool
	Connecting  bool
	WalletName  string
	Account     string
	TotalCount  uint64
	Balance     string
	BalanceAt   time.Time
	InputView   string
	CanSubmit   bool
	ButtonFocus bool
	Sending     int
	SpinnerView string
}

// Render renders the greeting, connect button or wave form
func Render(p Panel) string {
	lines := []string{
		styles.TitleStyle.Render("👋 Hey there!"),
		"",
		lipgloss.NewStyle().Foreground(styles.CText).Render("Connect your Ethereum wallet and wave to me!"),
		"",
	}

	if !p.Connected {
		btn := styles.ActiveButtonStyle.Render("Connect Wallet")
		if p.Connecting {
			btn = styles.ButtonStyle.Render(p.SpinnerView + " Connecting…")
		}
		lines = append(lines, btn)
		if p.WalletName != "" {
			lines = append(lines, "", styles.Muted("wallet: "+p.WalletName))
		}
		return strings.Join(lines, "\n")
	}

	count := lipgloss.NewStyle().Foreground(styles.CAccent).Bold(true).Render(fmt.Sprintf("%d", p.TotalCount))
	lines = append(lines,
		"Total Waves count: "+count,
		styles.Muted("account: ")+helpers.FadeString(helpers.ShortenAddr(p.Account), "#F25D94", "#EDFF82"),
	)
	if p.Balance != "" {
		lines = append(lines, styles.Muted("balance: ")+p.Balance+" "+styles.Muted("@ "+p.BalanceAt.Format("15:04:05")))
	}
	lines = append(lines, "", p.InputView)

	var btn string
	switch {
	case !p.CanSubmit:
		btn = DisabledButtonStyle.Render("Wave to Me") + "\n" + styles.Muted(DisabledHint)
	case p.ButtonFocus:
		btn = styles.ActiveButtonStyle.Render("Wave to Me")
	default:
		btn = styles.ButtonStyle.Render("Wave to Me")
	}
	lines = append(lines, btn)

	if p.Sending > 0 {
		lines = append(lines, "", p.SpinnerView+fmt.Sprintf(" Sending %d wave(s)…", p.Sending))
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar for the portal page
func Nav(width int, connected, typing bool) string {
	var keys []string
	switch {
	case typing:
		keys = []string{
			styles.Key("Enter") + " wave",
			styles.Key("Tab") + " button",
			styles.Key("Esc") + " back",
		}
	case connected:
		keys = []string{
			styles.Key("↑/↓") + " select",
			styles.Key("i") + " write",
			styles.Key("c") + " copy sender",
			styles.Key("r") + " refresh",
			styles.Key("t") + " last tx",
			styles.Key("d") + " disconnect",
			styles.Key("s") + " settings",
			styles.Key("l") + " logger",
			styles.Key("q") + " quit",
		}
	default:
		keys = []string{
			styles.Key("Enter") + " connect wallet",
			styles.Key("s") + " settings",
			styles.Key("l") + " logger",
			styles.Key("q") + " quit",
		}
	}
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}
