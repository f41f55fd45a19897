package settings

import (
	"strings"
	"time"

	"wave-portal-tui/config"
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for settings view
func Nav(width int, settingsMode string) string {
	var left string
	if settingsMode == "add" || settingsMode == "edit" {
		left = strings.Join([]string{
			styles.Key("Enter") + " save",
			styles.Key("Esc") + " cancel",
		}, "   ")
	} else {
		left = strings.Join([]string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("e") + " edit",
			styles.Key("x") + " delete",
			styles.Key("l") + " logger",
			styles.Key("Esc") + " portal",
		}, "   ")
	}

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the RPC endpoint list and the contract the portal talks to
func Render(cfg config.Config, rpcURLs []config.RPCUrl, selectedIdx int) string {
	h := styles.TitleStyle.Render("Settings")
	lines := []string{h, ""}

	label := lipgloss.NewStyle().Foreground(styles.CMuted)
	value := lipgloss.NewStyle().Foreground(styles.CText)
	lines = append(lines,
		label.Render("Contract:      ")+helpers.FadeString(cfg.Contract, "#7EE787", "#82CFFD"),
		label.Render("Explorer:      ")+value.Render(cfg.ExplorerURL),
		label.Render("Poll interval: ")+value.Render(time.Duration(cfg.PollInterval).String()),
		"",
	)

	if len(rpcURLs) == 0 {
		lines = append(lines, styles.Muted("No RPC URLs configured."))
		lines = append(lines, "")
		lines = append(lines, styles.Muted("Press ")+styles.Key("a")+styles.Muted(" to add your first RPC URL."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, styles.Muted("RPC Endpoints:"), "")
	for i, rpc := range rpcURLs {
		var marker string
		if rpc.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
		} else {
			marker = styles.Muted("○ ")
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		urlStyle := lipgloss.NewStyle().Foreground(styles.CMuted)

		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
		}

		transport := "poll"
		if strings.HasPrefix(rpc.URL, "ws") {
			transport = "live"
		}
		lines = append(lines, marker+nameStyle.Render(rpc.Name)+styles.Muted(" ["+transport+"]"))
		lines = append(lines, "  "+urlStyle.Render(rpc.URL))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
