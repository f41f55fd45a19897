package log

import (
	"fmt"

	"wave-portal-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Height returns the number of log lines that fit on a screen of the given height.
// Header, nav, title and borders take about ten lines; the panel never takes more
// than a third of the screen or 15 lines.
func Height(screenHeight int) int {
	available := max(5, screenHeight-10)
	return min(available, min(screenHeight/3, 15))
}

// Render renders the log panel
func Render(width, height int, logReady bool, logSpinnerView string, vp viewport.Model) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")

	logPanelHeight := Height(height)
	vp.Height = logPanelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(max(0, width-2)).
		Height(logPanelHeight + 2)

	if !logReady {
		return border.Render(title + "\n\n" + "initializing...\n" + logSpinnerView)
	}

	if vp.TotalLineCount() > vp.Height {
		title += styles.Muted(fmt.Sprintf(" [%d%%] pgup/pgdn", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + "\n\n" + vp.View())
}
