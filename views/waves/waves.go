package waves

import (
	"fmt"
	"strings"

	"wave-portal-tui/portal"
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// cardHeight is the number of lines one wave card takes, blank line included
const cardHeight = 4

// Window returns the [start, end) range of cards that fit in height lines
// while keeping selected visible
func Window(total, selected, height int) (int, int) {
	visible := max(1, height/cardHeight)
	if total <= visible {
		return 0, total
	}
	start := max(0, selected-visible/2)
	end := start + visible
	if end > total {
		end = total
		start = end - visible
	}
	return start, end
}

// Render renders the list of waves as cards
func Render(ws []portal.Wave, selected, height int, loading bool, spinnerView, copiedMsg string) string {
	title := styles.TitleStyle.Render("Waves")
	if len(ws) > 0 {
		title += styles.Muted(fmt.Sprintf(" (%d)", len(ws)))
	}
	lines := []string{title, ""}

	if loading {
		lines = append(lines, spinnerView+" Loading waves…")
		return strings.Join(lines, "\n")
	}
	if len(ws) == 0 {
		lines = append(lines, styles.Muted("No waves yet."))
		return strings.Join(lines, "\n")
	}

	labelStyle := lipgloss.NewStyle().Foreground(styles.CMuted)
	textStyle := lipgloss.NewStyle().Foreground(styles.CText)

	start, end := Window(len(ws), selected, height-4)
	for i := start; i < end; i++ {
		w := ws[i]
		marker := "  "
		addrStyle := textStyle
		if i == selected {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
			addrStyle = addrStyle.Foreground(styles.CAccent2).Bold(true)
		}
		lines = append(lines,
			marker+labelStyle.Render("Address: ")+addrStyle.Render(w.Address.Hex()),
			"  "+labelStyle.Render("Time:    ")+textStyle.Render(w.Date),
			"  "+labelStyle.Render("Message: ")+textStyle.Render(w.Message),
			"",
		)
	}
	if end < len(ws) || start > 0 {
		lines = append(lines, styles.Muted(fmt.Sprintf("%d-%d of %d", start+1, end, len(ws))))
	}

	if copiedMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CAccent).Bold(true).Render(copiedMsg))
	}
	return strings.Join(lines, "\n")
}
