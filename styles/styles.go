package styles

import "github.com/charmbracelet/lipgloss"

// Theme colors
var (
	CBg      = lipgloss.Color("#0B0F14") // near-black
	CPanel   = lipgloss.Color("#0F1720") // slightly lighter
	CBorder  = lipgloss.Color("#874BFD")
	CMuted   = lipgloss.Color("#8AA0B6")
	CText    = lipgloss.Color("#D6E2F0")
	CAccent  = lipgloss.Color("#7EE787") // green-ish
	CAccent2 = lipgloss.Color("#79C0FF") // blue-ish
	CWarn    = lipgloss.Color("#FFA657") // orange
	CError   = lipgloss.Color("#FF5F56")
)

// Shared styles
var (
	AppStyle = lipgloss.NewStyle().
			Background(CBg).
			Foreground(CText)

	TitleStyle = lipgloss.NewStyle().
			Foreground(CAccent2).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(CBorder).
			Padding(1, 2)

	NavStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(CBorder).
			Padding(0, 1)

	HotkeyKeyStyle = lipgloss.NewStyle().
			Foreground(CAccent).
			Bold(true)

	DialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 0)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Background(lipgloss.Color("#888B7E")).
			Padding(0, 3).
			MarginTop(1)

	ActiveButtonStyle = ButtonStyle.
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(lipgloss.Color("#F25D94")).
				Underline(true)
)

// Key renders a key with accent styling
func Key(s string) string {
	return HotkeyKeyStyle.Render(s)
}

// Muted renders s in the muted foreground
func Muted(s string) string {
	return lipgloss.NewStyle().Foreground(CMuted).Render(s)
}
