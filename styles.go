package main

import (
	"wave-portal-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- THEME (Lip Gloss) --------------------
// Styles come from the styles package

var (
	cBorder  = styles.CBorder
	cMuted   = styles.CMuted
	cText    = styles.CText
	cAccent  = styles.CAccent
	cAccent2 = styles.CAccent2
	cWarn    = styles.CWarn
	cError   = styles.CError

	appStyle    = styles.AppStyle
	panelStyle  = styles.PanelStyle
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	okStyle     = lipgloss.NewStyle().Foreground(cAccent).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(cError).Bold(true)
	statusStyle = lipgloss.NewStyle().Bold(true)
)
