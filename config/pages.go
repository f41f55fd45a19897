package config

// Page identifies the page currently shown by the TUI.
type Page int

const (
	PagePortal Page = iota
	PageSettings
)
