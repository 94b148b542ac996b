package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the indicator panel and event log horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, indicator, events, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, indicator, events)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}
