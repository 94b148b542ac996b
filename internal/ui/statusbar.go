package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"proximity-indicator.klederson.com/internal/supervisor"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, state supervisor.State, stats supervisor.Stats, edges int) string {
	status := StateBadge(state)

	info := fmt.Sprintf(" Connects: %d  Drops: %d  Failed: %d  Edges: %d",
		stats.Connects, stats.Disconnects, stats.ConnectFailures, edges)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

// StateBadge renders the link state as a colored tag.
func StateBadge(state supervisor.State) string {
	label := "[" + strings.ToUpper(state.String()) + "]"
	switch state {
	case supervisor.Streaming:
		return StyleStatusStreaming.Render(label)
	case supervisor.Connecting:
		return StyleStatusConnecting.Render(label)
	default:
		return StyleStatusDown.Render(label)
	}
}
