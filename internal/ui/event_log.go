package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// EventLine is one mirrored log entry.
type EventLine struct {
	Level logrus.Level
	Text  string
}

// RenderEventLog renders the newest log lines, oldest first.
func RenderEventLog(lines []EventLine, width, height int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	out := []string{
		StylePanelTitle.Render("EVENTS"),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}
	room := innerH - len(out)

	if len(lines) == 0 {
		out = append(out, StyleHelp.Render(" Waiting for sensor..."))
	} else {
		start := 0
		if len(lines) > room {
			start = len(lines) - room
		}
		for _, l := range lines[start:] {
			out = append(out, styleFor(l.Level).Render(truncRaw(l.Text, innerW)))
		}
	}

	for len(out) < innerH {
		out = append(out, "")
	}
	if len(out) > innerH {
		out = out[:innerH]
	}
	return StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(out, "\n"))
}

func styleFor(lv logrus.Level) lipgloss.Style {
	switch {
	case lv <= logrus.ErrorLevel:
		return StyleLogError
	case lv == logrus.WarnLevel:
		return StyleLogWarn
	default:
		return StyleLabel
	}
}

func truncRaw(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "~"
}
