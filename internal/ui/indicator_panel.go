package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"proximity-indicator.klederson.com/internal/cadence"
	"proximity-indicator.klederson.com/internal/config"
	"proximity-indicator.klederson.com/internal/supervisor"
)

// IndicatorView is everything the indicator panel shows.
type IndicatorView struct {
	LED        bool
	State      supervisor.State
	HasReading bool
	Distance   float64
	Cadence    cadence.Cadence
	LastSeen   time.Time
	History    []float64
}

// RenderIndicatorPanel renders the virtual LED with the latest reading.
// The border lights up while the LED is on.
func RenderIndicatorPanel(v IndicatorView, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	lines := []string{
		StylePanelTitle.Render("INDICATOR"),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
		"",
	}
	lines = append(lines, renderLed(v.LED, innerW)...)
	lines = append(lines, "")

	distance := "--"
	cad := "off"
	last := "never"
	if v.HasReading {
		distance = formatDistance(v.Distance)
		cad = v.Cadence.String()
		last = formatLastSeen(v.LastSeen)
	}

	fields := []struct{ label, value string }{
		{"Link", StateBadge(v.State)},
		{"Distance", StyleValue.Render(distance)},
		{"Cadence", StyleValue.Render(cad)},
		{"Last", StyleValue.Render(last)},
	}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(fmt.Sprintf("  %-10s", f.label))+f.value)
	}
	lines = append(lines, "")

	barW := innerW - 14
	if barW < 10 {
		barW = 10
	}
	if v.HasReading {
		lines = append(lines, StyleLabel.Render("  Near     ")+renderProximityBar(v.Distance, barW))
	}

	if len(v.History) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, "", StyleLabel.Render("  Distance History:"))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(renderSparkline(v.History, sparkW)))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}

	style := StylePanelBorder
	if v.LED {
		style = StylePanelLit
	}
	return style.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

func renderLed(on bool, width int) []string {
	art := []string{
		"  .---.  ",
		" /     \\ ",
		"|   o   |",
		" \\     / ",
		"  '---'  ",
	}
	sty := StyleLedOff
	if on {
		sty = StyleLedOn
		art[2] = "|  ###  |"
	}
	pad := strings.Repeat(" ", max(0, (width-len(art[0]))/2))
	out := make([]string, len(art))
	for i, l := range art {
		out[i] = pad + sty.Render(l)
	}
	return out
}

func formatDistance(d float64) string {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return "invalid"
	}
	if d < 0 {
		return fmt.Sprintf("%.1fcm (invalid)", d)
	}
	return fmt.Sprintf("%.1fcm", d)
}

// renderProximityBar fills more of the bar the closer the target is.
// Readings outside the blink table render empty.
func renderProximityBar(distance float64, width int) string {
	limit := config.Thresholds[len(config.Thresholds)-1].Below
	ratio := 1 - distance/limit
	if math.IsNaN(ratio) || distance < 0 || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := lipgloss.NewStyle().Foreground(proximityColor(ratio)).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func proximityColor(ratio float64) lipgloss.Color {
	switch {
	case ratio > 0.75:
		return ColorError
	case ratio > 0.5:
		return ColorWarning
	default:
		return ColorGreen
	}
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	// Find min/max for scaling
	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	// Take last `width` values
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}

func formatLastSeen(t time.Time) string {
	d := time.Since(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
