package ui

import "github.com/charmbracelet/lipgloss"

// Matrix color palette
var (
	ColorMatrixGreen = lipgloss.Color("#00FF41")
	ColorGreen       = lipgloss.Color("#00CC33")
	ColorMidGreen    = lipgloss.Color("#008F11")
	ColorDimGreen    = lipgloss.Color("#004A0A")
	ColorBorderNorm  = lipgloss.Color("#00AA22")
	ColorBorderLit   = lipgloss.Color("#FFAA00")
	ColorLedOn       = lipgloss.Color("#FFCC00")
	ColorLedOff      = lipgloss.Color("#333333")
	ColorError       = lipgloss.Color("#FF3300")
	ColorWarning     = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusStreaming = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusConnecting = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStatusDown = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelLit = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorderLit)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleLedOn = lipgloss.NewStyle().
			Foreground(ColorLedOn).
			Bold(true)

	StyleLedOff = lipgloss.NewStyle().
			Foreground(ColorLedOff)

	StyleSeparator = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleLogWarn = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleLogError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)
