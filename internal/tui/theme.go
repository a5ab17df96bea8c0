package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha subset.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
)

const (
	colorBrand   = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorBrand)
	tabStyle       = lipgloss.NewStyle().Foreground(colorOverlay1).Padding(0, 2)
	activeTabStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface1).Bold(true).Padding(0, 2)
	labelStyle     = lipgloss.NewStyle().Foreground(colorOverlay1)
	focusStyle     = lipgloss.NewStyle().Foreground(colorFocus).Bold(true)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(colorOverlay1).Background(colorSurface0).Padding(0, 2)
	successStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle      = lipgloss.NewStyle().Foreground(colorInfo)
)
