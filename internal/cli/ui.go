package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	styleName    = lipgloss.NewStyle().Foreground(colorCyan)
	styleValue   = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleAgg     = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	stylePrecise = lipgloss.NewStyle().Foreground(colorGreen)
	styleApprox  = lipgloss.NewStyle().Foreground(colorAmber)
)
