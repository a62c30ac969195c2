package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("105")
	colorAccent  = lipgloss.Color("180")
	colorText    = lipgloss.Color("252")
	colorTextDim = lipgloss.Color("243")
	colorError   = lipgloss.Color("203")

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	promptKeyStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)
)
