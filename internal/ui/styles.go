package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	status    lipgloss.Style
	notice    lipgloss.Style
	errorText lipgloss.Style
	hint      lipgloss.Style
	spinner   lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
	pink := lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F5C2E7"}
	muted := lipgloss.AdaptiveColor{Light: "#6C6F85", Dark: "#A6ADC8"}

	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		user:      lipgloss.NewStyle().Bold(true).Foreground(pink),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(accent),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#EFF1F5", Dark: "#1E1E2E"}).
			Background(accent).
			Padding(0, 1),
		notice:    lipgloss.NewStyle().Foreground(muted),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}),
		hint:      lipgloss.NewStyle().Foreground(muted).Italic(true),
		spinner:   lipgloss.NewStyle().Foreground(pink),
	}
}
