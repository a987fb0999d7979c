package main

import "github.com/charmbracelet/lipgloss"

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	mutedGray  = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(mintGreen)
	errorStyle  = lipgloss.NewStyle().Foreground(salmonPink)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedGray)
)
