package main

import "github.com/charmbracelet/lipgloss"

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF41")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#aaaaaa"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D4AA")).Bold(true)
)
