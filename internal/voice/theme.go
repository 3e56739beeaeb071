package voice

import "github.com/charmbracelet/lipgloss"

var (
	Cyan      = lipgloss.Color("#00D4AA")
	Green     = lipgloss.Color("#00FF41")
	DarkGreen = lipgloss.Color("#008F11")
	White     = lipgloss.Color("#e0e0e0")
	Amber     = lipgloss.Color("#FFD700")

	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(Cyan).
				Bold(true)

	AssistantMsgStyle = lipgloss.NewStyle().
				Foreground(White)

	PromptStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Amber)
)
