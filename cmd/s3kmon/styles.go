package main

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginTop(1)

	selectedSlotStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("212")).
				Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Padding(0, 1)

	faultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
)

func formatActivity(pid uint16, hart, sys int, code string) string {
	return dimStyle.Render("pid=") + strconv.Itoa(int(pid)) +
		dimStyle.Render(" hart=") + strconv.Itoa(hart) +
		dimStyle.Render(" sys=") + strconv.Itoa(sys) +
		dimStyle.Render(" -> ") + code
}
