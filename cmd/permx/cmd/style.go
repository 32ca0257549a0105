package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("245"))
	grantedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	deniedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// field renders one "label value" line of a summary.
func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// list renders ids comma separated, or a dimmed "none".
func list(ids []string, style lipgloss.Style) string {
	if len(ids) == 0 {
		return dimStyle.Render("none")
	}
	return style.Render(strings.Join(ids, ", "))
}
