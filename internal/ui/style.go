package ui

import "github.com/charmbracelet/lipgloss"

// PanelStyle is the framed box used by Panel and the TUI.
func PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(current.Border).
		BorderForeground(current.BorderColor).
		Padding(0, 1)
}
