package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ideafeed/ideafeed-cli/internal/poll"
)

// Styles holds the lipgloss styles for the watch view.
type Styles struct {
	Title   lipgloss.Style
	Spinner lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Danger  lipgloss.Style

	statusStyles map[poll.Status]lipgloss.Style
	statusOther  lipgloss.Style
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() Styles {
	var (
		green  = lipgloss.Color("42")
		yellow = lipgloss.Color("220")
		red    = lipgloss.Color("196")
		blue   = lipgloss.Color("39")
		gray   = lipgloss.Color("241")
	)

	active := lipgloss.NewStyle().Foreground(blue)
	ready := lipgloss.NewStyle().Foreground(green).Bold(true)

	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Spinner: lipgloss.NewStyle().Foreground(blue),
		Muted:   lipgloss.NewStyle().Foreground(gray),
		Warning: lipgloss.NewStyle().Foreground(yellow),
		Danger:  lipgloss.NewStyle().Foreground(red).Bold(true),

		statusStyles: map[poll.Status]lipgloss.Style{
			poll.StatusQueued:       lipgloss.NewStyle().Foreground(gray),
			poll.StatusRunning:      active,
			poll.StatusGenerating:   active,
			poll.StatusPartialReady: lipgloss.NewStyle().Foreground(yellow).Bold(true),
			poll.StatusComplete:     ready,
			poll.StatusReady:        ready,
			poll.StatusFailed:       lipgloss.NewStyle().Foreground(red).Bold(true),
		},
		statusOther: lipgloss.NewStyle().Foreground(gray),
	}
}

// ForStatus returns the style for a job status.
func (s Styles) ForStatus(status poll.Status) lipgloss.Style {
	if style, ok := s.statusStyles[status]; ok {
		return style
	}
	return s.statusOther
}
