// Package tui renders generation watches as an interactive terminal
// view: a spinner and live status while the server works, the outcome
// once the job settles.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ideafeed/ideafeed-cli/internal/poll"
)

// JobUpdate is one observed tick of a watched generation, shaped for
// display rather than for the API types.
type JobUpdate struct {
	Kind     string // "feed", "article", "meme", "video"
	ID       string
	Status   poll.Status
	Attempts int
	Err      error
	Done     bool
	Detail   []string
}

// watchDoneMsg signals that the watcher goroutine has finished.
type watchDoneMsg struct {
	err error
}

// Model is the Bubble Tea model for a single generation watch.
type Model struct {
	styles  Styles
	spinner spinner.Model

	started time.Time
	latest  JobUpdate
	done    bool
	err     error
}

// NewModel creates a watch model.
func NewModel(kind, id string) Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		styles:  styles,
		spinner: sp,
		started: time.Now(),
		latest:  JobUpdate{Kind: kind, ID: id, Status: poll.StatusQueued},
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case JobUpdate:
		m.latest = msg
		if msg.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case watchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("%s %s", m.latest.Kind, m.latest.ID)))
	b.WriteString("\n")

	status := string(m.latest.Status)
	if status == "" {
		status = "starting"
	}
	statusLine := m.styles.ForStatus(m.latest.Status).Render(status)

	if m.done {
		b.WriteString(statusLine)
	} else {
		b.WriteString(fmt.Sprintf("%s %s  %s", m.spinner.View(), statusLine,
			m.styles.Muted.Render(elapsed(m.started, m.latest.Attempts))))
	}
	b.WriteString("\n")

	if m.latest.Err != nil && !m.done {
		b.WriteString(m.styles.Warning.Render("last fetch: " + m.latest.Err.Error()))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(m.styles.Danger.Render(m.err.Error()))
		b.WriteString("\n")
	}

	for _, line := range m.latest.Detail {
		b.WriteString("  " + line)
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString(m.styles.Muted.Render("q to stop watching"))
		b.WriteString("\n")
	}

	return b.String()
}

func elapsed(since time.Time, attempts int) string {
	d := time.Since(since).Round(time.Second)
	return fmt.Sprintf("%s, %d checks", d, attempts)
}

// Run drives a watch to completion under the TUI. The start function
// performs the actual watch, reporting ticks through the observer; its
// error (nil on success) is returned after the view exits. Quitting the
// view cancels the watch through ctx.
func Run(ctx context.Context, kind, id string, start func(ctx context.Context, observe func(JobUpdate)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(kind, id), tea.WithContext(ctx))

	errs := make(chan error, 1)
	go func() {
		err := start(ctx, func(u JobUpdate) { p.Send(u) })
		errs <- err
		p.Send(watchDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch display failed: %w", err)
	}
	cancel()

	err := <-errs
	if err != nil && ctx.Err() != nil {
		// the user quit; a cancellation error from the watch is expected
		return nil
	}
	return err
}
