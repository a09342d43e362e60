// Package tui renders a live progress view for a running extraction: a stats
// box, a gradient progress bar, and an esc-to-stop confirmation.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/biztap/internal/engine/session"
	"github.com/rendis/biztap/internal/model"
	"github.com/rendis/biztap/internal/tui/styles"
)

type progressMsg model.Progress

type completeMsg struct {
	session *model.Session
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the progress view. The stop function is the only channel back
// into the engine; everything else arrives as messages.
type Model struct {
	params    model.ExtractParams
	bar       progress.Model
	stop      func()
	startTime time.Time

	latest      model.Progress
	final       *model.Session
	done        bool
	confirmStop bool
	stopping    bool
}

func newModel(params model.ExtractParams, stop func()) Model {
	return Model{
		params: params,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
		),
		stop:      stop,
		startTime: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.stop()
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, tea.Quit
			}
			if m.confirmStop {
				// Second esc: actually stop; the terminal event quits the view.
				m.confirmStop = false
				m.stopping = true
				m.stop()
				return m, nil
			}
			m.confirmStop = true
			return m, nil
		case "enter", "q":
			if m.done {
				return m, tea.Quit
			}
		}
		if m.confirmStop {
			m.confirmStop = false
		}
	case progressMsg:
		m.latest = model.Progress(msg)
		return m, nil
	case completeMsg:
		m.done = true
		m.final = msg.session
		return m, nil
	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	var bm tea.Model
	bm, cmd = m.bar.Update(msg)
	m.bar = bm.(progress.Model)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Extracting: %q", m.params.Query)
	if m.params.Location != "" {
		title += " in " + m.params.Location
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n\n")

	b.WriteString(styles.StatsBox.Render(m.renderStats()))
	b.WriteString("\n\n")

	var pct float64
	if m.latest.Total > 0 {
		pct = float64(m.latest.Current) / float64(m.latest.Total)
	}
	if pct > 1 {
		pct = 1 // the total is only an estimate
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done:
		b.WriteString(m.renderFinal())
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter close"))
	case m.stopping:
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render("Stopping after the current pass..."))
	case m.confirmStop:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the extraction"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c quit"))
	}

	return b.String()
}

func (m Model) renderStats() string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(styles.Label.Render(label))
		sb.WriteString(styles.Value.Render(value))
		sb.WriteString("\n")
	}

	row("Found:", fmt.Sprintf("%d/%d", m.latest.Current, m.latest.Total))
	if m.latest.ScrollAttempts > 0 {
		sb.WriteString(styles.Label.Render("Dry scrolls:"))
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).
			Render(fmt.Sprintf("%d", m.latest.ScrollAttempts)))
		sb.WriteString("\n")
	}
	row("Elapsed:", time.Since(m.startTime).Truncate(time.Second).String())
	return sb.String()
}

func (m Model) renderFinal() string {
	s := m.final
	switch s.Status {
	case model.StatusError:
		return styles.ErrorText.Render("Error: " + s.Error)
	case model.StatusStopped:
		return lipgloss.NewStyle().Foreground(styles.Warning).Bold(true).
			Render(fmt.Sprintf("Stopped. %d businesses, %d phone numbers kept",
				s.BusinessesFound, s.PhoneNumbersFound))
	default:
		return lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
			Render(fmt.Sprintf("Complete! %d businesses, %d phone numbers",
				s.BusinessesFound, s.PhoneNumbersFound))
	}
}

// Run drives one extraction under the progress view and returns the terminal
// session. The view exits when the session does, or when the operator quits.
func Run(ctx context.Context, mgr *session.Manager, params model.ExtractParams) (*model.Session, error) {
	m := newModel(params, mgr.Stop)
	p := tea.NewProgram(m)

	_, err := mgr.Start(ctx, params, session.RunOptions{
		OnProgress: func(pr model.Progress) { p.Send(progressMsg(pr)) },
		OnComplete: func(s *model.Session) { p.Send(completeMsg{session: s}) },
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.Run(); err != nil {
		mgr.Stop()
		mgr.Wait()
		return nil, err
	}

	// Ctrl+c quits the view before the terminal event lands.
	mgr.Wait()
	final, _ := mgr.Status()
	return &final, nil
}
