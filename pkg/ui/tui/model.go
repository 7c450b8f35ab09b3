// Package tui renders a running scrape as a live terminal view: a spinner
// with the current step, a bar for article fetching and the latest progress
// lines.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLines = 6

var (
	neonCyan  = lipgloss.Color("#00FFFF")
	neonGreen = lipgloss.Color("#39FF14")
	hotPink   = lipgloss.Color("#FF1493")
	dimGray   = lipgloss.Color("#6C6C6C")

	stepStyle  = lipgloss.NewStyle().Bold(true).Foreground(neonCyan)
	lineStyle  = lipgloss.NewStyle().Foreground(dimGray)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(neonGreen)
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(hotPink)
	countStyle = lipgloss.NewStyle().Foreground(neonCyan)
)

// StepMsg is a progress line from the pipeline
type StepMsg string

// ArticlesMsg reports how many article URLs have settled
type ArticlesMsg struct {
	Done  int
	Total int
}

// DoneMsg ends the view. Err is the run's result.
type DoneMsg struct {
	Err error
}

// Model is the bubbletea model for one run
type Model struct {
	spinner  spinner.Model
	bar      progress.Model
	cancel   context.CancelFunc
	step     string
	lines    []string
	done     int
	total    int
	stopping bool
	finished bool
	err      error
}

// NewModel creates a model. cancel is called when the user presses ctrl+c;
// the view stays up until the run reports DoneMsg.
func NewModel(cancel context.CancelFunc) Model {
	return Model{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(neonCyan)),
		),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel: cancel,
		step:   "Starting...",
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.stopping {
			m.stopping = true
			m.step = "Stopping: waiting for running fetches..."
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case StepMsg:
		line := strings.TrimPrefix(string(msg), "[SCRAPER] ")
		if !m.stopping {
			m.step = line
		}
		m.lines = append(m.lines, line)
		if len(m.lines) > maxLines {
			m.lines = m.lines[len(m.lines)-maxLines:]
		}
		return m, nil

	case ArticlesMsg:
		m.done, m.total = msg.Done, msg.Total
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Percent is the share of article URLs settled so far
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m Model) View() string {
	var b strings.Builder

	switch {
	case m.finished && m.err != nil:
		b.WriteString(errStyle.Render("✗ " + m.err.Error()))
	case m.finished:
		b.WriteString(okStyle.Render("✓ Scrape finished"))
	default:
		b.WriteString(m.spinner.View() + " " + stepStyle.Render(m.step))
	}
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(m.bar.ViewAs(m.Percent()))
		b.WriteString(" " + countStyle.Render(fmt.Sprintf("%d/%d articles", m.done, m.total)))
		b.WriteString("\n\n")
	}

	for _, l := range m.lines {
		b.WriteString(lineStyle.Render("  "+l) + "\n")
	}
	if !m.finished && !m.stopping {
		b.WriteString(lineStyle.Render("\nctrl+c to stop after running fetches") + "\n")
	}
	return b.String()
}
