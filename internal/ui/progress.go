package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages sent to the campaign view by the code driving the campaign.
type (
	// PhaseMsg starts a named step. The running step, if any, is done.
	PhaseMsg struct {
		Label string
	}

	// TestMsg reports a test invocation starting within an iteration.
	TestMsg struct {
		Test      string
		Iteration int
		Total     int
	}

	// IterationMsg reports a finished iteration.
	IterationMsg struct {
		Iteration int
		Total     int
		Elapsed   time.Duration
		Remaining time.Duration
	}

	// FinishedMsg ends the campaign view. Err is nil on success.
	FinishedMsg struct {
		Err     error
		Elapsed time.Duration
	}
)

type ProgressKeyMap struct {
	Interrupt key.Binding
}

var ProgressKeys = ProgressKeyMap{
	Interrupt: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "abort campaign"),
	),
}

type stepState int

const (
	stepRunning stepState = iota
	stepDone
	stepFailed
)

type step struct {
	label string
	state stepState
}

// Progress is the campaign view: finished steps, the running step with a
// spinner, and a progress bar over the iterations.
type Progress struct {
	title       string
	steps       []step
	spinner     spinner.Model
	bar         progress.Model
	test        string
	iteration   int
	total       int
	remaining   time.Duration
	width       int
	finished    bool
	err         error
	elapsed     time.Duration
	interrupted bool
	onInterrupt func()
}

// NewProgress returns the campaign view. onInterrupt is called once when the
// user asks to abort; the view keeps running until FinishedMsg arrives.
func NewProgress(title string, onInterrupt func()) Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = AccentStyle

	return Progress{
		title:       title,
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		onInterrupt: onInterrupt,
	}
}

func (m Progress) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-30, 10), 60)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, ProgressKeys.Interrupt) && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, nil

	case PhaseMsg:
		m.finishStep(stepDone)
		m.steps = append(m.steps, step{label: msg.Label})
		return m, nil

	case TestMsg:
		m.test = msg.Test
		m.iteration = msg.Iteration
		m.total = msg.Total
		return m, nil

	case IterationMsg:
		m.iteration = msg.Iteration + 1
		m.total = msg.Total
		m.remaining = msg.Remaining
		return m, nil

	case FinishedMsg:
		m.finished = true
		m.err = msg.Err
		m.elapsed = msg.Elapsed
		if msg.Err != nil {
			m.finishStep(stepFailed)
		} else {
			m.finishStep(stepDone)
			m.iteration = m.total
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Progress) finishStep(state stepState) {
	if n := len(m.steps); n > 0 && m.steps[n-1].state == stepRunning {
		m.steps[n-1].state = state
	}
}

// Percent is the fraction of iterations completed.
func (m Progress) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.iteration) / float64(m.total)
}

func (m Progress) View() string {
	var b strings.Builder
	b.WriteString(Title(m.title))
	b.WriteString("\n")

	for _, s := range m.steps {
		switch s.state {
		case stepDone:
			b.WriteString(StepDone(s.label, "OK"))
		case stepFailed:
			b.WriteString(StepFailed(s.label))
		default:
			b.WriteString(m.spinner.View() + StepRunning(s.label))
		}
		b.WriteString("\n")
	}

	if m.total > 0 {
		status := fmt.Sprintf("%d/%d", m.iteration, m.total)
		if m.test != "" && !m.finished {
			status += "  " + m.test
		}
		if m.remaining > 0 && !m.finished {
			status += "  " + DimStyle.Render("ETA "+m.remaining.Round(time.Second).String())
		}
		b.WriteString("   " + m.bar.ViewAs(m.Percent()) + " " + StatusBarStyle.Render(status))
		b.WriteString("\n")
	}

	switch {
	case m.finished && m.err != nil:
		b.WriteString("\n" + ErrorBadge("ABORTED") + " " + m.err.Error() + "\n")
	case m.finished:
		b.WriteString("\n" + SuccessBadge("DONE") + " campaign completed in " + m.elapsed.Round(time.Millisecond).String() + "\n")
	case m.interrupted:
		b.WriteString("\n" + WarningBadge("STOPPING") + " waiting for the current step\n")
	}
	return b.String()
}
