package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the display state of a single pipeline step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepDone
	StepSkipped
	StepWarned
	StepFailed
)

// StepUpdateMsg updates the status of a named step. Send it to a running
// StepList program from the goroutine driving the pipeline.
type StepUpdateMsg struct {
	Name   string
	Status StepStatus
	Detail string // optional, rendered muted after the label
}

// StepsDoneMsg tells the StepList program to quit.
type StepsDoneMsg struct{}

// stepItem is a single row in the step list.
type stepItem struct {
	name   string
	status StepStatus
	detail string
}

// StepList is a Bubble Tea model that renders a fixed list of pipeline
// steps with live status updates. It is driven entirely by messages so
// it can be tested without a terminal.
type StepList struct {
	spinner spinner.Model
	steps   []stepItem
}

// stepSpinnerFrames keeps the standalone CLI spinner and the Bubble Tea
// step list visually consistent.
var stepSpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// NewStepList creates a step list with all steps pending, in order.
func NewStepList(names []string) StepList {
	sp := spinner.New()
	sp.Spinner = stepSpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	steps := make([]stepItem, len(names))
	for i, name := range names {
		steps[i] = stepItem{name: name, status: StepPending}
	}

	return StepList{spinner: sp, steps: steps}
}

// Init starts the spinner tick.
func (m StepList) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles step status messages and spinner ticks.
func (m StepList) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepUpdateMsg:
		for i := range m.steps {
			if m.steps[i].name == msg.Name {
				m.steps[i].status = msg.Status
				m.steps[i].detail = msg.Detail
				break
			}
		}
		return m, nil

	case StepsDoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders one line per step.
func (m StepList) View() string {
	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	for _, step := range m.steps {
		var symbol string
		switch step.status {
		case StepRunning:
			symbol = m.spinner.View()
		case StepDone:
			symbol = successStyle.Render(SymbolSuccess)
		case StepSkipped:
			symbol = warnStyle.Render(SymbolSkipped)
		case StepWarned:
			symbol = warnStyle.Render(SymbolWarn)
		case StepFailed:
			symbol = errorStyle.Render(SymbolFail)
		default:
			symbol = mutedStyle.Render(SymbolPending)
		}

		b.WriteString(fmt.Sprintf("%s %s", symbol, step.name))
		if step.detail != "" {
			b.WriteString(" " + mutedStyle.Render("("+step.detail+")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Statuses returns the current status of every step, in order.
// Exposed for tests and summary output.
func (m StepList) Statuses() []StepStatus {
	out := make([]StepStatus, len(m.steps))
	for i, s := range m.steps {
		out[i] = s.status
	}
	return out
}
