// Package watch renders a live gateway status view in the terminal.
package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/runtime"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// GatewayMsg delivers a gateway status update to the model.
type GatewayMsg gateway.Status

// RuntimeMsg delivers a runtime status update to the model.
type RuntimeMsg runtime.Status

// LogMsg delivers a gateway output line to the model.
type LogMsg string

const maxLogLines = 8

// Model is the bubbletea model for `claw gateway start`.
type Model struct {
	spinner  spinner.Model
	gateway  gateway.Status
	runtime  runtime.Status
	logs     []string
	width    int
	quitting bool
}

// New creates a watch model in the stopped state.
func New() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	return Model{
		spinner: sp,
		gateway: gateway.Stopped(),
		runtime: runtime.Checking(),
		width:   80,
	}
}

// WithRuntime returns a copy seeded with a runtime status known before the
// program starts. Program.Send cannot deliver messages until Run is
// receiving, so the initial snapshot travels in the model instead.
func (m Model) WithRuntime(st runtime.Status) Model {
	m.runtime = st
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case GatewayMsg:
		m.gateway = gateway.Status(msg)
		return m, nil

	case RuntimeMsg:
		m.runtime = runtime.Status(msg)
		return m, nil

	case LogMsg:
		m.logs = append(m.logs, string(msg))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Claw Gateway"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("runtime  "))
	b.WriteString(m.runtimeLine())
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("gateway  "))
	b.WriteString(m.gatewayLine())
	b.WriteString("\n")

	if len(m.logs) > 0 {
		b.WriteString("\n")

		for _, line := range m.logs {
			b.WriteString(labelStyle.Render("  | "))
			b.WriteString(runewidth.Truncate(line, max(m.width-6, 10), "…"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q to quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) runtimeLine() string {
	switch m.runtime.Phase {
	case runtime.PhaseInstalled:
		return runningStyle.Render(fmt.Sprintf("node %s", m.runtime.Version))
	case runtime.PhaseDownloading:
		return m.spinner.View() + pendingStyle.Render(fmt.Sprintf("downloading %.0f%%", m.runtime.Progress))
	case runtime.PhaseError:
		return errorStyle.Render(m.runtime.Error)
	default:
		return m.spinner.View() + pendingStyle.Render("checking")
	}
}

func (m Model) gatewayLine() string {
	switch m.gateway.State {
	case gateway.StateRunning:
		return runningStyle.Render(fmt.Sprintf("running at %s", m.gateway.URL))
	case gateway.StateStarting:
		return m.spinner.View() + pendingStyle.Render("starting")
	case gateway.StateError:
		return errorStyle.Render(m.gateway.Error)
	default:
		return labelStyle.Render("stopped")
	}
}
