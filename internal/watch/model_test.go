package watch

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/runtime"
)

func TestUpdate_GatewayStatus(t *testing.T) {
	m := New()

	updated, _ := m.Update(GatewayMsg(gateway.Running(18789, "tok")))
	model := updated.(Model)

	if model.gateway.State != gateway.StateRunning {
		t.Errorf("gateway state = %q, want running", model.gateway.State)
	}

	view := model.View()
	if !strings.Contains(view, "ws://127.0.0.1:18789") {
		t.Errorf("view should show gateway URL, got:\n%s", view)
	}
}

func TestWithRuntime_SeedsInitialStatus(t *testing.T) {
	m := New().WithRuntime(runtime.Installed("22.13.1", "/opt/node", "/opt/npx"))

	view := m.View()
	if !strings.Contains(view, "22.13.1") {
		t.Errorf("view should show the seeded runtime version, got:\n%s", view)
	}
}

func TestUpdate_RuntimeProgress(t *testing.T) {
	m := New()

	updated, _ := m.Update(RuntimeMsg(runtime.Downloading(42)))
	model := updated.(Model)

	view := model.View()
	if !strings.Contains(view, "42%") {
		t.Errorf("view should show download progress, got:\n%s", view)
	}
}

func TestUpdate_QuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		t.Run(key, func(t *testing.T) {
			m := New()

			var msg tea.KeyMsg
			switch key {
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
			}

			updated, cmd := m.Update(msg)
			model := updated.(Model)

			if !model.quitting {
				t.Errorf("key %q should set quitting", key)
			}

			if cmd == nil {
				t.Errorf("key %q should return tea.Quit", key)
			}
		})
	}
}

func TestUpdate_LogLinesCapped(t *testing.T) {
	m := New()

	var model tea.Model = m

	for i := 0; i < maxLogLines+5; i++ {
		model, _ = model.Update(LogMsg("line"))
	}

	got := model.(Model)
	if len(got.logs) != maxLogLines {
		t.Errorf("logs length = %d, want %d", len(got.logs), maxLogLines)
	}
}

func TestView_ErrorState(t *testing.T) {
	m := New()

	updated, _ := m.Update(GatewayMsg(gateway.Errored("spawn failed")))
	view := updated.(Model).View()

	if !strings.Contains(view, "spawn failed") {
		t.Errorf("view should show error, got:\n%s", view)
	}
}
