package dashboard

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/premid/pmd/pkg/registry"
	"github.com/premid/pmd/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCompiler struct{}

func (nopCompiler) Start(context.Context) error { return nil }
func (nopCompiler) Stop() error                 { return nil }

func openAll(t *testing.T, names ...string) (*registry.Registry, []*registry.Handle) {
	t.Helper()
	reg := registry.New(func(string, *sink.Terminal) (registry.Compiler, error) {
		return nopCompiler{}, nil
	}, nil)
	var handles []*registry.Handle
	for _, name := range names {
		h, _, err := reg.Open(context.Background(), name)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	t.Cleanup(func() { _ = reg.CloseAll() })
	return reg, handles
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// drain applies queued terminal events until want returns true.
func drain(t *testing.T, m Model, want func(Model) bool) Model {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !want(m) {
		select {
		case msg := <-m.events:
			m = update(t, m, msg)
		case <-deadline:
			t.Fatal("timed out waiting for dashboard state")
		}
	}
	return m
}

func sized(t *testing.T, m Model) Model {
	return update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
}

func TestTabsSwitch(t *testing.T) {
	_, handles := openAll(t, "A", "B", "C")
	m := sized(t, New(handles))

	assert.Equal(t, 0, m.active)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.active)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 2, m.active, "shift+tab wraps around")
}

func TestOutputAndStatus(t *testing.T) {
	_, handles := openAll(t, "YouTube")
	handles[0].Terminal.AppendLine("before")
	m := sized(t, New(handles))
	assert.Equal(t, []string{"before"}, m.tabs[0].lines)

	handles[0].Terminal.AppendLine("Failed to compile with 1 error!")
	m = drain(t, m, func(m Model) bool { return m.tabs[0].status == statusFailed })

	handles[0].Terminal.Clear()
	handles[0].Terminal.AppendLine("Successfully compiled!")
	m = drain(t, m, func(m Model) bool { return m.tabs[0].status == statusOK })
	assert.Equal(t, []string{"Successfully compiled!"}, m.tabs[0].lines)
	assert.Contains(t, m.View(), "Successfully compiled!")
	assert.Contains(t, m.View(), "1 ok, 0 failed, 0 compiling")
}

func TestCloseKeyTearsDownInstance(t *testing.T) {
	reg, handles := openAll(t, "A", "B")
	m := sized(t, New(handles))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m = drain(t, m, func(m Model) bool { return len(m.tabs) == 1 })

	assert.Equal(t, "B", m.tabs[0].name)
	_, ok := reg.Get(handles[0].Key)
	assert.False(t, ok)
	_, ok = reg.Get(handles[1].Key)
	assert.True(t, ok)
}

func TestLastTabClosedQuits(t *testing.T) {
	_, handles := openAll(t, "A")
	m := sized(t, New(handles))

	handles[0].Terminal.Close()
	var cmd tea.Cmd
	deadline := time.After(5 * time.Second)
	for len(m.tabs) > 0 {
		select {
		case msg := <-m.events:
			var next tea.Model
			next, cmd = m.Update(msg)
			m = next.(Model)
		case <-deadline:
			t.Fatal("no close event")
		}
	}
	assert.Empty(t, m.tabs)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestQuitKey(t *testing.T) {
	_, handles := openAll(t, "A")
	m := sized(t, New(handles))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestInitWithoutTabsQuits(t *testing.T) {
	cmd := New(nil).Init()
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
