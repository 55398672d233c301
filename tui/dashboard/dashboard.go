// Package dashboard is the terminal UI of "pmd dev --tui": one tab per
// running compiler showing its terminal output.
package dashboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/premid/pmd/pkg/registry"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/tui/theme"
)

// Build states shown next to a tab name.
type status int

const (
	statusRunning status = iota
	statusOK
	statusFailed
)

// outputMsg carries new terminal output for one tab.
type outputMsg struct {
	key  registry.Key
	text string
}

// closedMsg reports that a tab's terminal shut down.
type closedMsg struct {
	key registry.Key
}

type tab struct {
	key    registry.Key
	name   string
	term   *sink.Terminal
	lines  []string
	status status
	follow bool
	cancel func()
}

// Model is the dashboard state.
type Model struct {
	tabs   []*tab
	active int
	events chan tea.Msg

	viewport viewport.Model
	help     help.Model
	keys     KeyMap
	theme    *theme.Theme
	icons    theme.Icons

	width  int
	height int
	ready  bool
}

// New subscribes to the terminals of handles, one tab each.
func New(handles []*registry.Handle) Model {
	m := Model{
		events:   make(chan tea.Msg, 256),
		viewport: viewport.New(0, 0),
		help:     help.New(),
		keys:     DefaultKeyMap(),
		theme:    theme.DefaultTheme,
		icons:    theme.DefaultIcons,
	}
	for _, h := range handles {
		m.tabs = append(m.tabs, m.subscribe(h))
	}
	return m
}

func (m Model) subscribe(h *registry.Handle) *tab {
	backlog, chunks, cancel := h.Terminal.Subscribe()
	t := &tab{key: h.Key, name: h.Name, term: h.Terminal, follow: true, cancel: cancel}
	t.write(backlog)

	events := m.events
	go func() {
		for chunk := range chunks {
			events <- outputMsg{key: h.Key, text: chunk}
		}
		events <- closedMsg{key: h.Key}
	}()
	return t
}

// write appends terminal output. A clear sequence drops everything before it.
func (t *tab) write(text string) {
	if i := strings.LastIndex(text, sink.ClearSequence); i >= 0 {
		t.lines = nil
		text = text[i+len(sink.ClearSequence):]
	}
	if text == "" {
		return
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	t.lines = append(t.lines, parts...)

	for _, line := range parts {
		switch {
		case strings.Contains(line, "Successfully compiled!"):
			t.status = statusOK
		case strings.Contains(line, "Failed to compile"):
			t.status = statusFailed
		case strings.Contains(line, "Recompiling..."):
			t.status = statusRunning
		}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

// Init starts listening for terminal output.
func (m Model) Init() tea.Cmd {
	if len(m.tabs) == 0 {
		return tea.Quit
	}
	return m.waitForEvent()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = m.bodyHeight()
		m.ready = true
		m.refresh()

	case outputMsg:
		if t := m.find(msg.key); t != nil {
			t.write(msg.text)
			if t == m.current() {
				m.refresh()
			}
		}
		cmds = append(cmds, m.waitForEvent())

	case closedMsg:
		m.remove(msg.key)
		if len(m.tabs) == 0 {
			return m, tea.Quit
		}
		m.refresh()
		cmds = append(cmds, m.waitForEvent())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.unsubscribe()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.focus(m.active + 1)
		case key.Matches(msg, m.keys.Prev):
			m.focus(m.active - 1)
		case key.Matches(msg, m.keys.Close):
			if t := m.current(); t != nil {
				// Closing the terminal tears the instance down; the tab goes
				// away when its closedMsg arrives.
				go t.term.Close()
			}
		case key.Matches(msg, m.keys.Bottom):
			if t := m.current(); t != nil {
				t.follow = true
				m.viewport.GotoBottom()
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			if t := m.current(); t != nil {
				t.follow = m.viewport.AtBottom()
			}
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the tab bar, the focused output and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.tabBar(),
		m.viewport.View(),
		m.statusLine(),
	)
}

// statusLine counts build states across all tabs, followed by the key help.
func (m Model) statusLine() string {
	counts := make(map[status]int, 3)
	for _, t := range m.tabs {
		counts[t.status]++
	}
	summary := fmt.Sprintf("%d ok, %d failed, %d compiling",
		counts[statusOK], counts[statusFailed], counts[statusRunning])
	return m.theme.StatusBar.Render(summary) + "  " + m.theme.Muted.Render(m.help.View(m.keys))
}

func (m Model) tabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		label := m.statusIcon(t.status) + " " + t.name
		if i == m.active {
			parts = append(parts, m.theme.ActiveTab.Render(label))
		} else {
			parts = append(parts, m.theme.InactiveTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) statusIcon(s status) string {
	switch s {
	case statusOK:
		return m.theme.Success.Render(m.icons.Success)
	case statusFailed:
		return m.theme.Error.Render(m.icons.Error)
	default:
		return m.theme.Info.Render(m.icons.Running)
	}
}

func (m Model) bodyHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) current() *tab {
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.active]
}

func (m *Model) find(k registry.Key) *tab {
	for _, t := range m.tabs {
		if t.key == k {
			return t
		}
	}
	return nil
}

func (m *Model) focus(i int) {
	if len(m.tabs) == 0 {
		return
	}
	m.active = (i + len(m.tabs)) % len(m.tabs)
	m.refresh()
}

func (m *Model) remove(k registry.Key) {
	for i, t := range m.tabs {
		if t.key != k {
			continue
		}
		t.cancel()
		m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
		if m.active >= len(m.tabs) {
			m.active = len(m.tabs) - 1
		}
		if m.active < 0 {
			m.active = 0
		}
		return
	}
}

func (m *Model) unsubscribe() {
	for _, t := range m.tabs {
		t.cancel()
	}
}

func (m *Model) refresh() {
	t := m.current()
	if t == nil || !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		m.viewport.GotoBottom()
	}
}

// Run opens names in reg, shows the dashboard until the user quits or every
// tab is closed, then closes all instances.
func Run(ctx context.Context, reg *registry.Registry, names []string) error {
	handles := make([]*registry.Handle, 0, len(names))
	for _, name := range names {
		h, existed, err := reg.Open(ctx, name)
		if err != nil {
			_ = reg.CloseAll()
			return err
		}
		if !existed {
			handles = append(handles, h)
		}
	}
	defer reg.CloseAll()

	p := tea.NewProgram(New(handles), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
