package sink

import (
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// ClearSequence wipes the screen and scrollback of a terminal emulator.
const ClearSequence = "\x1b[2J\x1b[3J\x1b[;H"

const lineBreak = "\r\n"

// Terminal is an in-memory terminal surface. Everything written is kept as
// a backlog and fanned out to subscribers. Closing it (a user action) fires
// the OnClose handlers exactly once; Dispose tears it down silently.
type Terminal struct {
	name string

	mu       sync.Mutex
	buf      strings.Builder
	visible  bool
	closed   bool
	onClose  []func()
	subs     map[int]chan string
	nextSub  int
	maxBytes int
}

// DefaultBacklog caps the retained output so long sessions stay bounded.
const DefaultBacklog = 1 << 20

// NewTerminal creates an open, hidden terminal.
func NewTerminal(name string) *Terminal {
	return &Terminal{
		name:     name,
		subs:     make(map[int]chan string),
		maxBytes: DefaultBacklog,
	}
}

// Name is the display name, usually the presence name.
func (t *Terminal) Name() string { return t.name }

func (t *Terminal) Append(text string) {
	t.write(text)
}

func (t *Terminal) AppendLine(text string) {
	t.write(text + lineBreak)
}

func (t *Terminal) Error(text string) {
	t.write(strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", lineBreak) + lineBreak)
}

// Clear resets the backlog and tells subscribers to wipe their screen.
func (t *Terminal) Clear() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.buf.Reset()
	t.broadcast(ClearSequence)
	t.mu.Unlock()
}

// ColorProfile is ANSI256: terminals are rendered by the dashboard or
// streamed to an attached terminal emulator, never to a pipe.
func (t *Terminal) ColorProfile() termenv.Profile { return termenv.ANSI256 }

func (t *Terminal) Show() { t.setVisible(true) }
func (t *Terminal) Hide() { t.setVisible(false) }

// Visible reports the last Show/Hide call.
func (t *Terminal) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// OnClose registers fn to run when the user closes the terminal.
func (t *Terminal) OnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = append(t.onClose, fn)
}

// Close is the user closing the surface. Handlers run once, outside the lock,
// so they may call back into the terminal.
func (t *Terminal) Close() {
	handlers, ok := t.shutdown()
	if !ok {
		return
	}
	for _, fn := range handlers {
		fn()
	}
}

// Dispose shuts the terminal down without firing close handlers.
func (t *Terminal) Dispose() {
	t.shutdown()
}

// Closed reports whether Close or Dispose has run.
func (t *Terminal) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Subscribe returns the current backlog and a channel of later chunks. The
// channel is closed when the terminal shuts down or cancel is called.
func (t *Terminal) Subscribe() (backlog string, chunks <-chan string, cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan string, 64)
	if t.closed {
		close(ch)
		return t.buf.String(), ch, func() {}
	}

	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch

	var once sync.Once
	return t.buf.String(), ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
}

// Lines returns the backlog split into lines.
func (t *Terminal) Lines() []string {
	t.mu.Lock()
	text := t.buf.String()
	t.mu.Unlock()

	text = strings.TrimSuffix(text, lineBreak)
	if text == "" {
		return nil
	}
	return strings.Split(text, lineBreak)
}

// String returns the whole backlog.
func (t *Terminal) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

func (t *Terminal) write(text string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.buf.WriteString(text)
	if t.buf.Len() > t.maxBytes {
		trimmed := t.buf.String()[t.buf.Len()-t.maxBytes:]
		if i := strings.Index(trimmed, lineBreak); i >= 0 {
			trimmed = trimmed[i+len(lineBreak):]
		}
		t.buf.Reset()
		t.buf.WriteString(trimmed)
	}
	t.broadcast(text)
	t.mu.Unlock()
}

// broadcast sends chunk to every subscriber. The caller holds t.mu, so a
// chunk lands either in a new subscriber's backlog or on its channel, never
// both. It never blocks: a subscriber that falls behind loses chunks rather
// than stalling the compiler.
func (t *Terminal) broadcast(chunk string) {
	for _, ch := range t.subs {
		select {
		case ch <- chunk:
		default:
		}
	}
}

func (t *Terminal) setVisible(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = v
}

func (t *Terminal) shutdown() ([]func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false
	}
	t.closed = true
	t.visible = false
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	handlers := t.onClose
	t.onClose = nil
	return handlers, true
}
