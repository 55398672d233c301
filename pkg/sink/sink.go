// Package sink is where compiler sessions write their output: a plain
// console for the foreground CLI or a Terminal buffer that the host and the
// dashboard can stream and close.
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Sink receives user-facing compiler output.
type Sink interface {
	// Append writes text as is.
	Append(text string)
	// AppendLine writes text followed by a line break.
	AppendLine(text string)
	// Error reports failure text, such as install stderr.
	Error(text string)
	// Clear wipes previously written output.
	Clear()
	// Show and Hide toggle the sink's visibility where that applies.
	Show()
	Hide()
	// Dispose releases the sink. It does not count as a user close.
	Dispose()
}

// ColorProfile reports how much color s can display. Sinks that do not say
// get plain text.
func ColorProfile(s Sink) termenv.Profile {
	if c, ok := s.(interface{ ColorProfile() termenv.Profile }); ok {
		return c.ColorProfile()
	}
	return termenv.Ascii
}

// Console writes to an output and an error stream.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	tty    bool
}

// NewConsole writes to stdout and stderr.
func NewConsole() *Console {
	return NewConsoleWriters(os.Stdout, os.Stderr)
}

// NewConsoleWriters writes to the given streams. Clear only emits the
// screen reset sequence when out is a terminal.
func NewConsoleWriters(out, errOut io.Writer) *Console {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{out: out, errOut: errOut, tty: tty}
}

func (c *Console) Append(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, text)
}

func (c *Console) AppendLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) Error(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.errOut, text)
}

func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tty {
		fmt.Fprint(c.out, "\033[H\033[2J")
	}
}

// ColorProfile follows the output stream and the NO_COLOR and
// CLICOLOR_FORCE conventions.
func (c *Console) ColorProfile() termenv.Profile {
	return termenv.NewOutput(c.out).EnvColorProfile()
}

func (c *Console) Show()    {}
func (c *Console) Hide()    {}
func (c *Console) Dispose() {}
