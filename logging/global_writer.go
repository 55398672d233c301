package logging

import (
	"io"
	"os"
	"sync/atomic"
)

// swapWriter forwards to a writer that can be replaced while loggers are
// writing through it.
type swapWriter struct {
	target atomic.Pointer[io.Writer]
}

func newSwapWriter(w io.Writer) *swapWriter {
	sw := &swapWriter{}
	sw.target.Store(&w)
	return sw
}

func (sw *swapWriter) Write(p []byte) (int, error) {
	return (*sw.target.Load()).Write(p)
}

func (sw *swapWriter) swap(w io.Writer) io.Writer {
	return *sw.target.Swap(&w)
}

var stderrSink = newSwapWriter(os.Stderr)

// SetGlobalOutput redirects the stderr sink of every component logger and
// returns the writer it replaced. The dashboard uses it to keep log lines
// from tearing the alt screen.
func SetGlobalOutput(w io.Writer) io.Writer {
	return stderrSink.swap(w)
}

// GetGlobalOutput returns the shared sink component loggers write to.
func GetGlobalOutput() io.Writer {
	return stderrSink
}
