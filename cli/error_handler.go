package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/premid/pmd/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint for well-known error codes and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	pmdErr, _ := errors.As(err)
	detail := func(key string) interface{} {
		if pmdErr == nil {
			return ""
		}
		return pmdErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "✗ Configuration not found. Create a pmd.yml at the root of your presences repository.\n")

	case errors.ErrCodePresenceNotFound:
		fmt.Fprintf(h.Out, "✗ Presence '%v' not found\n", detail("presence"))
		fmt.Fprintf(h.Out, "Check presences_dir in pmd.yml or pass the presence directory instead.\n")

	case errors.ErrCodePresenceInvalid:
		fmt.Fprintf(h.Out, "✗ %v is not a presence directory (missing %v)\n", detail("path"), detail("missing"))

	case errors.ErrCodeHostNotRunning:
		fmt.Fprintf(h.Out, "✗ The pmd host is not running. Start it with 'pmd host start'.\n")

	case errors.ErrCodeInstanceNotFound:
		fmt.Fprintf(h.Out, "✗ No running instance with key '%v'. Run 'pmd ls' to see instances.\n", detail("key"))

	case errors.ErrCodeCommandNotFound:
		fmt.Fprintf(h.Out, "✗ Required command not found. Make sure Node.js and your package manager are installed.\n")

	default:
		fmt.Fprintf(h.Out, "✗ Error: %v\n", err)
	}

	if h.Verbose && pmdErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", pmdErr.ToJSON())
	}
	return err
}
