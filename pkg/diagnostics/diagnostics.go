// Package diagnostics turns compiler diagnostics into the single-line
// messages printed after every build.
package diagnostics

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Category classifies where a diagnostic came from.
type Category string

const (
	// Generic is an ordinary type or syntax error.
	Generic Category = ""
	// ModuleBuildError wraps an error that is already reported on its own.
	ModuleBuildError Category = "ModuleBuildError"
	// ModuleNotFoundError is an unresolved import.
	ModuleNotFoundError Category = "ModuleNotFoundError"
)

// ManifestInvalidMessage replaces unresolved-import errors caused by a broken
// package.json.
const ManifestInvalidMessage = "package.json not valid!"

// Diagnostic is a single compiler error. Line and Column are 1-based.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Code     int
	Category Category
	Message  string
}

// Summary is the closing line of a build report.
func Summary(errorCount int) string {
	switch errorCount {
	case 0:
		return "Successfully compiled!"
	case 1:
		return "Failed to compile with 1 error!"
	default:
		return fmt.Sprintf("Failed to compile with %d errors!", errorCount)
	}
}

// Color modes accepted by NewFormatter.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Formatter renders diagnostics. The zero value prints without color.
type Formatter struct {
	Prefix string

	location lipgloss.Style
	label    lipgloss.Style
	code     lipgloss.Style
}

// NewFormatter builds a formatter whose color profile matches w. color is
// one of auto, always or never.
func NewFormatter(prefix string, w io.Writer, color string) *Formatter {
	return NewFormatterWithProfile(prefix, lipgloss.NewRenderer(w).ColorProfile(), color)
}

// NewFormatterWithProfile builds a formatter for an output surface whose
// color support is already known.
func NewFormatterWithProfile(prefix string, profile termenv.Profile, color string) *Formatter {
	switch color {
	case ColorNever:
		profile = termenv.Ascii
	case ColorAlways:
		if profile == termenv.Ascii {
			profile = termenv.ANSI
		}
	}
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(profile)

	return &Formatter{
		Prefix:   prefix,
		location: renderer.NewStyle().Foreground(lipgloss.Color("6")),
		label:    renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		code:     renderer.NewStyle().Faint(true),
	}
}

// Format renders one diagnostic as
// "<prefix><dir>/<file>:<line>:<column> - Error TS<code>: <message>".
func (f *Formatter) Format(d Diagnostic) string {
	var b strings.Builder
	b.WriteString(f.Prefix)

	if d.File != "" {
		loc := fmt.Sprintf("%s/%s:%d:%d",
			filepath.Base(filepath.Dir(d.File)), filepath.Base(d.File), d.Line, d.Column)
		b.WriteString(f.location.Render(loc))
		b.WriteString(" - ")
	}

	b.WriteString(f.label.Render("Error"))
	if d.Code != 0 {
		b.WriteString(" ")
		b.WriteString(f.code.Render(fmt.Sprintf("TS%d", d.Code)))
	}
	b.WriteString(": ")
	b.WriteString(flatten(d.Message))
	return b.String()
}

// Lines formats a build's diagnostics: wrapper errors are dropped and an
// unresolved import that names the manifest becomes ManifestInvalidMessage.
func (f *Formatter) Lines(diags []Diagnostic, manifestName string) []string {
	filtered := Filter(diags, manifestName)
	lines := make([]string, 0, len(filtered))
	for _, d := range filtered {
		if d.Category == ModuleNotFoundError && mentions(d, manifestName) {
			lines = append(lines, f.Prefix+ManifestInvalidMessage)
			continue
		}
		lines = append(lines, f.Format(d))
	}
	return lines
}

// Filter drops ModuleBuildError wrappers and collapses manifest-related
// unresolved imports into one entry. The result is what the summary counts.
func Filter(diags []Diagnostic, manifestName string) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	manifestSeen := false
	for _, d := range diags {
		if d.Category == ModuleBuildError {
			continue
		}
		if d.Category == ModuleNotFoundError && mentions(d, manifestName) {
			if manifestSeen {
				continue
			}
			manifestSeen = true
		}
		out = append(out, d)
	}
	return out
}

func mentions(d Diagnostic, manifestName string) bool {
	return manifestName != "" && strings.Contains(d.Message, manifestName)
}

// flatten collapses line breaks and the indentation that follows them.
func flatten(message string) string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	if !strings.Contains(message, "\n") {
		return message
	}
	parts := strings.Split(message, "\n")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
