// Package bundler drives the build toolchain behind a compiler session:
// esbuild for bundling in watch mode and tsc for type-aware diagnostics.
package bundler

import (
	"context"

	"github.com/premid/pmd/pkg/diagnostics"
)

// Observer receives build lifecycle callbacks. Calls for one Watching handle
// never overlap.
type Observer interface {
	// OnCompileStart runs before every build, including the first.
	OnCompileStart()
	// OnAfterCompile runs after every build with all of its diagnostics,
	// unfiltered.
	OnAfterCompile(diags []diagnostics.Diagnostic)
}

// Watching is a running watch-mode build.
type Watching interface {
	// Suspend stops reacting to changes and aborts an in-flight build.
	Suspend()
	// Close releases the build; it returns once no callbacks can fire.
	Close() error
}

// Options configure one watch-mode build of a presence.
type Options struct {
	// Dir is the presence directory; it is the working directory for tools.
	Dir string
	// OutDir is where outputs are written, relative to Dir or absolute.
	OutDir string
	// Entries returns output name to entry file. It is called every time a
	// build context is created.
	Entries func() map[string]string
	// CopyFiles are copied verbatim from Dir into OutDir after each build.
	CopyFiles []string
	// Target is the JavaScript language level, e.g. es2020.
	Target    string
	Sourcemap bool
}

// Bundler starts watch-mode builds.
type Bundler interface {
	Watch(ctx context.Context, opts Options, obs Observer) (Watching, error)
}

// Checker produces type-aware diagnostics for a presence directory.
type Checker interface {
	Check(ctx context.Context, dir string, files []string) ([]diagnostics.Diagnostic, error)
}
