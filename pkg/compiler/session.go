// Package compiler runs the watch-mode build of one presence: a Session
// around the bundler, a Coordinator reacting to directory events and a
// Compiler tying both to a file watcher.
package compiler

import (
	"context"
	"sync"

	"github.com/premid/pmd/config"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/bundler"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/profiling"
	"github.com/premid/pmd/pkg/sink"
	"github.com/sirupsen/logrus"
)

// RecompilingMessage is printed when a rebuild starts.
const RecompilingMessage = "Recompiling..."

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Starting
	Watching
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Watching:
		return "watching"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Session owns the bundler watch handle for one presence.
type Session struct {
	target    presence.Target
	bundler   bundler.Bundler
	out       sink.Sink
	formatter *diagnostics.Formatter
	build     config.BuildConfig
	logger    *logrus.Entry

	// lifecycle serializes Start, Stop and Restart.
	lifecycle sync.Mutex

	mu         sync.Mutex
	state      State
	generation uint64
	watching   bundler.Watching
	compiled   bool
	timing     profiling.Stopper
}

// NewSession creates an idle session. A nil formatter prints plain text.
func NewSession(target presence.Target, b bundler.Bundler, out sink.Sink, formatter *diagnostics.Formatter, build config.BuildConfig) *Session {
	if formatter == nil {
		formatter = &diagnostics.Formatter{}
	}
	return &Session{
		target:    target,
		bundler:   b,
		out:       out,
		formatter: formatter,
		build:     build,
		logger:    logging.NewLogger("compiler").WithField("presence", target.Name()),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins watching. It fails with SESSION_RUNNING unless the session
// is idle.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.start(ctx)
}

// Stop suspends and closes the watch handle and waits for it. Stopping an
// idle session does nothing.
func (s *Session) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stop()
}

// Restart stops then starts the session without letting another lifecycle
// call in between.
func (s *Session) Restart(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if err := s.stop(); err != nil {
		s.logger.WithError(err).Warn("Failed to stop cleanly before restart")
	}
	return s.start(ctx)
}

func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		state := s.state
		s.mu.Unlock()
		return errors.New(errors.ErrCodeSessionRunning, "session is already running").
			WithDetail("presence", s.target.Name()).
			WithDetail("state", state.String())
	}
	s.state = Starting
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	opts := bundler.Options{
		Dir:       s.target.Dir,
		OutDir:    s.target.OutDir,
		Entries:   s.target.Entries,
		CopyFiles: []string{presence.MetadataFile},
		Target:    s.build.Target,
		Sourcemap: s.build.Sourcemap,
	}

	s.logger.Debug("Starting build session")
	w, err := s.bundler.Watch(ctx, opts, &observer{session: s, generation: gen})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Idle
		s.generation++
		return err
	}
	s.watching = w
	s.state = Watching
	return nil
}

func (s *Session) stop() error {
	s.mu.Lock()
	if s.state != Watching {
		s.mu.Unlock()
		return nil
	}
	w := s.watching
	s.watching = nil
	s.state = Stopping
	// Callbacks of the closing handle are dropped from here on.
	s.generation++
	s.mu.Unlock()

	s.logger.Debug("Stopping build session")
	w.Suspend()
	err := w.Close()

	s.mu.Lock()
	s.state = Idle
	s.mu.Unlock()
	return err
}

func (s *Session) compileStart(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.timing = profiling.Start("compile")
	if s.compiled {
		s.out.AppendLine(RecompilingMessage)
	}
}

func (s *Session) afterCompile(gen uint64, diags []diagnostics.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	for _, line := range s.formatter.Lines(diags, presence.ManifestFile) {
		s.out.AppendLine(line)
	}
	count := len(diagnostics.Filter(diags, presence.ManifestFile))
	s.out.AppendLine(diagnostics.Summary(count))
	s.compiled = true
	if s.timing != nil {
		s.timing.Stop()
		s.timing = nil
	}

	s.logger.WithField("errors", count).Debug("Build finished")
}

// observer binds bundler callbacks to one generation of the session.
type observer struct {
	session    *Session
	generation uint64
}

func (o *observer) OnCompileStart() {
	o.session.compileStart(o.generation)
}

func (o *observer) OnAfterCompile(diags []diagnostics.Diagnostic) {
	o.session.afterCompile(o.generation, diags)
}
