package compiler

import (
	"context"
	"sync"
	"time"

	"github.com/premid/pmd/command"
	"github.com/premid/pmd/config"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/bundler"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/premid/pmd/pkg/installer"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/pkg/watcher"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators of a Compiler. Nil fields are filled from the
// configuration by New.
type Deps struct {
	Bundler   bundler.Bundler
	Installer Installer
	Formatter *diagnostics.Formatter
}

// DefaultDeps builds the esbuild bundler, the tsc checker when enabled and
// the package manager installer.
func DefaultDeps(cfg *config.Config) Deps {
	exec := &command.RealExecutor{}
	var checker bundler.Checker
	if cfg.Build.TypeCheckEnabled() {
		checker = bundler.NewTSC(cfg.Build.TypeCheckCommand, cfg.Build.Target, exec)
	}
	return Deps{
		Bundler:   bundler.NewESBuild(checker),
		Installer: installer.New(cfg.PackageManager, exec),
	}
}

// Compiler is the full development loop for one presence: an optional
// initial install, the build session and the coordinator fed by a watcher
// on the presence directory.
type Compiler struct {
	target      presence.Target
	out         sink.Sink
	installer   Installer
	session     *Session
	coordinator *Coordinator
	watchOpts   watcher.Options
	logger      *logrus.Entry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	watcher *watcher.Watcher
	loop    chan struct{}
	done    chan struct{}
}

// New assembles a compiler for target writing to out.
func New(target presence.Target, cfg *config.Config, out sink.Sink, deps Deps) *Compiler {
	if deps.Bundler == nil || deps.Installer == nil {
		defaults := DefaultDeps(cfg)
		if deps.Bundler == nil {
			deps.Bundler = defaults.Bundler
		}
		if deps.Installer == nil {
			deps.Installer = defaults.Installer
		}
	}
	if deps.Formatter == nil {
		deps.Formatter = diagnostics.NewFormatterWithProfile(cfg.Output.Prefix, sink.ColorProfile(out), cfg.Output.Color)
	}

	session := NewSession(target, deps.Bundler, out, deps.Formatter, cfg.Build)
	done := make(chan struct{})
	close(done)
	return &Compiler{
		target:      target,
		out:         out,
		installer:   deps.Installer,
		session:     session,
		coordinator: NewCoordinator(target, session, deps.Installer, out),
		watchOpts: watcher.Options{
			Debounce:      time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
			RetryInterval: time.Duration(cfg.Watch.RetryIntervalMs) * time.Millisecond,
			Ignore:        cfg.Watch.Ignore,
		},
		logger: logging.NewLogger("compiler").WithField("presence", target.Name()),
		done:   done,
	}
}

// Target is the presence being compiled.
func (c *Compiler) Target() presence.Target { return c.target }

// Session exposes the build session.
func (c *Compiler) Session() *Session { return c.session }

// Start installs missing dependencies, starts the session and begins
// watching the presence directory. A session start failure is returned
// and leaves nothing running.
func (c *Compiler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	if err := c.target.Check(); err != nil {
		return err
	}

	if installer.IsManifestValid(c.target.Dir) && !c.target.HasNodeModules() {
		c.logger.Debug("Dependencies missing, installing before first build")
		if _, err := c.installer.Install(ctx, c.target.Dir, c.out); err != nil {
			c.logger.WithError(err).Warn("Initial install did not run")
		}
	}

	w, err := watcher.New(c.target.Dir, c.watchOpts, c.logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if err := c.session.Start(runCtx); err != nil {
		cancel()
		return err
	}

	events, err := w.Watch(runCtx)
	if err != nil {
		cancel()
		_ = c.session.Stop()
		return err
	}

	c.running = true
	c.cancel = cancel
	c.watcher = w
	c.loop = make(chan struct{})
	c.done = make(chan struct{})
	go func(loop chan struct{}) {
		defer close(loop)
		c.coordinator.Run(runCtx, events)
	}(c.loop)

	c.logger.Info("Compiler started")
	return nil
}

// Stop tears everything down and waits for it. Safe to call repeatedly.
func (c *Compiler) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false

	c.cancel()
	_ = c.watcher.Close()
	<-c.loop
	err := c.session.Stop()
	close(c.done)

	c.logger.Info("Compiler stopped")
	return err
}

// Done is closed once the compiler has stopped.
func (c *Compiler) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Running reports whether Start succeeded and Stop has not been called.
func (c *Compiler) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run starts the compiler and blocks until ctx is cancelled.
func (c *Compiler) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-c.Done():
		return nil
	}
	return c.Stop()
}
