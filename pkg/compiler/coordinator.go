package compiler

import (
	"context"
	"sync"

	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/premid/pmd/pkg/installer"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/pkg/watcher"
	"github.com/sirupsen/logrus"
)

// Lifecycle is the part of a Session the coordinator drives.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Restart(ctx context.Context) error
}

// Installer installs dependencies for a presence directory.
type Installer interface {
	Install(ctx context.Context, dir string, out sink.Sink) (installer.Result, error)
}

// Coordinator reacts to changes of the iframe entry, the metadata and the
// manifest. All reactions for its target run one at a time.
type Coordinator struct {
	target    presence.Target
	session   Lifecycle
	installer Installer
	out       sink.Sink
	clean     func(dir string) error
	logger    *logrus.Entry

	mu sync.Mutex
}

// NewCoordinator creates a coordinator for target.
func NewCoordinator(target presence.Target, session Lifecycle, inst Installer, out sink.Sink) *Coordinator {
	return &Coordinator{
		target:    target,
		session:   session,
		installer: inst,
		out:       out,
		clean:     installer.Clean,
		logger:    logging.NewLogger("coordinator").WithField("presence", target.Name()),
	}
}

// Run handles events until the channel closes or ctx is done.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.Handle(ctx, ev); err != nil {
				c.logger.WithError(err).WithField("event", ev.Kind.String()).Error("Failed to handle change")
				c.out.Error(err.Error())
			}
		}
	}
}

// Handle reacts to a single event. It blocks while another reaction for the
// same target is in flight.
func (c *Coordinator) Handle(ctx context.Context, ev watcher.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logger.WithFields(logrus.Fields{"file": ev.Name(), "kind": ev.Kind.String()})

	switch ev.Name() {
	case presence.IframeFile:
		if ev.Kind == watcher.Changed {
			return nil
		}
		log.Debug("Entry map changed, restarting")
		return c.session.Restart(ctx)

	case presence.MetadataFile:
		if ev.Kind == watcher.Removed {
			return nil
		}
		log.Debug("Metadata changed, copying to output")
		return c.target.SyncMetadata()

	case presence.ManifestFile:
		if ev.Kind == watcher.Removed {
			return c.manifestRemoved(ctx, log)
		}
		return c.manifestChanged(ctx, log)
	}
	return nil
}

func (c *Coordinator) manifestChanged(ctx context.Context, log *logrus.Entry) error {
	if !installer.IsManifestValid(c.target.Dir) {
		log.Debug("Manifest is not valid JSON, waiting for the next edit")
		c.out.Error(diagnostics.ManifestInvalidMessage)
		return nil
	}

	if err := c.session.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop session before install")
	}
	if _, err := c.installer.Install(ctx, c.target.Dir, c.out); err != nil {
		// Already reported to the sink; a build with missing modules reports its own errors.
		log.WithError(err).Warn("Install did not run")
	}
	return c.session.Restart(ctx)
}

func (c *Coordinator) manifestRemoved(ctx context.Context, log *logrus.Entry) error {
	if err := c.session.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop session before cleanup")
	}
	if err := c.clean(c.target.Dir); err != nil {
		log.WithError(err).Warn("Failed to remove installed dependencies")
	}
	return c.session.Restart(ctx)
}
