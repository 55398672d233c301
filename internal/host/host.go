// Package host runs the pmd host daemon: one process owning a registry of
// compilers, served over a unix socket.
package host

import (
	"context"
	"time"

	"github.com/premid/pmd/config"
	"github.com/premid/pmd/internal/host/pidfile"
	"github.com/premid/pmd/internal/host/server"
	"github.com/premid/pmd/pkg/compiler"
	"github.com/premid/pmd/pkg/paths"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/registry"
	"github.com/premid/pmd/pkg/sink"
	"github.com/sirupsen/logrus"
)

// shutdownTimeout bounds the graceful part of Run's shutdown.
const shutdownTimeout = 5 * time.Second

// SocketPath is the configured socket, or the default one.
func SocketPath(cfg *config.Config) string {
	if cfg.Host.Socket != "" {
		return cfg.Host.Socket
	}
	return paths.SocketPath()
}

// NewRegistry creates a registry whose instances compile presences found
// under cfg.Root. Names are resolved to their directory name so different
// spellings share one instance.
func NewRegistry(cfg *config.Config, deps compiler.Deps) *registry.Registry {
	resolver := presence.Resolver{Root: cfg.Root, OutDir: cfg.Build.OutDir}

	reg := registry.New(func(name string, term *sink.Terminal) (registry.Compiler, error) {
		target, err := resolver.Resolve(name)
		if err != nil {
			return nil, err
		}
		return compiler.New(target, cfg, term, deps), nil
	}, nil)
	reg.Normalize = func(name string) (string, error) {
		target, err := resolver.Resolve(name)
		if err != nil {
			return "", err
		}
		return target.Name(), nil
	}
	return reg
}

// Options configure Run.
type Options struct {
	Config  *config.Config
	Deps    compiler.Deps
	PidFile string
	Socket  string
	Logger  *logrus.Entry
}

// Run holds the pid file, serves the registry until ctx is cancelled and
// then closes every instance.
func Run(ctx context.Context, opts Options) error {
	if opts.PidFile == "" {
		opts.PidFile = paths.PidFilePath()
	}
	if opts.Socket == "" {
		opts.Socket = SocketPath(opts.Config)
	}
	log := opts.Logger

	if err := pidfile.Acquire(opts.PidFile); err != nil {
		return err
	}
	defer func() {
		if err := pidfile.Release(opts.PidFile); err != nil {
			log.WithError(err).Error("Failed to release pidfile")
		}
	}()

	reg := NewRegistry(opts.Config, opts.Deps)
	srv := server.New(reg, opts.Config.Root, log)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe(opts.Socket) }()

	select {
	case err := <-errc:
		_ = reg.CloseAll()
		return err
	case <-ctx.Done():
		log.Info("Received stop signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Host shutdown error")
	}
	return <-errc
}
