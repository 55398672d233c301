// Package installer runs the package manager for a presence directory.
package installer

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/premid/pmd/command"
	"github.com/premid/pmd/config"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/profiling"
	"github.com/premid/pmd/pkg/sink"
	"github.com/sirupsen/logrus"
)

// Messages written to the sink.
const (
	InstallingMessage = "Installing dependencies..."
	InstalledMessage  = "Installed dependencies!"
)

// IsManifestValid reports whether dir/package.json exists and parses as JSON.
func IsManifestValid(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, presence.ManifestFile))
	if err != nil {
		return false
	}
	return json.Valid(data)
}

// Result describes one install run. Failures are data, not errors.
type Result struct {
	Skipped  bool
	TimedOut bool
	ExitCode int
	Stderr   string
}

// Succeeded reports whether dependencies are installed.
func (r Result) Succeeded() bool {
	return !r.Skipped && r.ExitCode == 0
}

// Installer runs "<pm> install" in presence directories.
type Installer struct {
	Command  string
	Args     []string
	ClearEnv []string
	// Timeout bounds one install run; zero uses the command default.
	Timeout time.Duration

	builder *command.SafeBuilder
	logger  *logrus.Entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an installer from the package_manager config section.
func New(cfg config.PackageManagerConfig, exec command.Executor) *Installer {
	return &Installer{
		Command:  cfg.Command,
		Args:     append([]string(nil), cfg.InstallArgs...),
		ClearEnv: append([]string(nil), cfg.ClearEnv...),
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		builder:  command.NewSafeBuilderWithExecutor(exec),
		logger:   logging.NewLogger("installer"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Install installs dependencies for dir. An invalid or missing manifest is a
// skipped success. A nonzero exit is reported to out and returned in the
// Result with a nil error; the error is only set when the package manager
// could not be started at all. Installs for the same directory never overlap.
func (i *Installer) Install(ctx context.Context, dir string, out sink.Sink) (Result, error) {
	if !IsManifestValid(dir) {
		i.logger.WithField("dir", dir).Debug("No valid manifest, skipping install")
		return Result{Skipped: true}, nil
	}
	defer profiling.Start("install").Stop()

	lock := i.lockFor(dir)
	lock.Lock()
	defer lock.Unlock()

	out.AppendLine(InstallingMessage)

	cmd, err := i.builder.Build(ctx, i.Command, i.Args...)
	if err != nil {
		out.Error(err.Error())
		return Result{ExitCode: -1}, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid package manager command")
	}
	cmd.WithTimeout(ctx, i.Timeout)
	defer cmd.Cancel()

	execCmd := cmd.Exec()
	execCmd.Dir = dir
	// Only the child loses NODE_ENV; the process environment is untouched.
	execCmd.Env = command.EnvWithout(execCmd.Env, i.ClearEnv...)

	stderr, err := execCmd.StderrPipe()
	if err != nil {
		out.Error(err.Error())
		return Result{ExitCode: -1}, errors.Wrap(err, errors.ErrCodeInternal, "failed to capture install output")
	}

	log := i.logger.WithFields(logrus.Fields{"dir": dir, "command": cmd.String(), "timeout": cmd.Timeout()})
	log.Debug("Running install")

	if err := execCmd.Start(); err != nil {
		out.Error(fmt.Sprintf("Failed to run %s: %v", i.Command, err))
		if stderrors.Is(err, exec.ErrNotFound) {
			return Result{ExitCode: -1}, errors.CommandNotFound(i.Command, err)
		}
		return Result{ExitCode: -1}, errors.CommandFailed(cmd.String(), err)
	}

	var captured strings.Builder
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		log.Debug(line)
		captured.WriteString(line)
		captured.WriteString("\n")
	}

	result := Result{Stderr: strings.TrimRight(captured.String(), "\n")}
	if err := execCmd.Wait(); err != nil {
		if ctx.Err() == nil && stderrors.Is(cmd.Context().Err(), context.DeadlineExceeded) {
			log.Warn("Install timed out")
			out.Error(fmt.Sprintf("%s timed out after %s", cmd.String(), cmd.Timeout()))
			return Result{ExitCode: -1, Stderr: result.Stderr, TimedOut: true}, nil
		}
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			out.Error(fmt.Sprintf("Failed to run %s: %v", i.Command, err))
			return Result{ExitCode: -1, Stderr: result.Stderr}, errors.CommandFailed(cmd.String(), err)
		}
		result.ExitCode = exitErr.ExitCode()
		log.WithField("exitCode", result.ExitCode).Warn("Install failed")
		text := result.Stderr
		if text == "" {
			text = fmt.Sprintf("%s exited with code %d", cmd.String(), result.ExitCode)
		}
		out.Error(text)
		return result, nil
	}

	out.AppendLine(InstalledMessage)
	return result, nil
}

func (i *Installer) lockFor(dir string) *sync.Mutex {
	key := filepath.Clean(dir)
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.locks[key]
	if !ok {
		l = &sync.Mutex{}
		i.locks[key] = l
	}
	return l
}

// Clean removes installed dependency state: node_modules and every known
// lockfile. Missing files are not an error; the first other failure is
// returned after attempting everything.
func Clean(dir string) error {
	var firstErr error
	targets := append([]string{presence.NodeModules}, presence.Lockfiles...)
	for _, name := range targets {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
