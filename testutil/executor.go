package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// helperEnv marks a re-executed test binary as a fake child process.
const helperEnv = "PMD_WANT_HELPER_PROCESS"

// Behaviour knobs understood by RunHelperProcess.
const (
	HelperStdout  = "PMD_HELPER_STDOUT"
	HelperStderr  = "PMD_HELPER_STDERR"
	HelperExit    = "PMD_HELPER_EXIT"
	HelperSleepMs = "PMD_HELPER_SLEEP_MS"
	// HelperMkdir is a directory the child creates, relative to its cwd.
	HelperMkdir = "PMD_HELPER_MKDIR"
	// HelperDumpEnv names a file the child writes its environment to.
	HelperDumpEnv = "PMD_HELPER_DUMP_ENV"
)

// HelperExecutor implements command.Executor by re-running the current test
// binary. The package under test must declare
//
//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
type HelperExecutor struct {
	// Env is appended to every child environment.
	Env []string

	mu    sync.Mutex
	calls [][]string
}

// Command creates a fake child process.
func (h *HelperExecutor) Command(name string, args ...string) *exec.Cmd {
	return h.CommandContext(context.Background(), name, args...)
}

// CommandContext creates a fake child process bound to ctx.
func (h *HelperExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	h.mu.Lock()
	h.calls = append(h.calls, append([]string{name}, args...))
	h.mu.Unlock()

	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(append(os.Environ(), helperEnv+"=1"), h.Env...)
	return cmd
}

// Calls returns every command line requested so far.
func (h *HelperExecutor) Calls() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]string, len(h.calls))
	copy(out, h.calls)
	return out
}

// RunHelperProcess acts as the fake child when the test binary was started
// by HelperExecutor, and returns immediately otherwise.
func RunHelperProcess() {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	if ms, err := strconv.Atoi(os.Getenv(HelperSleepMs)); err == nil && ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
	if dir := os.Getenv(HelperMkdir); dir != "" {
		_ = os.MkdirAll(filepath.Clean(dir), 0755)
	}
	if path := os.Getenv(HelperDumpEnv); path != "" {
		_ = os.WriteFile(path, []byte(strings.Join(os.Environ(), "\n")), 0644)
	}
	if out := os.Getenv(HelperStdout); out != "" {
		fmt.Fprint(os.Stdout, out)
	}
	if errOut := os.Getenv(HelperStderr); errOut != "" {
		fmt.Fprint(os.Stderr, errOut)
	}

	code, _ := strconv.Atoi(os.Getenv(HelperExit))
	os.Exit(code)
}
