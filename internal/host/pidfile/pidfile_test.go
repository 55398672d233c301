package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/premid/pmd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "host.pid")

	require.NoError(t, Acquire(path))
	running, pid, err := IsRunning(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, Release(path))
	require.NoError(t, Release(path))
	running, _, err = IsRunning(path)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestAcquireReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.pid")
	// PIDs this large are never handed out on Linux or macOS.
	require.NoError(t, os.WriteFile(path, []byte("99999999"), 0644))

	require.NoError(t, Acquire(path))
	pid, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.pid")
	// The parent of the test binary is alive for the whole test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0644))

	err := Acquire(path)
	assert.True(t, errors.Is(err, errors.ErrCodeHostAlreadyRunning))
}

func TestReadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.pid")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))
	_, _, err := IsRunning(path)
	assert.Error(t, err)
}
