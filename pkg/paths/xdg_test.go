package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPmdHomeOverridesEverything(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PMD_HOME", home)
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, filepath.Join(home, "config", "pmd"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state", "pmd"), StateDir())
	assert.Equal(t, filepath.Join(home, "run", "host.sock"), SocketPath())
	assert.Equal(t, filepath.Join(home, "state", "pmd", "host.pid"), PidFilePath())
	assert.Equal(t, filepath.Join(home, "config", "pmd", "config.yml"), GlobalConfigPath())
}

func TestXDGDirectories(t *testing.T) {
	t.Setenv("PMD_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_RUNTIME_DIR", "")

	assert.Equal(t, "/xdg/config/pmd", ConfigDir())
	assert.Equal(t, "/xdg/state/pmd", StateDir())
	assert.Equal(t, "/xdg/state/pmd/host.sock", SocketPath())
}

func TestEnsureDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PMD_HOME", home)

	assert.NoError(t, EnsureDirs())
	assert.DirExists(t, filepath.Join(home, "run"))
	assert.DirExists(t, filepath.Join(home, "cache", "pmd"))
}
