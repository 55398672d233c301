// Package paths provides XDG-compliant path resolution for pmd.
//
// Resolution order:
// 1. PMD_HOME (portable root) → $PMD_HOME/{config,state,cache,run}
// 2. XDG env vars → $XDG_*_HOME/pmd
// 3. Platform defaults → ~/.config/pmd, ~/.local/state/pmd, etc.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "pmd"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if pmdHome := os.Getenv("PMD_HOME"); pmdHome != "" {
		return filepath.Join(pmdHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if pmdHome := os.Getenv("PMD_HOME"); pmdHome != "" {
		return filepath.Join(pmdHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// getCacheHome returns the base cache home directory.
func getCacheHome() string {
	if pmdHome := os.Getenv("PMD_HOME"); pmdHome != "" {
		return filepath.Join(pmdHome, "cache")
	}
	if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
		return xdgCacheHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".cache")
	}
	return ""
}

// ConfigDir returns the pmd configuration directory.
// Used for the global config.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the pmd state directory.
// Used for the host pid file and logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// CacheDir returns the pmd cache directory.
// Used for fetched metadata schemas.
func CacheDir() string {
	base := getCacheHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// RuntimeDir returns the pmd runtime directory for sockets.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if pmdHome := os.Getenv("PMD_HOME"); pmdHome != "" {
		return filepath.Join(pmdHome, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path to the pmd host unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "host.sock")
}

// PidFilePath returns the path to the pmd host PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "host.pid")
}

// GlobalConfigPath returns the path of the user-wide configuration file.
func GlobalConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yml")
}

// EnsureDirs creates all pmd directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		CacheDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
