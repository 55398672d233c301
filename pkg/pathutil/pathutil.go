// Package pathutil normalizes user-supplied paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Expand resolves a leading ~ and $VAR references and returns an absolute
// path.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// Canonical returns the absolute, symlink-free path with the case the
// filesystem stores. Two spellings of one presence directory on a
// case-insensitive filesystem therefore map to the same string.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Not created yet.
		resolved = abs
	}
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return resolved, nil
	}
	return realCase(resolved), nil
}

// realCase walks path component by component, taking each name as listed
// by its parent directory.
func realCase(path string) string {
	volume := filepath.VolumeName(path)
	result := volume + string(filepath.Separator)
	for _, part := range strings.Split(strings.TrimPrefix(path, volume), string(filepath.Separator)) {
		if part == "" {
			continue
		}
		name := part
		if entries, err := os.ReadDir(result); err == nil {
			for _, entry := range entries {
				if strings.EqualFold(entry.Name(), part) {
					name = entry.Name()
					break
				}
			}
		}
		result = filepath.Join(result, name)
	}
	return result
}
