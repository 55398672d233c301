package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/premid/pmd/errors"
)

var (
	commandNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.+-]*$`)
	targetRegex      = regexp.MustCompile(`^(es20(1[5-9]|2[0-2])|esnext)$`)
	envNameRegex     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateBuild(&c.Build); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid build configuration")
	}

	if err := validatePackageManager(&c.PackageManager); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid package_manager configuration")
	}

	if err := validateWatch(&c.Watch); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid watch configuration")
	}

	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("output.color must be auto, always or never (got %q)", c.Output.Color)).
			WithDetail("color", c.Output.Color)
	}

	if err := validatePath("presences_dir", c.PresencesDir); err != nil {
		return err
	}
	return validatePath("host.socket", c.Host.Socket)
}

func validateBuild(build *BuildConfig) error {
	if filepath.IsAbs(build.OutDir) || strings.Contains(build.OutDir, "..") {
		return errors.New(errors.ErrCodeInvalidInput, "out_dir must be a path inside the presence directory").
			WithDetail("out_dir", build.OutDir)
	}
	if !targetRegex.MatchString(strings.ToLower(build.Target)) {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unsupported target %q", build.Target)).
			WithDetail("target", build.Target)
	}
	if build.TypeCheckEnabled() && len(build.TypeCheckCommand) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "typecheck_command cannot be empty when typecheck is enabled")
	}
	return nil
}

// maxInstallTimeout matches the longest deadline a command may be given.
const maxInstallTimeout = 1800

func validatePackageManager(pm *PackageManagerConfig) error {
	if !commandNameRegex.MatchString(filepath.Base(pm.Command)) {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid package manager command: %s", pm.Command)).
			WithDetail("command", pm.Command)
	}
	if pm.TimeoutSec < 0 || pm.TimeoutSec > maxInstallTimeout {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("timeout_seconds must be between 1 and %d", maxInstallTimeout)).
			WithDetail("timeout_seconds", pm.TimeoutSec)
	}
	for _, name := range pm.ClearEnv {
		if !envNameRegex.MatchString(name) {
			return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid environment variable name: %s", name)).
				WithDetail("name", name)
		}
	}
	return nil
}

func validateWatch(watch *WatchConfig) error {
	if watch.DebounceMs < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "debounce_ms cannot be negative")
	}
	if watch.RetryIntervalMs < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "retry_interval_ms cannot be negative")
	}
	if _, err := patternmatcher.New(watch.Ignore); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid ignore pattern")
	}
	return nil
}

// validatePath validates that a path is appropriate for the current OS
func validatePath(fieldName, path string) error {
	if path == "" {
		return nil
	}

	// Check for Windows absolute paths on Unix systems
	if runtime.GOOS != "windows" && filepath.IsAbs(path) && strings.Contains(path, "\\") {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s contains Windows-style path on Unix system", fieldName)).
			WithDetail("path", path)
	}

	// Check for Unix absolute paths on Windows systems
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("%s contains Unix-style path on Windows system", fieldName)).
			WithDetail("path", path)
	}

	return nil
}
