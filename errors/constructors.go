package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *PmdError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PmdError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// PresenceNotFound creates a presence not found error
func PresenceNotFound(name string) *PmdError {
	return New(ErrCodePresenceNotFound, fmt.Sprintf("presence '%s' not found", name)).
		WithDetail("presence", name)
}

// PresenceInvalid reports a presence directory that is missing a required file.
func PresenceInvalid(dir, missing string) *PmdError {
	return New(ErrCodePresenceInvalid, fmt.Sprintf("presence at %s is missing %s", dir, missing)).
		WithDetail("path", dir).
		WithDetail("missing", missing)
}

// InstanceNotFound creates an error for an unknown registry key
func InstanceNotFound(key string) *PmdError {
	return New(ErrCodeInstanceNotFound, fmt.Sprintf("no compiler running for key '%s'", key)).
		WithDetail("key", key)
}

// UnknownCommand creates an error for an unregistered command id
func UnknownCommand(id string) *PmdError {
	return New(ErrCodeUnknownCommand, fmt.Sprintf("command '%s' is not registered", id)).
		WithDetail("command", id)
}

// HostNotRunning creates an error for when the host daemon is unreachable
func HostNotRunning(socket string) *PmdError {
	return New(ErrCodeHostNotRunning, "pmd host is not running").
		WithDetail("socket", socket)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *PmdError {
	pmdErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		pmdErr = pmdErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return pmdErr
}

// CommandNotFound creates an error for a missing executable
func CommandNotFound(name string, err error) *PmdError {
	return Wrap(err, ErrCodeCommandNotFound, fmt.Sprintf("command not found: %s", name)).
		WithDetail("command", name)
}
