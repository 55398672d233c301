package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Presence errors
	ErrCodePresenceNotFound ErrorCode = "PRESENCE_NOT_FOUND"
	ErrCodePresenceInvalid  ErrorCode = "PRESENCE_INVALID"
	ErrCodeMetadataInvalid  ErrorCode = "METADATA_INVALID"
	ErrCodeManifestInvalid  ErrorCode = "MANIFEST_INVALID"

	// Compiler errors
	ErrCodeSessionRunning ErrorCode = "SESSION_RUNNING"
	ErrCodeBundlerFailed  ErrorCode = "BUNDLER_FAILED"

	// Instance registry and host errors
	ErrCodeInstanceNotFound   ErrorCode = "INSTANCE_NOT_FOUND"
	ErrCodeUnknownCommand     ErrorCode = "UNKNOWN_COMMAND"
	ErrCodeHostNotRunning     ErrorCode = "HOST_NOT_RUNNING"
	ErrCodeHostAlreadyRunning ErrorCode = "HOST_ALREADY_RUNNING"

	// Command execution errors
	ErrCodeCommandTimeout  ErrorCode = "COMMAND_TIMEOUT"
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"

	// General errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// PmdError represents a structured error with context
type PmdError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PmdError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PmdError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *PmdError) WithDetail(key string, value interface{}) *PmdError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *PmdError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new PmdError
func New(code ErrorCode, message string) *PmdError {
	return &PmdError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a PmdError
func Wrap(err error, code ErrorCode, message string) *PmdError {
	return &PmdError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific PmdError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	pmdErr, ok := err.(*PmdError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if pmdErr.Code == code {
		return true
	}
	return pmdErr.Cause != nil && Is(pmdErr.Cause, code)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	pmdErr, ok := err.(*PmdError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return pmdErr.Code
}

// As returns the first PmdError in the chain, if any.
func As(err error) (*PmdError, bool) {
	for err != nil {
		if pmdErr, ok := err.(*PmdError); ok {
			return pmdErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
