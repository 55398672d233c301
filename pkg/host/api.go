// Package host is the client side of the pmd host daemon: the wire types of
// its HTTP API and a Client speaking it over the unix socket.
package host

import (
	"time"

	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/registry"
)

// Status is returned by GET /api/status.
type Status struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Instances int       `json:"instances"`
	Root      string    `json:"root"`
}

// OpenRequest is the body of POST /api/instances.
type OpenRequest struct {
	Name string `json:"name"`
}

// OpenResponse reports the opened instance. Existed is set when the
// presence was already being compiled.
type OpenResponse struct {
	Instance registry.Info `json:"instance"`
	Existed  bool          `json:"existed"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Err rebuilds the structured error.
func (e ErrorResponse) Err() error {
	err := errors.New(e.Code, e.Message)
	for k, v := range e.Details {
		err.WithDetail(k, v)
	}
	return err
}

// StreamMessage is a client message on the output stream.
type StreamMessage struct {
	Type string `json:"type"`
}

// StreamClose asks the host to close the terminal, which tears the instance
// down.
const StreamClose = "close"
