package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/premid/pmd/command"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/paths"
	"github.com/premid/pmd/pkg/registry"
)

// baseURL is the dummy host used for unix socket requests.
const baseURL = "http://unix"

// requestTimeout bounds every call except Open, which may install
// dependencies first.
const requestTimeout = 10 * time.Second

// Client calls the host API over a unix socket.
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	socketPath string
}

// NewClient creates a client for socketPath; empty means the default socket.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = paths.SocketPath()
	}
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", socketPath)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:     dial,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		dialer: &websocket.Dialer{
			NetDialContext:   dial,
			HandshakeTimeout: 5 * time.Second,
		},
		socketPath: socketPath,
	}
}

// Connect returns a client when the host answers its health check and
// HOST_NOT_RUNNING otherwise.
func Connect(socketPath string) (*Client, error) {
	c := NewClient(socketPath)
	if !c.IsRunning() {
		return nil, errors.HostNotRunning(c.socketPath)
	}
	return c, nil
}

// SocketPath is the socket this client dials.
func (c *Client) SocketPath() string { return c.socketPath }

// IsRunning reports whether the host answers /health.
func (c *Client) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Status returns host process information.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// List returns the running instances.
func (c *Client) List(ctx context.Context) ([]registry.Info, error) {
	var infos []registry.Info
	if err := c.do(ctx, http.MethodGet, "/api/instances", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Open starts compiling name on the host, or reports the running instance
// with existed set.
func (c *Client) Open(ctx context.Context, name string) (registry.Info, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, command.DefaultTimeout)
	defer cancel()

	var resp OpenResponse
	if err := c.send(ctx, http.MethodPost, "/api/instances", OpenRequest{Name: name}, &resp); err != nil {
		return registry.Info{}, false, err
	}
	return resp.Instance, resp.Existed, nil
}

// Close stops the instance with key.
func (c *Client) Close(ctx context.Context, key registry.Key) error {
	return c.do(ctx, http.MethodDelete, "/api/instances/"+key.String(), nil, nil)
}

// Commands lists the registered command ids.
func (c *Client) Commands(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.do(ctx, http.MethodGet, "/api/commands", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Execute runs a registered command such as a teardown command.
func (c *Client) Execute(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/commands/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.send(ctx, method, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeHostNotRunning, "failed to reach pmd host").
			WithDetail("socket", c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
			return errors.New(errors.ErrCodeInternal, fmt.Sprintf("host returned status %d", resp.StatusCode))
		}
		return e.Err()
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Stream is a live view of an instance's terminal.
type Stream struct {
	conn   *websocket.Conn
	chunks chan string

	writeMu sync.Mutex
	once    sync.Once
}

// Attach streams the output of the instance with key. The backlog arrives
// first.
func (c *Client) Attach(ctx context.Context, key registry.Key) (*Stream, error) {
	conn, resp, err := c.dialer.DialContext(ctx, "ws://unix/api/instances/"+key.String()+"/stream", nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, errors.InstanceNotFound(key.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeHostNotRunning, "failed to attach to instance").
			WithDetail("socket", c.socketPath)
	}

	s := &Stream{conn: conn, chunks: make(chan string, 64)}
	go s.read(ctx)
	return s, nil
}

func (s *Stream) read(ctx context.Context) {
	defer close(s.chunks)
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case s.chunks <- string(data):
		case <-ctx.Done():
			return
		}
	}
}

// Chunks delivers terminal output. It is closed when the instance or the
// connection goes away.
func (s *Stream) Chunks() <-chan string { return s.chunks }

// CloseTerminal closes the remote terminal, which stops the instance.
func (s *Stream) CloseTerminal() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(StreamMessage{Type: StreamClose})
}

// Close detaches without stopping the instance.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
