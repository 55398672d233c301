// Package server exposes the host's instance registry over HTTP on a unix
// socket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/host"
	"github.com/premid/pmd/pkg/registry"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Server manages the host HTTP server over a unix socket.
type Server struct {
	logger    *logrus.Entry
	registry  *registry.Registry
	upgrader  websocket.Upgrader
	startedAt time.Time
	root      string

	mu     sync.Mutex
	server *http.Server
}

// New creates a server for reg. root is reported by /api/status.
func New(reg *registry.Registry, root string, logger *logrus.Entry) *Server {
	return &Server{
		logger:    logger,
		registry:  reg,
		startedAt: time.Now(),
		root:      root,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Only local processes can reach the socket.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler routes every endpoint. HTTP/2 cleartext is accepted alongside
// HTTP/1.1, which the stream upgrade needs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/instances", s.handleList)
	mux.HandleFunc("POST /api/instances", s.handleOpen)
	mux.HandleFunc("DELETE /api/instances/{key}", s.handleClose)
	mux.HandleFunc("GET /api/instances/{key}/stream", s.handleStream)
	mux.HandleFunc("GET /api/commands", s.handleCommands)
	mux.HandleFunc("POST /api/commands/{id}", s.handleExecute)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe serves on socketPath until Shutdown.
func (s *Server) ListenAndServe(socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.WithField("socket", socketPath).Info("Host listening")
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every instance.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down host...")
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	if closeErr := s.registry.CloseAll(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, host.Status{
		PID:       os.Getpid(),
		StartedAt: s.startedAt,
		Instances: len(s.registry.List()),
		Root:      s.root,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	handles := s.registry.List()
	infos := make([]registry.Info, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, h.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req host.OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	h, existed, err := s.registry.Open(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, host.OpenResponse{Instance: h.Info(), Existed: existed})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Close(registry.Key(r.PathValue("key"))); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Commands().IDs())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Commands().Execute(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.WithField("command", id).Debug("Command executed")
	w.WriteHeader(http.StatusNoContent)
}

// handleStream sends the terminal backlog, then every new chunk as text
// messages until the terminal shuts down or the client leaves.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	key := registry.Key(r.PathValue("key"))
	h, ok := s.registry.Get(key)
	if !ok {
		s.writeError(w, errors.InstanceNotFound(key.String()))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade stream")
		return
	}
	defer conn.Close()

	log := s.logger.WithField("presence", h.Name)
	log.Debug("Stream client connected")

	backlog, chunks, cancel := h.Terminal.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg host.StreamMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == host.StreamClose {
				log.Debug("Stream client closed the terminal")
				h.Terminal.Close()
			}
		}
	}()

	if backlog != "" {
		if err := s.send(conn, backlog); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "instance closed"))
				return
			}
			if err := s.send(conn, chunk); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Debug("Stream client disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, text string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	resp := host.ErrorResponse{Code: code, Message: err.Error()}
	if pmdErr, ok := errors.As(err); ok {
		resp.Message = pmdErr.Message
		resp.Details = pmdErr.Details
	}
	writeJSON(w, status, resp)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodePresenceNotFound, errors.ErrCodeInstanceNotFound, errors.ErrCodeUnknownCommand:
		return http.StatusNotFound
	case errors.ErrCodePresenceInvalid, errors.ErrCodeMetadataInvalid:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeSessionRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
