// Package registry keeps at most one running compiler per presence and the
// teardown commands that stop them.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/sink"
	"github.com/sirupsen/logrus"
)

// Compiler is the running session behind an instance.
type Compiler interface {
	Start(ctx context.Context) error
	Stop() error
}

// Factory creates the compiler for a presence name writing to term.
type Factory func(name string, term *sink.Terminal) (Compiler, error)

// Handle is one live instance.
type Handle struct {
	ID        string
	Key       Key
	Name      string
	StartedAt time.Time
	Terminal  *sink.Terminal
	Compiler  Compiler

	command Disposable
}

// Info is the serializable view of a Handle.
type Info struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
}

// Info describes the handle.
func (h *Handle) Info() Info {
	return Info{
		ID:        h.ID,
		Key:       h.Key.String(),
		Name:      h.Name,
		Command:   CommandID(h.Key),
		StartedAt: h.StartedAt,
	}
}

// Registry owns the live instances of one host process.
type Registry struct {
	// Normalize maps a requested name to its canonical presence name so
	// different spellings share one instance. Nil keeps names as given.
	Normalize func(name string) (string, error)

	factory  Factory
	commands *Commands
	logger   *logrus.Entry

	// opening serializes Open so two calls for one name cannot both build a
	// compiler.
	opening sync.Mutex

	mu        sync.Mutex
	instances map[Key]*Handle
	// closing holds instances whose compiler is still stopping. Open waits
	// on the channel before starting a replacement.
	closing map[Key]chan struct{}
}

// New creates a registry. commands may be shared with other owners; nil
// creates a private table.
func New(factory Factory, commands *Commands) *Registry {
	if commands == nil {
		commands = NewCommands()
	}
	return &Registry{
		factory:   factory,
		commands:  commands,
		logger:    logging.NewLogger("registry"),
		instances: make(map[Key]*Handle),
		closing:   make(map[Key]chan struct{}),
	}
}

// Commands is the teardown command table.
func (r *Registry) Commands() *Commands { return r.commands }

// Open returns the live instance for name with existed set, or starts a new
// one. A start failure is returned and nothing is registered.
func (r *Registry) Open(ctx context.Context, name string) (*Handle, bool, error) {
	if name == "" {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "presence name is empty")
	}
	if r.Normalize != nil {
		canonical, err := r.Normalize(name)
		if err != nil {
			return nil, false, err
		}
		name = canonical
	}
	key := EncodeKey(name)

	r.opening.Lock()
	defer r.opening.Unlock()

	if h, ok := r.Get(key); ok {
		r.logger.WithField("presence", name).Debug("Instance already open")
		h.Terminal.Show()
		return h, true, nil
	}
	if err := r.waitClosed(ctx, key); err != nil {
		return nil, false, err
	}

	term := sink.NewTerminal(name)
	comp, err := r.factory(name, term)
	if err != nil {
		term.Dispose()
		return nil, false, err
	}
	if err := comp.Start(ctx); err != nil {
		term.Dispose()
		return nil, false, err
	}

	h := &Handle{
		ID:        uuid.NewString(),
		Key:       key,
		Name:      name,
		StartedAt: time.Now(),
		Terminal:  term,
		Compiler:  comp,
	}
	h.command = r.commands.Register(CommandID(key), func() error {
		return r.Close(key)
	})
	term.OnClose(func() {
		if err := r.Close(key); err != nil && !errors.Is(err, errors.ErrCodeInstanceNotFound) {
			r.logger.WithError(err).WithField("presence", name).Warn("Teardown after terminal close failed")
		}
	})

	r.mu.Lock()
	r.instances[key] = h
	r.mu.Unlock()

	term.Show()
	r.logger.WithFields(logrus.Fields{"presence": name, "key": key, "id": h.ID}).Info("Instance opened")
	return h, false, nil
}

// Close stops and forgets the instance. The entry is removed before
// anything else, so a close triggered by the teardown itself is a no-op.
// Until Stop returns the key stays reserved and Open for it blocks.
func (r *Registry) Close(key Key) error {
	r.mu.Lock()
	h, ok := r.instances[key]
	done := make(chan struct{})
	if ok {
		delete(r.instances, key)
		r.closing[key] = done
	}
	r.mu.Unlock()
	if !ok {
		return errors.InstanceNotFound(string(key))
	}

	err := h.Compiler.Stop()
	h.command.Dispose()
	h.Terminal.Dispose()

	r.mu.Lock()
	delete(r.closing, key)
	r.mu.Unlock()
	close(done)

	r.logger.WithFields(logrus.Fields{"presence": h.Name, "key": key}).Info("Instance closed")
	return err
}

// waitClosed blocks while an earlier instance for key is still stopping.
func (r *Registry) waitClosed(ctx context.Context, key Key) error {
	r.mu.Lock()
	done, ok := r.closing[key]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	r.logger.WithField("key", key).Debug("Waiting for previous instance to stop")
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrCodeSessionRunning, "previous instance is still stopping")
	}
}

// CloseName closes the instance for a presence name.
func (r *Registry) CloseName(name string) error {
	if r.Normalize != nil {
		if canonical, err := r.Normalize(name); err == nil {
			name = canonical
		}
	}
	return r.Close(EncodeKey(name))
}

// Get looks up a live instance.
func (r *Registry) Get(key Key) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.instances[key]
	return h, ok
}

// List returns live instances ordered by name.
func (r *Registry) List() []*Handle {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.instances))
	for _, h := range r.instances {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i].Name < handles[j].Name })
	return handles
}

// CloseAll closes every instance and returns the first error.
func (r *Registry) CloseAll() error {
	var first error
	for _, h := range r.List() {
		if err := r.Close(h.Key); err != nil && first == nil && !errors.Is(err, errors.ErrCodeInstanceNotFound) {
			first = err
		}
	}
	return first
}
