package registry

import (
	"sort"
	"sync"

	"github.com/premid/pmd/errors"
)

// Disposable unregisters something. Calling Dispose more than once is safe.
type Disposable interface {
	Dispose()
}

type disposeFunc struct {
	once sync.Once
	fn   func()
}

func (d *disposeFunc) Dispose() { d.once.Do(d.fn) }

// Commands is a table of externally invokable actions keyed by id.
type Commands struct {
	mu    sync.Mutex
	seq   uint64
	table map[string]commandEntry
}

type commandEntry struct {
	seq uint64
	fn  func() error
}

// NewCommands creates an empty command table.
func NewCommands() *Commands {
	return &Commands{table: make(map[string]commandEntry)}
}

// Register binds id to fn, replacing any previous binding. Disposing the
// result removes this binding only.
func (c *Commands) Register(id string, fn func() error) Disposable {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.table[id] = commandEntry{seq: seq, fn: fn}
	c.mu.Unlock()

	return &disposeFunc{fn: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.table[id]; ok && e.seq == seq {
			delete(c.table, id)
		}
	}}
}

// Execute runs the command registered under id. The table lock is not held
// while the command runs, so it may dispose itself.
func (c *Commands) Execute(id string) error {
	c.mu.Lock()
	e, ok := c.table[id]
	c.mu.Unlock()
	if !ok {
		return errors.UnknownCommand(id)
	}
	return e.fn()
}

// IDs lists the registered command ids in sorted order.
func (c *Commands) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.table))
	for id := range c.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
