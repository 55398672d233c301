// Package watcher reports file changes inside a single presence directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moby/patternmatcher"
	"github.com/premid/pmd/logging"
	"github.com/sirupsen/logrus"
)

// Kind is the normalized change type.
type Kind int

const (
	Added Kind = iota
	Changed
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a debounced change to one path directly inside the watched
// directory.
type Event struct {
	Kind Kind
	Path string
}

// Name is the base name of the changed path.
func (e Event) Name() string { return filepath.Base(e.Path) }

const (
	DefaultDebounce      = 100 * time.Millisecond
	DefaultRetryInterval = time.Second
)

// Options tune a Watcher. Zero RetryInterval selects the default; zero
// Debounce disables debouncing.
type Options struct {
	Debounce      time.Duration
	RetryInterval time.Duration
	Ignore        []string
}

// Watcher watches one directory (depth 1). Pre-existing files produce no
// events. A directory that does not exist yet is retried until it appears.
type Watcher struct {
	dir     string
	opts    Options
	logger  *logrus.Entry
	matcher *patternmatcher.PatternMatcher

	mu      sync.Mutex
	started bool
	pending map[string]*pendingEvent

	ready     chan string
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type pendingEvent struct {
	kind  Kind
	timer *time.Timer
}

// New creates a Watcher for dir. A nil logger uses the "watcher" component
// logger.
func New(dir string, opts Options, logger *logrus.Entry) (*Watcher, error) {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if logger == nil {
		logger = logging.NewLogger("watcher")
	}

	matcher, err := patternmatcher.New(opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	return &Watcher{
		dir:     abs,
		opts:    opts,
		logger:  logger.WithField("dir", abs),
		matcher: matcher,
		pending: make(map[string]*pendingEvent),
		ready:   make(chan string, 16),
		done:    make(chan struct{}),
	}, nil
}

// Dir is the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Watch starts watching and returns the event channel, which is closed when
// ctx is cancelled or Close is called. Watch may only be called once.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return nil, fmt.Errorf("watcher for %s is closed", w.dir)
	default:
	}
	if w.started {
		return nil, fmt.Errorf("watcher for %s already started", w.dir)
	}
	w.started = true

	out := make(chan Event, 16)
	w.wg.Add(1)
	go w.run(ctx, out)
	return out, nil
}

// Close stops the watcher and waits for its goroutine. Safe to call more
// than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.stopPending()
	})
	w.wg.Wait()
	return nil
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) run(ctx context.Context, out chan<- Event) {
	defer w.wg.Done()
	defer close(out)
	defer w.stopPending()

	for {
		fsw, ok := w.attach(ctx)
		if !ok {
			return
		}
		reattach := w.loop(ctx, fsw, out)
		fsw.Close()
		if !reattach {
			return
		}
		w.logger.Debug("Watched directory removed, waiting for it to reappear")
	}
}

// attach blocks until the directory can be watched. Returns false when the
// watcher is shutting down.
func (w *Watcher) attach(ctx context.Context) (*fsnotify.Watcher, bool) {
	warned := false
	for {
		fsw, err := w.tryAttach()
		if err == nil {
			if warned {
				w.logger.Info("Directory appeared, watching")
			}
			return fsw, true
		}
		if !warned {
			w.logger.WithError(err).Warn("Cannot watch directory yet, retrying")
			warned = true
		}

		select {
		case <-time.After(w.opts.RetryInterval):
		case <-ctx.Done():
			return nil, false
		case <-w.done:
			return nil, false
		}
	}
}

func (w *Watcher) tryAttach() (*fsnotify.Watcher, error) {
	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// loop pumps fsnotify events until shutdown. It returns true when the
// watched directory itself went away and should be re-attached.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) bool {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return false
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if filepath.Clean(event.Name) == w.dir {
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					return true
				}
				continue
			}

			kind, ok := normalize(event.Op)
			if !ok || w.ignored(event.Name) {
				continue
			}
			if w.opts.Debounce == 0 {
				if !w.send(ctx, out, Event{Kind: kind, Path: event.Name}) {
					return false
				}
				continue
			}
			w.schedule(event.Name, kind)

		case path := <-w.ready:
			w.mu.Lock()
			p, ok := w.pending[path]
			delete(w.pending, path)
			w.mu.Unlock()
			if !ok {
				continue
			}
			if !w.send(ctx, out, Event{Kind: p.kind, Path: path}) {
				return false
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return false
			}
			w.logger.Errorf("Watcher error: %v", err)

		case <-ctx.Done():
			return false
		case <-w.done:
			return false
		}
	}
}

func (w *Watcher) send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-w.done:
		return false
	}
}

// schedule debounces path. A pending Added absorbs later Changed events so
// a freshly written file is still reported as added.
func (w *Watcher) schedule(path string, kind Kind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		if !(p.kind == Added && kind == Changed) {
			p.kind = kind
		}
		p.timer = w.fire(path)
		return
	}
	w.pending[path] = &pendingEvent{kind: kind, timer: w.fire(path)}
}

func (w *Watcher) fire(path string) *time.Timer {
	return time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return false
	}
	matched, err := w.matcher.MatchesOrParentMatches(rel)
	if err != nil {
		w.logger.WithError(err).Debug("Ignore pattern match failed")
		return false
	}
	return matched
}

// normalize maps fsnotify ops onto event kinds; Chmod-only changes are
// dropped.
func normalize(op fsnotify.Op) (Kind, bool) {
	switch {
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Removed, true
	case op&fsnotify.Create != 0:
		return Added, true
	case op&fsnotify.Write != 0:
		return Changed, true
	default:
		return 0, false
	}
}
