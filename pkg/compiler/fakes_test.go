package compiler

import (
	"context"
	"sync"
	"time"

	"github.com/premid/pmd/pkg/bundler"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/premid/pmd/pkg/installer"
	"github.com/premid/pmd/pkg/sink"
)

// fakeBundler records every watch it starts and the entry map it saw.
type fakeBundler struct {
	mu        sync.Mutex
	watches   []*fakeWatching
	active    int
	maxActive int
	err       error
}

type fakeWatching struct {
	b       *fakeBundler
	entries map[string]string
	obs     bundler.Observer

	mu        sync.Mutex
	suspended int
	closed    int
}

func (b *fakeBundler) Watch(_ context.Context, opts bundler.Options, obs bundler.Observer) (bundler.Watching, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	w := &fakeWatching{b: b, entries: opts.Entries(), obs: obs}
	b.watches = append(b.watches, w)
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	return w, nil
}

func (b *fakeBundler) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watches)
}

func (b *fakeBundler) last() *fakeWatching {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.watches) == 0 {
		return nil
	}
	return b.watches[len(b.watches)-1]
}

func (b *fakeBundler) live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// build simulates one complete build on this handle.
func (w *fakeWatching) build(diags ...diagnostics.Diagnostic) {
	w.obs.OnCompileStart()
	w.obs.OnAfterCompile(diags)
}

func (w *fakeWatching) Suspend() {
	w.mu.Lock()
	w.suspended++
	w.mu.Unlock()
}

func (w *fakeWatching) Close() error {
	w.mu.Lock()
	w.closed++
	w.mu.Unlock()
	w.b.mu.Lock()
	w.b.active--
	w.b.mu.Unlock()
	return nil
}

// recorder collects an ordered log of lifecycle steps.
type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(step string) {
	r.mu.Lock()
	r.steps = append(r.steps, step)
	r.mu.Unlock()
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

// fakeLifecycle stands in for a Session.
type fakeLifecycle struct {
	rec *recorder
}

func (f *fakeLifecycle) Start(context.Context) error {
	f.rec.add("start")
	return nil
}

func (f *fakeLifecycle) Stop() error {
	f.rec.add("stop")
	return nil
}

func (f *fakeLifecycle) Restart(context.Context) error {
	f.rec.add("restart")
	return nil
}

// fakeInstaller tracks overlapping installs.
type fakeInstaller struct {
	rec   *recorder
	delay time.Duration

	mu         sync.Mutex
	calls      int
	running    int
	maxRunning int
}

func (f *fakeInstaller) Install(_ context.Context, _ string, out sink.Sink) (installer.Result, error) {
	f.mu.Lock()
	f.calls++
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	f.mu.Unlock()

	if f.rec != nil {
		f.rec.add("install")
	}
	time.Sleep(f.delay)
	out.AppendLine(installer.InstalledMessage)

	f.mu.Lock()
	f.running--
	f.mu.Unlock()
	return installer.Result{}, nil
}

func (f *fakeInstaller) stats() (calls, maxRunning int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.maxRunning
}
