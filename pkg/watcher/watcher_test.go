package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l.WithField("component", "watcher-test")
}

func startWatcher(t *testing.T, dir string, opts Options) (*Watcher, <-chan Event) {
	t.Helper()
	w, err := New(dir, opts, testLogger())
	require.NoError(t, err)
	events, err := w.Watch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, events
}

func expectEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func expectNoEvent(t *testing.T, events <-chan Event, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s %s", ev.Kind, ev.Name())
	case <-time.After(wait):
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want Kind
		ok   bool
	}{
		{fsnotify.Create, Added, true},
		{fsnotify.Write, Changed, true},
		{fsnotify.Remove, Removed, true},
		{fsnotify.Rename, Removed, true},
		{fsnotify.Create | fsnotify.Write, Added, true},
		{fsnotify.Chmod, 0, false},
	}
	for _, tt := range tests {
		got, ok := normalize(tt.op)
		assert.Equal(t, tt.ok, ok, tt.op.String())
		if ok {
			assert.Equal(t, tt.want, got, tt.op.String())
		}
	}
}

func TestAddedChangedRemoved(t *testing.T) {
	dir := t.TempDir()
	_, events := startWatcher(t, dir, Options{Debounce: 30 * time.Millisecond})

	path := filepath.Join(dir, "iframe.ts")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))
	ev := expectEvent(t, events)
	assert.Equal(t, Added, ev.Kind, "create followed by write stays added")
	assert.Equal(t, "iframe.ts", ev.Name())
	assert.Equal(t, path, ev.Path)

	require.NoError(t, os.WriteFile(path, []byte("b"), 0644))
	assert.Equal(t, Changed, expectEvent(t, events).Kind)

	require.NoError(t, os.Remove(path))
	assert.Equal(t, Removed, expectEvent(t, events).Kind)
}

func TestNoEventsForExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presence.ts"), []byte("x"), 0644))

	_, events := startWatcher(t, dir, Options{Debounce: 10 * time.Millisecond})
	expectNoEvent(t, events, 150*time.Millisecond)
}

func TestIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	_, events := startWatcher(t, dir, Options{
		Debounce: 10 * time.Millisecond,
		Ignore:   []string{"node_modules", "dist", "*.js", "*.d.ts"},
	})

	require.NoError(t, os.Mkdir(filepath.Join(dir, "dist"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presence.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.d.ts"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0755))
	expectNoEvent(t, events, 150*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0644))
	assert.Equal(t, "package.json", expectEvent(t, events).Name())
}

func TestWithoutDebounceDeliversRawKinds(t *testing.T) {
	dir := t.TempDir()
	_, events := startWatcher(t, dir, Options{})

	f, err := os.Create(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	assert.Equal(t, Added, expectEvent(t, events).Kind)
	_, err = f.WriteString("{}")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, Changed, expectEvent(t, events).Kind)
}

func TestMissingDirectoryIsRetried(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	_, events := startWatcher(t, dir, Options{
		Debounce:      10 * time.Millisecond,
		RetryInterval: 10 * time.Millisecond,
	})

	require.NoError(t, os.Mkdir(dir, 0755))
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "presence.ts"), []byte("x"), 0644))
	ev := expectEvent(t, events)
	assert.Equal(t, Added, ev.Kind)
}

func TestCloseIsIdempotentAndClosesChannel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{}, testLogger())
	require.NoError(t, err)
	events, err := w.Watch(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-events
	assert.False(t, ok)

	_, err = w.Watch(context.Background())
	assert.Error(t, err, "closed watcher cannot restart")
}

func TestContextCancelStopsWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), Options{}, testLogger())
	require.NoError(t, err)
	events, err := w.Watch(ctx)
	require.NoError(t, err)

	_, err = w.Watch(ctx)
	assert.Error(t, err, "second Watch call is rejected")

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	require.NoError(t, w.Close())
}

func TestInvalidIgnorePattern(t *testing.T) {
	_, err := New(t.TempDir(), Options{Ignore: []string{"["}}, testLogger())
	assert.Error(t, err)
}
