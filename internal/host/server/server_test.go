package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/host"
	"github.com/premid/pmd/pkg/registry"
	"github.com/premid/pmd/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	mu      sync.Mutex
	stopped int
}

func (f *fakeCompiler) Start(context.Context) error { return nil }

func (f *fakeCompiler) Stop() error {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
	return nil
}

func startHost(t *testing.T) (*host.Client, *registry.Registry) {
	t.Helper()

	// Unix socket paths are length limited, so stay out of the long test dir.
	dir, err := os.MkdirTemp("", "pmd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "host.sock")

	reg := registry.New(func(name string, term *sink.Terminal) (registry.Compiler, error) {
		if name == "Missing" {
			return nil, errors.PresenceNotFound(name)
		}
		term.AppendLine("compiling " + name)
		return &fakeCompiler{}, nil
	}, nil)

	srv := New(reg, dir, logging.NewLogger("host-test"))
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(socket) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
		assert.NoError(t, <-done)
	})

	client := host.NewClient(socket)
	require.Eventually(t, client.IsRunning, 5*time.Second, 10*time.Millisecond)
	return client, reg
}

func TestOpenListClose(t *testing.T) {
	client, reg := startHost(t)
	ctx := context.Background()

	info, existed, err := client.Open(ctx, "Disney+ Hotstar")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "Disney+ Hotstar", info.Name)
	assert.Equal(t, registry.EncodeKey("Disney+ Hotstar").String(), info.Key)
	assert.Equal(t, registry.CommandID(registry.Key(info.Key)), info.Command)
	assert.NotEmpty(t, info.ID)

	again, existed, err := client.Open(ctx, "Disney+ Hotstar")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, info.ID, again.ID)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Instances)
	assert.Equal(t, os.Getpid(), status.PID)

	require.NoError(t, client.Close(ctx, registry.Key(info.Key)))
	assert.Empty(t, reg.List())

	err = client.Close(ctx, registry.Key(info.Key))
	assert.True(t, errors.Is(err, errors.ErrCodeInstanceNotFound))
}

func TestOpenErrorsKeepTheirCode(t *testing.T) {
	client, _ := startHost(t)

	_, _, err := client.Open(context.Background(), "Missing")
	assert.True(t, errors.Is(err, errors.ErrCodePresenceNotFound))

	_, _, err = client.Open(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestExecuteTeardownCommand(t *testing.T) {
	client, reg := startHost(t)
	ctx := context.Background()

	info, _, err := client.Open(ctx, "YouTube")
	require.NoError(t, err)

	ids, err := client.Commands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{info.Command}, ids)

	require.NoError(t, client.Execute(ctx, info.Command))
	assert.Empty(t, reg.List())

	err = client.Execute(ctx, info.Command)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownCommand))
}

func TestAttachStreamsOutput(t *testing.T) {
	client, reg := startHost(t)
	ctx := context.Background()

	info, _, err := client.Open(ctx, "YouTube")
	require.NoError(t, err)
	h, ok := reg.Get(registry.Key(info.Key))
	require.True(t, ok)

	stream, err := client.Attach(ctx, registry.Key(info.Key))
	require.NoError(t, err)
	defer stream.Close()

	var got strings.Builder
	read := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for !strings.Contains(got.String(), want) {
			select {
			case chunk, ok := <-stream.Chunks():
				require.True(t, ok, "stream closed early")
				got.WriteString(chunk)
			case <-deadline:
				t.Fatalf("did not receive %q, got %q", want, got.String())
			}
		}
	}

	read("compiling YouTube\r\n")
	h.Terminal.AppendLine("Successfully compiled!")
	read("Successfully compiled!\r\n")

	require.NoError(t, stream.CloseTerminal())
	require.Eventually(t, func() bool { return len(reg.List()) == 0 }, 5*time.Second, 10*time.Millisecond)

	select {
	case _, ok := <-stream.Chunks():
		for ok {
			_, ok = <-stream.Chunks()
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after the instance closed")
	}
}

func TestAttachUnknownInstance(t *testing.T) {
	client, _ := startHost(t)
	_, err := client.Attach(context.Background(), registry.EncodeKey("nope"))
	assert.True(t, errors.Is(err, errors.ErrCodeInstanceNotFound))
}

func TestClientWithoutHost(t *testing.T) {
	_, err := host.Connect(filepath.Join(t.TempDir(), "absent.sock"))
	assert.True(t, errors.Is(err, errors.ErrCodeHostNotRunning))
}
