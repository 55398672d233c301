package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/premid/pmd/config"
	"github.com/premid/pmd/errors"
	internalhost "github.com/premid/pmd/internal/host"
	"github.com/premid/pmd/logging"
	"github.com/premid/pmd/pkg/bundler"
	"github.com/premid/pmd/pkg/compiler"
	"github.com/premid/pmd/pkg/host"
	"github.com/premid/pmd/pkg/installer"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBundler struct{}

func (stubBundler) Watch(_ context.Context, _ bundler.Options, obs bundler.Observer) (bundler.Watching, error) {
	obs.OnCompileStart()
	obs.OnAfterCompile(nil)
	return stubWatching{}, nil
}

type stubWatching struct{}

func (stubWatching) Suspend()     {}
func (stubWatching) Close() error { return nil }

type stubInstaller struct{}

func (stubInstaller) Install(context.Context, string, sink.Sink) (installer.Result, error) {
	return installer.Result{Skipped: true}, nil
}

// newRepo creates a presences repository with a pmd.yml whose host socket
// lives in a short temp dir, and returns the config path.
func newRepo(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		testutil.NewPresence(t, root, name, testutil.PresenceOptions{})
	}

	sockDir, err := os.MkdirTemp("", "pmd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	cfgPath := filepath.Join(root, "pmd.yml")
	testutil.WriteFile(t, cfgPath, "presences_dir: .\nhost:\n  socket: "+filepath.Join(sockDir, "host.sock")+"\n")
	return cfgPath
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func metadataPath(cfgPath, name string) string {
	return filepath.Join(filepath.Dir(cfgPath), "websites", name[:1], name, "metadata.json")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := newRepo(t, "YouTube", "Netflix")

	out, err := run(t, cfgPath, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "YouTube")
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, "2 presences valid")

	testutil.WriteFile(t, metadataPath(cfgPath, "Netflix"), `{"service": "Netflix"}`)

	out, err = run(t, cfgPath, "validate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMetadataInvalid))
	assert.Contains(t, err.Error(), "1 of 2 presences")
	assert.Contains(t, out, "Netflix")

	_, err = run(t, cfgPath, "validate", "YouTube")
	assert.NoError(t, err)
}

func TestValidateUnknownPresence(t *testing.T) {
	cfgPath := newRepo(t, "YouTube")

	_, err := run(t, cfgPath, "validate", "Twitch")
	assert.True(t, errors.Is(err, errors.ErrCodePresenceNotFound))
}

func TestBumpCommand(t *testing.T) {
	cfgPath := newRepo(t, "YouTube", "Netflix")

	out, err := run(t, cfgPath, "bump", "--level", "minor", "YouTube")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0 -> 1.1.0")

	data, err := os.ReadFile(metadataPath(cfgPath, "YouTube"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.1.0"`)

	out, err = run(t, cfgPath, "bump", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "1.1.0 -> 1.1.1")
	assert.Contains(t, out, "1.0.0 -> 1.0.1")
}

func TestBumpRequiresTargets(t *testing.T) {
	cfgPath := newRepo(t, "YouTube")

	_, err := run(t, cfgPath, "bump")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = run(t, cfgPath, "bump", "--all", "YouTube")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = run(t, cfgPath, "bump", "--level", "huge", "YouTube")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	cfgPath := newRepo(t)

	out, err := run(t, cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: "+cfgPath)
	assert.Contains(t, out, "out_dir: dist")

	out, err = run(t, cfgPath, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"package_manager"`)

	out, err = run(t, cfgPath, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, `"socket"`)
}

func TestClientCommandsWithoutHost(t *testing.T) {
	cfgPath := newRepo(t, "YouTube")

	_, err := run(t, cfgPath, "open", "YouTube")
	assert.True(t, errors.Is(err, errors.ErrCodeHostNotRunning))

	out, err := run(t, cfgPath, "host", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Host is not running")
}

func TestClientCommandsAgainstHost(t *testing.T) {
	cfgPath := newRepo(t, "YouTube")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- internalhost.Run(ctx, internalhost.Options{
			Config:  cfg,
			Deps:    compiler.Deps{Bundler: stubBundler{}, Installer: stubInstaller{}},
			PidFile: filepath.Join(t.TempDir(), "host.pid"),
			Logger:  logging.NewLogger("host-test"),
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	client := host.NewClient(internalhost.SocketPath(cfg))
	require.Eventually(t, client.IsRunning, 5*time.Second, 10*time.Millisecond)

	out, err := run(t, cfgPath, "open", "YouTube")
	require.NoError(t, err)
	assert.Equal(t, "WW91VHViZQ", strings.TrimSpace(out))

	out, err = run(t, cfgPath, "open", "youtube")
	require.NoError(t, err)
	assert.Contains(t, out, AlreadyModifiedMessage)

	out, err = run(t, cfgPath, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "YouTube")

	out, err = run(t, cfgPath, "host", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Instances: 1")

	out, err = run(t, cfgPath, "stop", "youtube")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped YouTube")

	out, err = run(t, cfgPath, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No presences are being compiled")

	_, err = run(t, cfgPath, "close", "YouTube")
	assert.True(t, errors.Is(err, errors.ErrCodeInstanceNotFound))

	_, err = run(t, cfgPath, "open", "YouTube")
	require.NoError(t, err)
	out, err = run(t, cfgPath, "close", "YouTube")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed YouTube")
}

func TestTimingFlagPrintsSummary(t *testing.T) {
	cfgPath := newRepo(t, "YouTube")

	out, err := run(t, cfgPath, "--timing", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Timing Profile")
	assert.Contains(t, out, "validate")
}
