package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/premid/pmd/pkg/bundler"
	"github.com/premid/pmd/pkg/diagnostics"
	"github.com/premid/pmd/pkg/presence"
	"github.com/premid/pmd/pkg/sink"
	"github.com/premid/pmd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestCompilerWithESBuild(t *testing.T) {
	dir := testutil.NewPresence(t, t.TempDir(), "YouTube", testutil.PresenceOptions{})
	target := presence.NewTarget(dir, "")
	term := sink.NewTerminal("YouTube")
	cfg := testConfig()
	cfg.Output.Color = diagnostics.ColorNever

	c := New(target, cfg, term, Deps{Bundler: bundler.NewESBuild(nil), Installer: &fakeInstaller{}})
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })

	presenceJS := filepath.Join(target.DistPath(), "presence.js")
	iframeJS := filepath.Join(target.DistPath(), "iframe.js")
	metadata := filepath.Join(target.DistPath(), presence.MetadataFile)

	require.Eventually(t, func() bool {
		return strings.Contains(term.String(), diagnostics.Summary(0))
	}, 10*time.Second, 20*time.Millisecond)
	out := readOutput(t, presenceJS)
	assert.Contains(t, out, "new Presence(")
	assert.True(t, strings.HasSuffix(out, "\n"), "bundles end with a newline")
	assert.NoFileExists(t, iframeJS)
	assert.FileExists(t, metadata)

	testutil.WriteFile(t, target.IframePath(), "const iframe = new iFrame();\n")
	require.Eventually(t, func() bool {
		return strings.HasSuffix(readOutput(t, iframeJS), "\n")
	}, 10*time.Second, 20*time.Millisecond)
	assert.Contains(t, readOutput(t, iframeJS), "new iFrame(")

	testutil.WriteFile(t, target.MetadataPath(), `{"service":"Edited"}`)
	require.Eventually(t, func() bool {
		return readOutput(t, metadata) == `{"service":"Edited"}`
	}, 10*time.Second, 20*time.Millisecond)

	testutil.WriteFile(t, target.PresencePath(), "const presence = ;\n")
	require.Eventually(t, func() bool {
		return strings.Contains(term.String(), diagnostics.Summary(1))
	}, 10*time.Second, 20*time.Millisecond)
	assert.Contains(t, term.Lines(), RecompilingMessage)
	assert.Contains(t, term.String(), "YouTube/presence.ts:1:")
}

func TestFormatterColorFollowsSink(t *testing.T) {
	t.Setenv("CLICOLOR_FORCE", "")
	dir := testutil.NewPresence(t, t.TempDir(), "YouTube", testutil.PresenceOptions{})
	target := presence.NewTarget(dir, "")
	d := diagnostics.Diagnostic{File: target.PresencePath(), Line: 1, Column: 1, Code: 2304, Message: "Cannot find name 'x'."}
	deps := Deps{Bundler: &fakeBundler{}, Installer: &fakeInstaller{}}

	term := New(target, testConfig(), sink.NewTerminal("YouTube"), deps)
	assert.Contains(t, term.Session().formatter.Format(d), "\x1b[", "terminals render color")

	var buf bytes.Buffer
	console := New(target, testConfig(), sink.NewConsoleWriters(&buf, &buf), deps)
	assert.NotContains(t, console.Session().formatter.Format(d), "\x1b[", "pipes stay plain")

	cfg := testConfig()
	cfg.Output.Color = diagnostics.ColorNever
	plain := New(target, cfg, sink.NewTerminal("YouTube"), deps)
	assert.NotContains(t, plain.Session().formatter.Format(d), "\x1b[")
}
