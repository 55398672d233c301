package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// PresenceOptions controls the files written by NewPresence.
type PresenceOptions struct {
	// Service is the metadata "service" value; defaults to the presence name.
	Service string
	// Iframe also writes iframe.ts.
	Iframe bool
	// Manifest is written to package.json when non-empty.
	Manifest string
	// NodeModules creates an empty node_modules directory.
	NodeModules bool
}

// NewPresence lays out websites/<Letter>/<name> under root and returns the
// presence directory.
func NewPresence(t *testing.T, root, name string, opts PresenceOptions) string {
	t.Helper()

	dir := filepath.Join(root, "websites", letterDir(name), name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	service := opts.Service
	if service == "" {
		service = name
	}
	WriteFile(t, filepath.Join(dir, "metadata.json"), MetadataJSON(service))
	WriteFile(t, filepath.Join(dir, "presence.ts"), "const presence = new Presence({ clientId: \"1\" });\n")
	if opts.Iframe {
		WriteFile(t, filepath.Join(dir, "iframe.ts"), "const iframe = new iFrame();\n")
	}
	if opts.Manifest != "" {
		WriteFile(t, filepath.Join(dir, "package.json"), opts.Manifest)
	}
	if opts.NodeModules {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0755))
	}
	return dir
}

// MetadataJSON renders a minimal metadata.json that passes schema validation.
func MetadataJSON(service string) string {
	meta := map[string]interface{}{
		"$schema":     "https://schemas.premid.app/metadata/1.10",
		"apiVersion":  1,
		"author":      map[string]string{"name": "Tester", "id": "123456789012345678"},
		"service":     service,
		"description": map[string]string{"en": "Test presence"},
		"url":         strings.ToLower(strings.ReplaceAll(service, " ", "")) + ".com",
		"version":     "1.0.0",
		"logo":        "https://example.com/logo.png",
		"thumbnail":   "https://example.com/thumb.png",
		"color":       "#FF0000",
		"category":    "other",
		"tags":        []string{"test"},
	}
	data, _ := json.MarshalIndent(meta, "", "\t")
	return string(data) + "\n"
}

// WriteFile writes content, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

func letterDir(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r < unicode.MaxASCII && unicode.IsLetter(r) {
		return strings.ToUpper(string(r))
	}
	return "#"
}
