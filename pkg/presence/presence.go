// Package presence describes a presence directory on disk and how to find
// one by service name inside a presences repository.
package presence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/premid/pmd/errors"
)

// Well-known file names inside a presence directory.
const (
	PresenceFile = "presence.ts"
	IframeFile   = "iframe.ts"
	MetadataFile = "metadata.json"
	ManifestFile = "package.json"
	NodeModules  = "node_modules"
)

// Lockfiles are removed together with node_modules when the manifest goes away.
var Lockfiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}

// Target is a single presence directory.
type Target struct {
	Dir    string
	OutDir string
}

// NewTarget returns a Target for dir with outputs under dir/outDir.
func NewTarget(dir, outDir string) Target {
	if outDir == "" {
		outDir = "dist"
	}
	return Target{Dir: dir, OutDir: outDir}
}

// Name is the presence directory name.
func (t Target) Name() string { return filepath.Base(t.Dir) }

// Path joins name onto the presence directory.
func (t Target) Path(name string) string { return filepath.Join(t.Dir, name) }

// PresencePath is the main entry point.
func (t Target) PresencePath() string { return t.Path(PresenceFile) }

// IframePath is the optional iframe entry point.
func (t Target) IframePath() string { return t.Path(IframeFile) }

// MetadataPath is the metadata descriptor.
func (t Target) MetadataPath() string { return t.Path(MetadataFile) }

// ManifestPath is the package manifest.
func (t Target) ManifestPath() string { return t.Path(ManifestFile) }

// NodeModulesPath is the installed dependency directory.
func (t Target) NodeModulesPath() string { return t.Path(NodeModules) }

// DistPath is the absolute output directory.
func (t Target) DistPath() string {
	if filepath.IsAbs(t.OutDir) {
		return t.OutDir
	}
	return t.Path(t.OutDir)
}

// HasIframe reports whether iframe.ts exists right now.
func (t Target) HasIframe() bool { return fileExists(t.IframePath()) }

// HasNodeModules reports whether dependencies have been installed.
func (t Target) HasNodeModules() bool {
	info, err := os.Stat(t.NodeModulesPath())
	return err == nil && info.IsDir()
}

// Entries maps output names to entry files: presence always, iframe only
// when the file exists at call time.
func (t Target) Entries() map[string]string {
	entries := map[string]string{"presence": t.PresencePath()}
	if t.HasIframe() {
		entries["iframe"] = t.IframePath()
	}
	return entries
}

// Check verifies the files every presence needs.
func (t Target) Check() error {
	info, err := os.Stat(t.Dir)
	if err != nil || !info.IsDir() {
		return errors.PresenceInvalid(t.Dir, "directory")
	}
	for _, required := range []string{PresenceFile, MetadataFile} {
		if !fileExists(t.Path(required)) {
			return errors.PresenceInvalid(t.Dir, required)
		}
	}
	return nil
}

// Metadata is the subset of metadata.json pmd reads.
type Metadata struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Iframe  bool   `json:"iframe,omitempty"`
	Author  struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"author"`
}

// ReadMetadata decodes metadata.json.
func (t Target) ReadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(t.MetadataPath())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetadataInvalid, "failed to read metadata").
			WithDetail("path", t.MetadataPath())
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMetadataInvalid, fmt.Sprintf("invalid JSON in %s", t.MetadataPath())).
			WithDetail("path", t.MetadataPath())
	}
	return &meta, nil
}

// SyncMetadata copies metadata.json into the output directory.
func (t Target) SyncMetadata() error {
	data, err := os.ReadFile(t.MetadataPath())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMetadataInvalid, "failed to read metadata").
			WithDetail("path", t.MetadataPath())
	}
	if err := os.MkdirAll(t.DistPath(), 0755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create output directory").
			WithDetail("path", t.DistPath())
	}
	dst := filepath.Join(t.DistPath(), MetadataFile)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to copy metadata").
			WithDetail("path", dst)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
