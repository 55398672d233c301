package bundler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// outputWriter writes build outputs, skipping files whose content did not
// change so downstream file watchers only see real updates.
type outputWriter struct {
	mu     sync.Mutex
	hashes map[string][32]byte
}

func newOutputWriter() *outputWriter {
	return &outputWriter{hashes: make(map[string][32]byte)}
}

// write stores content at path. Script assets always end with a newline.
// It reports whether the file was rewritten.
func (w *outputWriter) write(path string, content []byte) (bool, error) {
	if isScript(path) && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(append([]byte(nil), content...), '\n')
	}
	sum := blake3.Sum256(content)

	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.hashes[path]
	if !ok {
		if existing, err := os.ReadFile(path); err == nil {
			prev, ok = blake3.Sum256(existing), true
		}
	}
	if ok && prev == sum {
		w.hashes[path] = sum
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.hashes[path] = sum
	return true, nil
}

// copy copies src to dst verbatim.
func (w *outputWriter) copy(src, dst string) (bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return false, err
	}
	sum := blake3.Sum256(data)

	w.mu.Lock()
	prev, ok := w.hashes[dst]
	w.mu.Unlock()
	if ok && prev == sum {
		if _, err := os.Stat(dst); err == nil {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return false, err
	}
	w.mu.Lock()
	w.hashes[dst] = sum
	w.mu.Unlock()
	return true, nil
}

func isScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}
