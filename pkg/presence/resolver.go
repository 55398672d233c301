package presence

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/pathutil"
)

// WebsitesDir is the top-level directory holding every presence.
const WebsitesDir = "websites"

// Resolver locates presences in a repository laid out as
// websites/<Letter>/<Name>.
type Resolver struct {
	Root   string
	OutDir string
}

// LetterDir is the bucket a presence name is filed under; names that do not
// start with an ASCII letter go under "#".
func LetterDir(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r < unicode.MaxASCII && unicode.IsLetter(r) {
		return strings.ToUpper(string(r))
	}
	return "#"
}

// Resolve finds a presence by directory name, falling back to a
// case-insensitive match on the metadata service field. A path to an
// existing presence directory is accepted as is.
func (r Resolver) Resolve(name string) (Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Target{}, errors.New(errors.ErrCodeInvalidInput, "presence name cannot be empty")
	}

	if looksLikePath(name) {
		abs, err := pathutil.Canonical(name)
		if err == nil {
			t := NewTarget(abs, r.OutDir)
			if t.Check() == nil {
				return t, nil
			}
		}
	}

	direct := NewTarget(filepath.Join(r.Root, WebsitesDir, LetterDir(name), name), r.OutDir)
	if direct.Check() == nil {
		return direct, nil
	}

	all, err := r.All()
	if err != nil {
		return Target{}, err
	}
	for _, t := range all {
		if strings.EqualFold(t.Name(), name) {
			return t, nil
		}
		meta, err := t.ReadMetadata()
		if err == nil && strings.EqualFold(meta.Service, name) {
			return t, nil
		}
	}
	return Target{}, errors.PresenceNotFound(name)
}

// All lists every presence directory in the repository, sorted by name.
func (r Resolver) All() ([]Target, error) {
	base := filepath.Join(r.Root, WebsitesDir)
	letters, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodePresenceNotFound, "failed to read websites directory").
			WithDetail("path", base)
	}

	var targets []Target
	for _, letter := range letters {
		if !letter.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(base, letter.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			t := NewTarget(filepath.Join(base, letter.Name(), entry.Name()), r.OutDir)
			if fileExists(t.MetadataPath()) {
				targets = append(targets, t)
			}
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		return strings.ToLower(targets[i].Name()) < strings.ToLower(targets[j].Name())
	})
	return targets, nil
}

func looksLikePath(name string) bool {
	return strings.ContainsRune(name, filepath.Separator) || strings.HasPrefix(name, ".")
}
