// Package bump raises the version field of a presence's metadata.json.
package bump

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/premid/pmd/errors"
	"golang.org/x/mod/semver"
)

// Level selects which version component is raised.
type Level string

const (
	Patch Level = "patch"
	Minor Level = "minor"
	Major Level = "major"
)

// versionField matches the first "version": "<value>" pair.
var versionField = regexp.MustCompile(`("version"\s*:\s*")([^"]*)(")`)

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(s)); l {
	case Patch, Minor, Major:
		return l, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown bump level %q (want patch, minor or major)", s))
}

// Next returns version raised by level. Missing components count as zero and
// any prerelease or build suffix is dropped.
func Next(version string, level Level) (string, error) {
	canonical := semver.Canonical("v" + strings.TrimPrefix(version, "v"))
	if canonical == "" {
		return "", errors.New(errors.ErrCodeMetadataInvalid, fmt.Sprintf("%q is not a semantic version", version))
	}

	core := strings.TrimPrefix(canonical, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeMetadataInvalid, "invalid version component")
		}
		nums[i] = n
	}

	switch level {
	case Major:
		nums[0]++
		nums[1], nums[2] = 0, 0
	case Minor:
		nums[1]++
		nums[2] = 0
	case Patch:
		nums[2]++
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown bump level %q", level))
	}
	return fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]), nil
}

// Compare orders two versions like semver.Compare, without the v prefix.
func Compare(a, b string) int {
	return semver.Compare("v"+strings.TrimPrefix(a, "v"), "v"+strings.TrimPrefix(b, "v"))
}

// Result describes one rewritten file.
type Result struct {
	Path string `json:"path"`
	From string `json:"from"`
	To   string `json:"to"`
}

// File raises the version in the metadata file at path. Only the version
// value changes; indentation and key order are kept.
func File(path string, level Level) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeMetadataInvalid, "failed to read metadata").
			WithDetail("path", path)
	}

	loc := versionField.FindSubmatchIndex(data)
	if loc == nil {
		return Result{}, errors.New(errors.ErrCodeMetadataInvalid, "metadata has no version field").
			WithDetail("path", path)
	}
	current := string(data[loc[4]:loc[5]])

	next, err := Next(current, level)
	if err != nil {
		if pmdErr, ok := errors.As(err); ok {
			pmdErr.WithDetail("path", path)
		}
		return Result{}, err
	}

	var out []byte
	out = append(out, data[:loc[4]]...)
	out = append(out, next...)
	out = append(out, data[loc[5]:]...)

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to write metadata").
			WithDetail("path", path)
	}
	return Result{Path: path, From: current, To: next}, nil
}
