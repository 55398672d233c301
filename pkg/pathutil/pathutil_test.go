package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PMD_TEST_DIR", "/srv/presences")

	tests := []struct {
		in   string
		want string
	}{
		{"~/presences", filepath.Join(home, "presences")},
		{"~", home},
		{"$PMD_TEST_DIR/websites", "/srv/presences/websites"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandRelative(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, err := Expand("websites")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "websites"), got)
}

func TestCanonicalResolvesSymlinks(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	real := filepath.Join(dir, "YouTube")
	require.NoError(t, os.Mkdir(real, 0755))
	link := filepath.Join(dir, "yt")
	require.NoError(t, os.Symlink(real, link))

	got, err := Canonical(link)
	require.NoError(t, err)
	assert.Equal(t, real, got)

	missing := filepath.Join(dir, "missing")
	got, err = Canonical(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)
}
