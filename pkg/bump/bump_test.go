package bump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/premid/pmd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		version string
		level   Level
		want    string
	}{
		{"1.2.3", Patch, "1.2.4"},
		{"1.2.3", Minor, "1.3.0"},
		{"1.2.3", Major, "2.0.0"},
		{"1.2", Patch, "1.2.1"},
		{"v0.9.9", Minor, "0.10.0"},
		{"2.0.0-beta.1", Patch, "2.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.version+"/"+string(tt.level), func(t *testing.T) {
			got, err := Next(tt.version, tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRejectsGarbage(t *testing.T) {
	_, err := Next("latest", Patch)
	assert.True(t, errors.Is(err, errors.ErrCodeMetadataInvalid))

	_, err = Next("1.0.0", Level("huge"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("MINOR")
	require.NoError(t, err)
	assert.Equal(t, Minor, l)

	_, err = ParseLevel("tiny")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare("1.2.3", "1.10.0"))
	assert.Equal(t, 0, Compare("v1.0.0", "1.0.0"))
	assert.Equal(t, 1, Compare("2.0.0", "1.99.99"))
}

func TestFilePreservesFormatting(t *testing.T) {
	original := "{\n\t\"service\": \"YouTube\",\n\t\"version\":  \"2.4.9\",\n\t\"tags\": [\"video\"]\n}\n"
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(original), 0600))

	res, err := File(path, Minor)
	require.NoError(t, err)
	assert.Equal(t, Result{Path: path, From: "2.4.9", To: "2.5.0"}, res)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"service\": \"YouTube\",\n\t\"version\":  \"2.5.0\",\n\t\"tags\": [\"video\"]\n}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileWithoutVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"service":"x"}`), 0644))

	_, err := File(path, Patch)
	assert.True(t, errors.Is(err, errors.ErrCodeMetadataInvalid))
}
