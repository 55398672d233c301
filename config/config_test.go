package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/premid/pmd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome keeps the developer's global config out of tests.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PMD_HOME", home)
	return home
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "dist", cfg.Build.OutDir)
	assert.True(t, cfg.Build.TypeCheckEnabled())
	assert.Equal(t, "npm", cfg.PackageManager.Command)
	assert.Equal(t, []string{"install", "--loglevel", "error", "--save-exact"}, cfg.PackageManager.InstallArgs)
	assert.Equal(t, []string{"NODE_ENV"}, cfg.PackageManager.ClearEnv)
	assert.Equal(t, 600, cfg.PackageManager.TimeoutSec)
	assert.Equal(t, 100, cfg.Watch.DebounceMs)
	assert.Contains(t, cfg.Watch.Ignore, "*.d.ts")
	assert.Equal(t, "auto", cfg.Output.Color)
}

// TestExtensions verifies that custom extensions in pmd.yml are properly loaded
func TestExtensions(t *testing.T) {
	yamlContent := []byte(`
version: "1.0"
build:
  out_dir: out

logging:
  level: debug
  report_caller: true
`)

	cfg, err := LoadFromBytes(yamlContent)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Build.OutDir)
	require.Contains(t, cfg.Extensions, "logging")

	type loggingConfig struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
	}
	var logCfg loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)

	// Missing extensions leave the target untouched.
	var other loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("missing", &other))
	assert.Empty(t, other.Level)
}

func TestLoadFromWalksUpAndResolvesRoot(t *testing.T) {
	isolateHome(t)
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "pmd.yml"), []byte("presences_dir: presences\nwatch:\n  debounce_ms: 250\n"), 0644))
	nested := filepath.Join(repo, "presences", "websites", "Y", "YouTube")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(repo, "pmd.yml"), cfg.Path)
	assert.Equal(t, filepath.Join(repo, "presences"), cfg.Root)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)
	assert.Equal(t, "npm", cfg.PackageManager.Command, "defaults still apply")
}

func TestLoadFromWithoutProjectFile(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, dir, cfg.Root)
}

func TestGlobalThenProjectLayering(t *testing.T) {
	home := isolateHome(t)
	globalDir := filepath.Join(home, "config", "pmd")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yml"), []byte(`
package_manager:
  command: pnpm
output:
  prefix: "[pmd] "
`), 0644))

	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "pmd.yml"), []byte("output:\n  color: never\n"), 0644))

	cfg, err := LoadFrom(repo)
	require.NoError(t, err)
	assert.Equal(t, "pnpm", cfg.PackageManager.Command)
	assert.Equal(t, "[pmd] ", cfg.Output.Prefix)
	assert.Equal(t, "never", cfg.Output.Color)
}

func TestLoadTOML(t *testing.T) {
	isolateHome(t)
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "pmd.toml"), []byte(`
presences_dir = "."

[build]
typecheck = false
target = "es2022"

[logging]
level = "warn"
`), 0644))

	cfg, err := LoadFrom(repo)
	require.NoError(t, err)
	assert.False(t, cfg.Build.TypeCheckEnabled())
	assert.Equal(t, "es2022", cfg.Build.Target)
	assert.Contains(t, cfg.Extensions, "logging")
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("PMD_TEST_PM", "yarn")
	cfg, err := LoadFromBytes([]byte("package_manager:\n  command: ${PMD_TEST_PM}\noutput:\n  prefix: \"${PMD_UNSET_VAR:-pmd> }\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "yarn", cfg.PackageManager.Command)
	assert.Equal(t, "pmd> ", cfg.Output.Prefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad color", "output:\n  color: rainbow\n"},
		{"escaping out dir", "build:\n  out_dir: ../elsewhere\n"},
		{"bad target", "build:\n  target: es5\n"},
		{"bad command", "package_manager:\n  command: \"npm; rm -rf /\"\n"},
		{"bad env name", "package_manager:\n  clear_env: [\"NODE ENV\"]\n"},
		{"negative debounce", "watch:\n  debounce_ms: -5\n"},
		{"install timeout too long", "package_manager:\n  timeout_seconds: 7200\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid) || errors.Is(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestFindConfigFileNotFound(t *testing.T) {
	_, err := FindConfigFile(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "package_manager")
	assert.Contains(t, props, "watch")
	assert.NotContains(t, props, "Root")
}
