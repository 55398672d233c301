package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Default values applied by SetDefaults.
const (
	DefaultVersion         = "1.0"
	DefaultOutDir          = "dist"
	DefaultTarget          = "es2020"
	DefaultPackageManager  = "npm"
	DefaultDebounceMs      = 100
	DefaultRetryIntervalMs = 1000
	DefaultInstallTimeout  = 600
	DefaultColor           = "auto"
)

var (
	defaultInstallArgs      = []string{"install", "--loglevel", "error", "--save-exact"}
	defaultClearEnv         = []string{"NODE_ENV"}
	defaultTypeCheckCommand = []string{"npx", "tsc"}
	defaultIgnore           = []string{"node_modules", "dist", "*.js", "*.d.ts"}
)

// BuildConfig controls how a presence is bundled.
type BuildConfig struct {
	OutDir           string   `yaml:"out_dir,omitempty" toml:"out_dir,omitempty" jsonschema:"description=Output directory relative to the presence (default: dist)"`
	Target           string   `yaml:"target,omitempty" toml:"target,omitempty" jsonschema:"description=JavaScript language target,enum=es2015,enum=es2016,enum=es2017,enum=es2018,enum=es2019,enum=es2020,enum=es2021,enum=es2022,enum=esnext"`
	Sourcemap        bool     `yaml:"sourcemap,omitempty" toml:"sourcemap,omitempty" jsonschema:"description=Emit inline source maps"`
	TypeCheck        *bool    `yaml:"typecheck,omitempty" toml:"typecheck,omitempty" jsonschema:"description=Run the TypeScript compiler for type-aware diagnostics (default: true)"`
	TypeCheckCommand []string `yaml:"typecheck_command,omitempty" toml:"typecheck_command,omitempty" jsonschema:"description=Command used to invoke tsc (default: npx tsc)"`
}

// TypeCheckEnabled reports whether type checking should run.
func (b BuildConfig) TypeCheckEnabled() bool {
	return b.TypeCheck == nil || *b.TypeCheck
}

// PackageManagerConfig controls dependency installation.
type PackageManagerConfig struct {
	Command     string   `yaml:"command,omitempty" toml:"command,omitempty" jsonschema:"description=Package manager executable (default: npm)"`
	InstallArgs []string `yaml:"install_args,omitempty" toml:"install_args,omitempty" jsonschema:"description=Arguments for the install invocation"`
	ClearEnv    []string `yaml:"clear_env,omitempty" toml:"clear_env,omitempty" jsonschema:"description=Environment variables removed from the install process (default: NODE_ENV)"`
	TimeoutSec  int      `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty" jsonschema:"description=Seconds an install may run before it is killed (default: 600; max: 1800)"`
}

// WatchConfig controls the presence directory watcher.
type WatchConfig struct {
	DebounceMs      int      `yaml:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" jsonschema:"description=Per-file debounce window in milliseconds (0 disables)"`
	RetryIntervalMs int      `yaml:"retry_interval_ms,omitempty" toml:"retry_interval_ms,omitempty" jsonschema:"description=Retry interval when the presence directory does not exist yet"`
	Ignore          []string `yaml:"ignore,omitempty" toml:"ignore,omitempty" jsonschema:"description=Glob patterns ignored by the watcher"`
}

// OutputConfig controls how compiler output is rendered.
type OutputConfig struct {
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty" jsonschema:"description=Prefix prepended to every diagnostic line"`
	Color  string `yaml:"color,omitempty" toml:"color,omitempty" jsonschema:"description=Colorize diagnostics,enum=auto,enum=always,enum=never"`
}

// HostConfig controls the multi-instance host daemon.
type HostConfig struct {
	Socket string `yaml:"socket,omitempty" toml:"socket,omitempty" jsonschema:"description=Unix socket path (default: XDG runtime dir)"`
}

// MetadataConfig controls metadata validation.
type MetadataConfig struct {
	SchemaURL string `yaml:"schema_url,omitempty" toml:"schema_url,omitempty" jsonschema:"description=Remote metadata JSON schema; the embedded schema is used when empty"`
}

// Config is the pmd configuration loaded from pmd.yml or pmd.toml.
type Config struct {
	Version        string               `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	PresencesDir   string               `yaml:"presences_dir,omitempty" toml:"presences_dir,omitempty" jsonschema:"description=Repository root containing the websites/ tree"`
	Build          BuildConfig          `yaml:"build,omitempty" toml:"build,omitempty" jsonschema:"description=Bundling options"`
	PackageManager PackageManagerConfig `yaml:"package_manager,omitempty" toml:"package_manager,omitempty" jsonschema:"description=Dependency installation options"`
	Watch          WatchConfig          `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=File watcher options"`
	Output         OutputConfig         `yaml:"output,omitempty" toml:"output,omitempty" jsonschema:"description=Compiler output options"`
	Host           HostConfig           `yaml:"host,omitempty" toml:"host,omitempty" jsonschema:"description=Host daemon options"`
	Metadata       MetadataConfig       `yaml:"metadata,omitempty" toml:"metadata,omitempty" jsonschema:"description=Metadata validation options"`

	// Extensions captures all other top-level keys (e.g. logging).
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`

	// Root is the absolute directory presences are resolved from.
	Root string `yaml:"-" toml:"-" jsonschema:"-"`
	// Path is the project config file that was loaded, if any.
	Path string `yaml:"-" toml:"-" jsonschema:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.PresencesDir == "" {
		c.PresencesDir = "."
	}
	if c.Build.OutDir == "" {
		c.Build.OutDir = DefaultOutDir
	}
	if c.Build.Target == "" {
		c.Build.Target = DefaultTarget
	}
	if len(c.Build.TypeCheckCommand) == 0 {
		c.Build.TypeCheckCommand = append([]string(nil), defaultTypeCheckCommand...)
	}
	if c.PackageManager.Command == "" {
		c.PackageManager.Command = DefaultPackageManager
	}
	if len(c.PackageManager.InstallArgs) == 0 {
		c.PackageManager.InstallArgs = append([]string(nil), defaultInstallArgs...)
	}
	if c.PackageManager.TimeoutSec == 0 {
		c.PackageManager.TimeoutSec = DefaultInstallTimeout
	}
	if c.PackageManager.ClearEnv == nil {
		c.PackageManager.ClearEnv = append([]string(nil), defaultClearEnv...)
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = DefaultDebounceMs
	}
	if c.Watch.RetryIntervalMs == 0 {
		c.Watch.RetryIntervalMs = DefaultRetryIntervalMs
	}
	if c.Watch.Ignore == nil {
		c.Watch.Ignore = append([]string(nil), defaultIgnore...)
	}
	if c.Output.Color == "" {
		c.Output.Color = DefaultColor
	}
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded pmd.yml into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ToYAML renders the effective configuration.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
