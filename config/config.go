package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/premid/pmd/errors"
	"github.com/premid/pmd/pkg/paths"
	"github.com/premid/pmd/pkg/pathutil"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched in order in every directory while walking up.
var configNames = []string{
	"pmd.yml",
	"pmd.yaml",
	"pmd.toml",
	".pmd.yml",
	".pmd.yaml",
}

// Load reads and parses a single pmd configuration file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Path = path
	return finalize(cfg, filepath.Dir(path))
}

// LoadDefault loads the configuration for the current working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory.
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

// LoadFromWithLogger loads configuration with hierarchical merging:
// 1. Global config (~/.config/pmd/config.yml) - base layer
// 2. Project config (pmd.yml found walking up from startDir) - overrides global
//
// Neither file is required; without a project file presences are resolved
// relative to startDir.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	cfg := &Config{}

	if globalPath := paths.GlobalConfigPath(); globalPath != "" {
		if _, err := os.Stat(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			if err := decodeFile(globalPath, cfg); err != nil {
				logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
				cfg = &Config{}
			}
		}
	}

	rootDir := startDir
	projectPath, err := FindConfigFile(startDir)
	if err == nil {
		logger.WithField("path", projectPath).Debug("Loading project configuration")
		// Decoding over the global layer only replaces keys the project sets.
		if err := decodeFile(projectPath, cfg); err != nil {
			return nil, err
		}
		cfg.Path = projectPath
		rootDir = filepath.Dir(projectPath)
	} else if !errors.Is(err, errors.ErrCodeConfigNotFound) {
		return nil, err
	}

	final, err := finalize(cfg, rootDir)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := final.ToYAML(); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}

	return final, nil
}

// LoadFromBytes parses YAML configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}
	cwd, _ := os.Getwd()
	return finalize(cfg, cwd)
}

func finalize(cfg *Config, rootDir string) (*Config, error) {
	cfg.SetDefaults()

	root := cfg.PresencesDir
	if !filepath.IsAbs(root) && !strings.HasPrefix(root, "~") {
		root = filepath.Join(rootDir, root)
	}
	abs, err := pathutil.Expand(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to resolve presences_dir").
			WithDetail("presences_dir", cfg.PresencesDir)
	}
	cfg.Root = abs

	if cfg.Host.Socket != "" {
		if cfg.Host.Socket, err = pathutil.Expand(cfg.Host.Socket); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to resolve host.socket")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile decodes a YAML or TOML file on top of cfg.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ConfigNotFound(path)
		}
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := []byte(expandEnvVars(string(data)))

	if strings.HasSuffix(path, ".toml") {
		// TOML goes through a generic map so extension sections survive.
		var raw map[string]interface{}
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration").
				WithDetail("path", path)
		}
		expanded, err = yaml.Marshal(raw)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to convert TOML configuration").
				WithDetail("path", path)
		}
	}

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration").
			WithDetail("path", path)
	}
	return nil
}

// FindConfigFile searches for a pmd configuration file from startDir up to
// the filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
