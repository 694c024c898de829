package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline contains the stage chain and its sizing.
type Pipeline struct {
	Stages          []string `toml:"stages"`
	WorkersPerStage int      `toml:"workers_per_stage"`
	QueueCapacity   int      `toml:"queue_capacity"`
	Sorters         int      `toml:"sorters"`
}

// Logging contains the logger settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Bench contains the benchmark settings.
type Bench struct {
	Runs       int    `toml:"runs"`
	SlowFactor int    `toml:"slow_factor"`
	ProfileDir string `toml:"profile_dir"`
}

// Config is the whole rowpipe configuration.
type Config struct {
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
	Bench    Bench    `toml:"bench"`
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/rowpipe/config.toml")
}

// Load parses, normalizes and validates the configuration file at path. An empty path means the default location,
// which may not exist: defaults are used then. The returned path is the file actually read, if any.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	} else {
		resolved = ""
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

// Normalize trims and upper-cases stage names, lower-cases logging settings and expands paths.
func (c *Config) Normalize() error {
	c.Pipeline.Stages = lo.FilterMap(c.Pipeline.Stages, func(s string, _ int) (string, bool) {
		s = strings.ToUpper(strings.TrimSpace(s))
		return s, s != ""
	})
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Bench.ProfileDir != "" {
		dir, err := ExpandPath(c.Bench.ProfileDir)
		if err != nil {
			return err
		}
		c.Bench.ProfileDir = dir
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", false, fmt.Errorf("config file: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	_, err = os.Stat(defaultPath)
	switch {
	case err == nil:
		return defaultPath, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return defaultPath, false, nil
	default:
		return "", false, fmt.Errorf("config file: %w", err)
	}
}

// ExpandPath resolves a leading ~ and returns the absolute path.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
