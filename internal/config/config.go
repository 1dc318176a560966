// Package config loads cmstree settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cmstree/internal/mpath"
)

// FileName is the config file looked for when walking up from the working directory.
const FileName = "cmstree.yaml"

// OrphanPolicy decides what the migrator does with a legacy row whose parent
// was never converted.
type OrphanPolicy string

const (
	OrphanWarn  OrphanPolicy = "warn"  // log, count and skip the row
	OrphanAbort OrphanPolicy = "abort" // fail the whole forest
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds tree and logging settings
type Config struct {
	Alphabet      string       `yaml:"alphabet"`
	StepLength    int          `yaml:"step_length"`
	MaxPathLength int          `yaml:"max_path_length"`
	OrphanPolicy  OrphanPolicy `yaml:"orphan_policy"`
	LogLevel      string       `yaml:"log_level"`
	LogFormat     string       `yaml:"log_format"`
}

// Default returns the settings used when no file is found
func Default() *Config {
	return &Config{
		Alphabet:      mpath.DefaultAlphabet,
		StepLength:    mpath.DefaultStepLen,
		MaxPathLength: mpath.DefaultMaxLength,
		OrphanPolicy:  OrphanWarn,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds the config file: explicit path > CMSTREE_CONFIG env > walk-up.
// It returns "" without error when nothing is found.
func Discover(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config not found at --config path: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := os.Getenv("CMSTREE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", nil
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate checks every field and normalizes the case of enum values.
func (c *Config) Validate() error {
	if _, err := c.Codec(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	policy, err := ParseOrphanPolicy(string(c.OrphanPolicy))
	if err != nil {
		return err
	}
	c.OrphanPolicy = policy
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be 'text' or 'json', got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Codec builds the path codec described by the config
func (c *Config) Codec() (*mpath.Codec, error) {
	return mpath.NewCodec(c.Alphabet, c.StepLength, c.MaxPathLength)
}

// ParseOrphanPolicy accepts "warn" or "abort"
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(strings.ToLower(s)) {
	case OrphanWarn:
		return OrphanWarn, nil
	case OrphanAbort:
		return OrphanAbort, nil
	default:
		return "", fmt.Errorf("%w: orphan_policy must be 'warn' or 'abort', got %q", ErrInvalidConfig, s)
	}
}

// ParseLevel maps a level name to its slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: log_level must be 'debug', 'info', 'warn', or 'error', got %q", ErrInvalidConfig, s)
	}
}
