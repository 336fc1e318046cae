// Package config handles persistent user configuration for shots.
//
// Configuration is stored as JSON at ~/.config/shots/config.json (or the
// platform-equivalent path returned by os.UserConfigDir). Values are read
// through viper so that SHOTS_<KEY> environment variables and built-in
// defaults apply on top of the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appDir    = "shots"
	fileName  = "config.json"
	envPrefix = "SHOTS"
)

// pathOverride, when non-empty, replaces the default config file path.
// Set by --config and by tests. Use SetPath / ResetPath to manage.
var pathOverride string

// SetPath overrides the config file path.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override, reverting to the default.
func ResetPath() { pathOverride = "" }

// Config holds the values stored in the config file. Every field is the
// raw string form of a key; Resolve parses and defaults them.
type Config struct {
	DefaultProvider     string `json:"default-provider,omitempty" mapstructure:"default-provider"`
	UniverseTag         string `json:"universe-tag,omitempty" mapstructure:"universe-tag"`
	MaxAgeDays          string `json:"max-age-days,omitempty" mapstructure:"max-age-days"`
	Workers             string `json:"workers,omitempty" mapstructure:"workers"`
	WaitTimeout         string `json:"wait-timeout,omitempty" mapstructure:"wait-timeout"`
	PollInterval        string `json:"poll-interval,omitempty" mapstructure:"poll-interval"`
	SnapshotDescription string `json:"snapshot-description,omitempty" mapstructure:"snapshot-description"`
	LogLevel            string `json:"log-level,omitempty" mapstructure:"log-level"`
	LogFormat           string `json:"log-format,omitempty" mapstructure:"log-format"`
	NATSURL             string `json:"nats-url,omitempty" mapstructure:"nats-url"`
	NATSSubject         string `json:"nats-subject,omitempty" mapstructure:"nats-subject"`
	MetricsFile         string `json:"metrics-file,omitempty" mapstructure:"metrics-file"`
}

// Settings is the effective configuration of one command: file values
// overlaid with environment variables, falling back to defaults.
type Settings struct {
	DefaultProvider string
	UniverseTag     string

	// MaxAgeDays is nil when no threshold is configured.
	MaxAgeDays *int

	Workers             int
	WaitTimeout         time.Duration
	PollInterval        time.Duration
	SnapshotDescription string
	LogLevel            string
	LogFormat           string
	NATSURL             string
	NATSSubject         string
	MetricsFile         string
}

// Path returns the absolute path to the config file.
// If SetPath has been called, that value is returned instead.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load reads the stored values from the config file. Environment
// variables and defaults are not applied, so a loaded Config can be
// modified and saved back without capturing them.
// If the file does not exist, a zero-value Config is returned (not an error).
func Load() (*Config, error) {
	return loadFrom("")
}

func loadFrom(path string) (*Config, error) {
	v, err := newViper(path, false)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", v.ConfigFileUsed(), err)
	}
	return &cfg, nil
}

// Resolve returns the effective Settings.
func Resolve() (*Settings, error) {
	return resolveFrom("")
}

func resolveFrom(path string) (*Settings, error) {
	v, err := newViper(path, true)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		DefaultProvider:     strings.TrimSpace(v.GetString("default-provider")),
		UniverseTag:         strings.TrimSpace(v.GetString("universe-tag")),
		SnapshotDescription: v.GetString("snapshot-description"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("log-level"))),
		LogFormat:           strings.ToLower(strings.TrimSpace(v.GetString("log-format"))),
		NATSURL:             strings.TrimSpace(v.GetString("nats-url")),
		NATSSubject:         strings.TrimSpace(v.GetString("nats-subject")),
		MetricsFile:         strings.TrimSpace(v.GetString("metrics-file")),
	}

	if raw := strings.TrimSpace(v.GetString("max-age-days")); raw != "" {
		days, err := parseDays(raw)
		if err != nil {
			return nil, fmt.Errorf("config: max-age-days: %w", err)
		}
		s.MaxAgeDays = &days
	}
	if s.Workers, err = parseWorkers(v.GetString("workers")); err != nil {
		return nil, fmt.Errorf("config: workers: %w", err)
	}
	if s.WaitTimeout, err = parsePositiveDuration(v.GetString("wait-timeout")); err != nil {
		return nil, fmt.Errorf("config: wait-timeout: %w", err)
	}
	if s.PollInterval, err = parsePositiveDuration(v.GetString("poll-interval")); err != nil {
		return nil, fmt.Errorf("config: poll-interval: %w", err)
	}

	return s, nil
}

// newViper builds a viper instance over the config file at path (or the
// default Path). withOverlay adds defaults and environment variables.
func newViper(path string, withOverlay bool) (*viper.Viper, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if withOverlay {
		for _, k := range Keys {
			if k.Default != "" {
				v.SetDefault(k.Name, k.Default)
			}
		}
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return v, nil
}

// Save writes the config to disk, creating the parent directory if needed.
func (c *Config) Save() error {
	return c.saveTo("")
}

func (c *Config) saveTo(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}

	return nil
}

// LoadFrom reads the config from the given path. Intended for testing.
func LoadFrom(path string) (*Config, error) {
	return loadFrom(path)
}

// ResolveFrom returns the effective Settings for the file at path.
// Intended for testing.
func ResolveFrom(path string) (*Settings, error) {
	return resolveFrom(path)
}

// SaveTo writes the config to the given path. Intended for testing.
func (c *Config) SaveTo(path string) error {
	return c.saveTo(path)
}

func parseDays(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number of days", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

func parseWorkers(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return n, nil
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
