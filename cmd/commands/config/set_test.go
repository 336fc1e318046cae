package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/shots/internal/config"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/services/auth"
)

// setupTestConfig points the config package at a temp file and returns its path.
func setupTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	config.SetPath(path)
	t.Cleanup(config.ResetPath)
	return path
}

// registerTestProvider registers a stub provider in the global registry.
func registerTestProvider(t *testing.T, name string) {
	t.Helper()
	providers.Reset()
	t.Cleanup(func() { providers.Reset() })
	providers.Register(name, func(store auth.Store) (domain.Provider, error) {
		return nil, nil
	})
}

// execConfig creates the config command, wires up output buffers, runs with the
// given args, and returns what was written to stdout and stderr.
func execConfig(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	_ = cmd.Execute()
	return outBuf.String(), errBuf.String()
}

func TestSet_DefaultProvider(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, stderr := execConfig(t, "set", "default-provider", "hetzner")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected confirmation with provider name, got: %s", stdout)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.DefaultProvider != "hetzner" {
		t.Errorf("expected DefaultProvider %q, got %q", "hetzner", cfg.DefaultProvider)
	}
}

func TestSet_DefaultProvider_UnknownProvider(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	_, stderr := execConfig(t, "set", "default-provider", "nonexistent")

	if !strings.Contains(stderr, "unknown provider") {
		t.Errorf("expected 'unknown provider' error, got: %s", stderr)
	}
}

func TestSet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "bogus-key", "value")

	if !strings.Contains(stderr, "unknown configuration key") {
		t.Errorf("expected 'unknown configuration key' error, got: %s", stderr)
	}
}

func TestSet_DefaultProvider_CaseInsensitive(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, stderr := execConfig(t, "set", "default-provider", "HETZNER")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected normalized provider name, got: %s", stdout)
	}
}

func TestSet_KeepsCaseOfFreeformValues(t *testing.T) {
	setupTestConfig(t)

	stdout, _ := execConfig(t, "set", "universe-tag", "Team")
	if !strings.Contains(stdout, `"Team"`) {
		t.Errorf("expected value with original case, got: %s", stdout)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.UniverseTag != "Team" {
		t.Errorf("UniverseTag = %q, want %q", cfg.UniverseTag, "Team")
	}
}

func TestSet_InvalidValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"max-age-days", "-1"},
		{"max-age-days", "week"},
		{"workers", "0"},
		{"wait-timeout", "soon"},
		{"log-level", "verbose"},
		{"log-format", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			path := setupTestConfig(t)

			stdout, stderr := execConfig(t, "set", "--", tt.key, tt.value)

			if !strings.Contains(stderr, "invalid value for "+tt.key) {
				t.Errorf("expected validation error, got stderr: %s", stderr)
			}
			if stdout != "" {
				t.Errorf("expected no confirmation, got: %s", stdout)
			}

			cfg, err := config.LoadFrom(path)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}
			if got := config.Lookup(tt.key).Get(cfg); got != "" {
				t.Errorf("%s was persisted as %q", tt.key, got)
			}
		})
	}
}

func TestSet_NegativeValueWithoutSeparator(t *testing.T) {
	path := setupTestConfig(t)

	_, stderr := execConfig(t, "set", "max-age-days", "-1")

	if !strings.Contains(stderr, "unknown shorthand flag") {
		t.Errorf("expected flag parse error, got stderr: %s", stderr)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.MaxAgeDays != "" {
		t.Errorf("MaxAgeDays = %q, want empty", cfg.MaxAgeDays)
	}
}

func TestSet_EmptyValueClears(t *testing.T) {
	path := setupTestConfig(t)
	if err := (&config.Config{MaxAgeDays: "7"}).SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	stdout, stderr := execConfig(t, "set", "max-age-days", "")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "max-age-days cleared") {
		t.Errorf("expected clear confirmation, got: %s", stdout)
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.MaxAgeDays != "" {
		t.Errorf("MaxAgeDays = %q, want empty", cfg.MaxAgeDays)
	}
}

func TestSet_DoesNotPersistEnvironment(t *testing.T) {
	path := setupTestConfig(t)
	t.Setenv("SHOTS_WORKERS", "9")

	execConfig(t, "set", "max-age-days", "3")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Workers != "" {
		t.Errorf("Workers = %q, want empty", cfg.Workers)
	}
	if cfg.MaxAgeDays != "3" {
		t.Errorf("MaxAgeDays = %q, want %q", cfg.MaxAgeDays, "3")
	}
}
