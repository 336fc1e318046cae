package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultProvider != "" {
		t.Errorf("expected empty DefaultProvider, got %q", cfg.DefaultProvider)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots", "config.json")

	want := &Config{DefaultProvider: "hetzner", MaxAgeDays: "7", NATSURL: "nats://localhost:4222"}
	if err := want.SaveTo(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep")
	path := filepath.Join(dir, "config.json")

	cfg := &Config{DefaultProvider: "hetzner"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify the file exists.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json}"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestSave_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	first := &Config{DefaultProvider: "hetzner"}
	if err := first.SaveTo(path); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := &Config{DefaultProvider: "fake"}
	if err := second.SaveTo(path); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.DefaultProvider != "fake" {
		t.Errorf("expected DefaultProvider %q, got %q", "fake", got.DefaultProvider)
	}
}

func TestLoad_EmptyDefaultProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultProvider != "" {
		t.Errorf("expected empty DefaultProvider, got %q", cfg.DefaultProvider)
	}
}

func TestLoad_IgnoresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("SHOTS_DEFAULT_PROVIDER", "fake")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultProvider != "" || cfg.Workers != "" {
		t.Errorf("expected only stored values, got %+v", cfg)
	}
}

func TestResolve_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	got, err := ResolveFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Settings{
		UniverseTag:         "Universe",
		Workers:             4,
		WaitTimeout:         5 * time.Minute,
		PollInterval:        3 * time.Second,
		SnapshotDescription: "Created by shots",
		LogLevel:            "info",
		LogFormat:           "console",
		NATSSubject:         "shots.events",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	stored := &Config{
		DefaultProvider: "hetzner",
		MaxAgeDays:      "7",
		Workers:         "2",
		LogLevel:        "debug",
	}
	if err := stored.SaveTo(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Setenv("SHOTS_WORKERS", "8")
	t.Setenv("SHOTS_WAIT_TIMEOUT", "90s")

	got, err := ResolveFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.DefaultProvider != "hetzner" {
		t.Errorf("DefaultProvider = %q, want hetzner", got.DefaultProvider)
	}
	if got.MaxAgeDays == nil || *got.MaxAgeDays != 7 {
		t.Errorf("MaxAgeDays = %v, want 7", got.MaxAgeDays)
	}
	if got.Workers != 8 {
		t.Errorf("Workers = %d, want 8 from the environment", got.Workers)
	}
	if got.WaitTimeout != 90*time.Second {
		t.Errorf("WaitTimeout = %s, want 90s", got.WaitTimeout)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", got.LogLevel)
	}
}

func TestResolve_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "negative max age", cfg: Config{MaxAgeDays: "-1"}, wantErr: "max-age-days"},
		{name: "non-numeric max age", cfg: Config{MaxAgeDays: "week"}, wantErr: "max-age-days"},
		{name: "zero workers", cfg: Config{Workers: "0"}, wantErr: "workers"},
		{name: "bad timeout", cfg: Config{WaitTimeout: "soon"}, wantErr: "wait-timeout"},
		{name: "zero poll interval", cfg: Config{PollInterval: "0s"}, wantErr: "poll-interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := tt.cfg.SaveTo(path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			_, err := ResolveFrom(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolve_ZeroMaxAgeIsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := (&Config{MaxAgeDays: "0"}).SaveTo(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := ResolveFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MaxAgeDays == nil || *got.MaxAgeDays != 0 {
		t.Errorf("expected a zero threshold, got %v", got.MaxAgeDays)
	}
}
