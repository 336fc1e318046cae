package config

import (
	"fmt"
	"strings"
)

// KeySpec describes a single configuration key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "default-provider"). It is
	// also the key in the config file and, upper-cased with dashes
	// replaced by underscores and prefixed with SHOTS_, the environment
	// variable that overrides it.
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Default is applied by Resolve when the key is unset. Empty means
	// no default.
	Default string

	// Validate, when non-nil, rejects a value before it is stored.
	Validate func(value string) error

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set applies a value for this key to the given Config (in memory only;
	// the caller is responsible for calling Save).
	Set func(cfg *Config, value string)
}

// Keys is the authoritative list of all supported configuration keys.
// To add a new option: add a field to Config and Settings and append a
// KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "default-provider",
		Description: "Cloud provider used when --provider is not specified",
		Get:         func(cfg *Config) string { return cfg.DefaultProvider },
		Set:         func(cfg *Config, v string) { cfg.DefaultProvider = v },
	},
	{
		Name:        "universe-tag",
		Description: "Instance tag key that holds the universe name",
		Default:     "Universe",
		Get:         func(cfg *Config) string { return cfg.UniverseTag },
		Set:         func(cfg *Config, v string) { cfg.UniverseTag = v },
	},
	{
		Name:        "max-age-days",
		Description: "Skip volumes with a completed snapshot younger than this many days",
		Validate:    func(v string) error { _, err := parseDays(v); return err },
		Get:         func(cfg *Config) string { return cfg.MaxAgeDays },
		Set:         func(cfg *Config, v string) { cfg.MaxAgeDays = v },
	},
	{
		Name:        "workers",
		Description: "Number of instances processed concurrently",
		Default:     "4",
		Validate:    func(v string) error { _, err := parseWorkers(v); return err },
		Get:         func(cfg *Config) string { return cfg.Workers },
		Set:         func(cfg *Config, v string) { cfg.Workers = v },
	},
	{
		Name:        "wait-timeout",
		Description: "How long to wait for an instance to stop or start",
		Default:     "5m",
		Validate:    func(v string) error { _, err := parsePositiveDuration(v); return err },
		Get:         func(cfg *Config) string { return cfg.WaitTimeout },
		Set:         func(cfg *Config, v string) { cfg.WaitTimeout = v },
	},
	{
		Name:        "poll-interval",
		Description: "Delay between power state checks",
		Default:     "3s",
		Validate:    func(v string) error { _, err := parsePositiveDuration(v); return err },
		Get:         func(cfg *Config) string { return cfg.PollInterval },
		Set:         func(cfg *Config, v string) { cfg.PollInterval = v },
	},
	{
		Name:        "snapshot-description",
		Description: "Description attached to every snapshot",
		Default:     "Created by shots",
		Get:         func(cfg *Config) string { return cfg.SnapshotDescription },
		Set:         func(cfg *Config, v string) { cfg.SnapshotDescription = v },
	},
	{
		Name:        "log-level",
		Description: "Log level: debug, info, warn or error",
		Default:     "info",
		Validate:    oneOf("debug", "info", "warn", "error"),
		Get:         func(cfg *Config) string { return cfg.LogLevel },
		Set:         func(cfg *Config, v string) { cfg.LogLevel = v },
	},
	{
		Name:        "log-format",
		Description: "Log format: console or json",
		Default:     "console",
		Validate:    oneOf("console", "json"),
		Get:         func(cfg *Config) string { return cfg.LogFormat },
		Set:         func(cfg *Config, v string) { cfg.LogFormat = v },
	},
	{
		Name:        "nats-url",
		Description: "NATS server to publish run events to (empty disables publishing)",
		Get:         func(cfg *Config) string { return cfg.NATSURL },
		Set:         func(cfg *Config, v string) { cfg.NATSURL = v },
	},
	{
		Name:        "nats-subject",
		Description: "NATS subject for run events",
		Default:     "shots.events",
		Get:         func(cfg *Config) string { return cfg.NATSSubject },
		Set:         func(cfg *Config, v string) { cfg.NATSSubject = v },
	},
	{
		Name:        "metrics-file",
		Description: "Prometheus textfile written after every run (empty disables it)",
		Get:         func(cfg *Config) string { return cfg.MetricsFile },
		Set:         func(cfg *Config, v string) { cfg.MetricsFile = v },
	},
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(v), a) {
				return nil
			}
		}
		return fmt.Errorf("%q must be one of %s", v, strings.Join(allowed, ", "))
	}
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		desc := k.Description
		if k.Default != "" {
			desc += fmt.Sprintf(" (default %q)", k.Default)
		}
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, desc)
	}
	return b.String()
}
