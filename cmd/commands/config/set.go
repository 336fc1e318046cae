package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/shots/internal/config"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/util"

	"github.com/spf13/cobra"
)

// SetCommand returns the "config set" command.
func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a persistent configuration value. An empty value clears the key.\n" +
			"Put \"--\" before the key when the value starts with a dash.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  shots config set default-provider hetzner\n" +
			"  shots config set max-age-days 7\n" +
			"  shots config set max-age-days \"\"\n" +
			"  shots config set -- max-age-days -1   # rejected: must not be negative",
		Args:         cobra.ExactArgs(2),
		RunE:         runSet,
		SilenceUsage: true,
	}

	return cmd
}

// validators maps key names to checks that need more than the key's own
// Validate, such as the provider registry.
var validators = map[string]func(value string) error{
	"default-provider": validateProvider,
}

// normalized lists keys whose values are case-insensitive names.
var normalized = map[string]bool{
	"default-provider": true,
	"log-level":        true,
	"log-format":       true,
}

func runSet(cmd *cobra.Command, args []string) error {
	spec := config.Lookup(util.NormalizeKey(args[0]))
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}

	value := strings.TrimSpace(args[1])
	if normalized[spec.Name] {
		value = util.NormalizeKey(value)
	}

	if value != "" {
		if spec.Validate != nil {
			if err := spec.Validate(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", spec.Name, err)
			}
		}
		if validate, ok := validators[spec.Name]; ok {
			if err := validate(value); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	spec.Set(cfg, value)
	if err := cfg.Save(); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", spec.Name)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", spec.Name, value)
	return nil
}

// validateProvider checks that the given name is a registered provider.
func validateProvider(name string) error {
	known := providers.List()
	for _, p := range known {
		if p == name {
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(known, ", "))
}
