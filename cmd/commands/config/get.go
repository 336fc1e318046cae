package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/shots/internal/config"
	"nathanbeddoewebdev/shots/internal/util"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a configuration value",
		Long: "Get a persistent configuration value.\n\n" +
			"Without --key every key is listed with its stored value, or its\n" +
			"default when unset.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  shots config get                          # list all keys\n" +
			"  shots config get --key default-provider   # print a single value",
		Args:         cobra.ExactArgs(0),
		RunE:         runGet,
		SilenceUsage: true,
	}

	cmd.Flags().String("key", "", "Configuration key to fetch (prints a single value)")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	keyFlag, _ := cmd.Flags().GetString("key")
	keyFlag = strings.TrimSpace(keyFlag)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if keyFlag == "" {
		for _, spec := range config.Keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", spec.Name, display(spec, cfg))
		}
		return nil
	}

	key := util.NormalizeKey(keyFlag)

	spec := config.Lookup(key)
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", keyFlag, strings.Join(config.KeyNames(), ", "))
	}

	value := spec.Get(cfg)
	if value == "" {
		if spec.Default != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", spec.Default)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "not set")
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), value)
	}
	return nil
}

func display(spec config.KeySpec, cfg *config.Config) string {
	if value := spec.Get(cfg); value != "" {
		return value
	}
	if spec.Default != "" {
		return spec.Default + " (default)"
	}
	return "(not set)"
}
