package config

import (
	"nathanbeddoewebdev/shots/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage shots configuration",
		Long: "View and modify persistent shots settings.\n\n" +
			"Configuration is stored at ~/.config/shots/config.json. Every key can\n" +
			"also be set for one invocation with a SHOTS_<KEY> environment variable,\n" +
			"e.g. SHOTS_MAX_AGE_DAYS=7.\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())

	return cmd
}
