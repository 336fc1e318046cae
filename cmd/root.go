package cmd

import (
	"os"
	"strings"

	"nathanbeddoewebdev/shots/cmd/commands/actions"
	"nathanbeddoewebdev/shots/cmd/commands/auth"
	cfgcmd "nathanbeddoewebdev/shots/cmd/commands/config"
	"nathanbeddoewebdev/shots/cmd/commands/instances"
	"nathanbeddoewebdev/shots/cmd/commands/runs"
	"nathanbeddoewebdev/shots/internal/config"
	"nathanbeddoewebdev/shots/internal/logging"
	"nathanbeddoewebdev/shots/internal/providers"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "shots",
		Short: "Snapshot cloud instances safely and on schedule",
		Long: `shots keeps volume snapshots of tagged cloud instances fresh.

Instances are selected by a universe tag and/or explicit IDs. For every
selected instance shots checks each volume's newest snapshot, stops the
instance when a snapshot is due, requests the snapshots, and starts the
instance again. Restarts owed by an interrupted run are journalled and can
be resumed.

Supported providers: Hetzner.

Quick start:
  shots auth login hetzner                          # Store your API token
  shots config set default-provider hetzner
  shots instances snapshot --universe teamX --dry-run
  shots instances snapshot --universe teamX --max-age 7
  shots actions list                                # Restarts still owed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); strings.TrimSpace(path) != "" {
				config.SetPath(strings.TrimSpace(path))
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				if _, err := logging.ParseLevel(level); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("provider", "", "Cloud provider to use (overrides default-provider)")
	cmd.PersistentFlags().String("config", "", "Path to the config file")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides log-level)")

	cmd.AddCommand(instances.NewCommand())
	cmd.AddCommand(actions.NewCommand())
	cmd.AddCommand(runs.NewCommand())
	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	providers.RegisterHetzner()

	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
