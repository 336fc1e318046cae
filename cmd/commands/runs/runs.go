package runs

import "github.com/spf13/cobra"

// NewCommand returns the "runs" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "View and manage run history",
		Long: "View the reports of past snapshot, stop and start runs and prune old ones.\n\n" +
			"Run history is stored locally in ~/.config/shots/shots.db.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}
