package actions

import "github.com/spf13/cobra"

// NewCommand returns the "actions" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List or resume owed restarts",
		Long: `Every instance a run stops is journalled until it is started again.

If a run was interrupted (Ctrl+C, a crash, a lost connection) the journal
keeps the restart open. Use "actions list" to see open restarts and
"actions resume" to start those instances again.

Examples:
  shots actions list                 # Show open restarts
  shots actions list --all           # Show all recent records
  shots actions resume               # Start every instance still owed a restart`,
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(ResumeCommand())

	return cmd
}
