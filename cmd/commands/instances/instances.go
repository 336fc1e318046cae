package instances

import (
	"nathanbeddoewebdev/shots/internal/cli"

	"github.com/spf13/cobra"
)

// NewCommand returns the "instances" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Back up, stop, start and terminate tagged instances",
		Long: `Act on the instances selected by --universe and/or --id.

Without a selection the commands refuse to run unless --force is given or
the whole-fleet prompt is confirmed.`,
	}

	cli.AddSelectionFlags(cmd)
	cli.AddSafetyFlags(cmd)
	cmd.PersistentFlags().Int("workers", 0, "Instances processed concurrently (overrides workers setting)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Print every state transition")

	cmd.AddCommand(SnapshotCommand())
	cmd.AddCommand(StopCommand())
	cmd.AddCommand(StartCommand())
	cmd.AddCommand(TerminateCommand())

	return cmd
}
