package instances

import (
	"context"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/orchestrator"

	"github.com/spf13/cobra"
)

// StopCommand returns the "instances stop" command.
func StopCommand() *cobra.Command {
	return powerCommand("stop", "Stop selected instances", domain.PowerStopped, `Gracefully stop every selected running instance and wait until it is off.

Examples:
  shots instances stop --universe teamX
  shots instances stop --id 12345 --id 67890`)
}

// StartCommand returns the "instances start" command.
func StartCommand() *cobra.Command {
	return powerCommand("start", "Start selected instances", domain.PowerRunning, `Start every selected stopped instance and wait until it is running.

Examples:
  shots instances start --universe teamX`)
}

func powerCommand(use, short string, target domain.PowerState, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Long:         long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, use, func(ctx context.Context, r *run) (*orchestrator.Report, error) {
				return r.orch.Power(ctx, orchestrator.PowerOptions{
					Criterion:  r.criterion,
					AllowFleet: r.allowFleet,
					DryRun:     r.safety.DryRun,
				}, target)
			})
		},
	}
	cli.AddOutputFlag(cmd)
	return cmd
}
