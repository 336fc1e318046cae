package instances

import (
	"context"
	"errors"
	"fmt"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/orchestrator"
	"nathanbeddoewebdev/shots/internal/selector"
	"nathanbeddoewebdev/shots/internal/tui"

	"github.com/spf13/cobra"
)

// TerminateCommand returns the "instances terminate" command.
func TerminateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminate",
		Short: "Permanently delete selected instances",
		Long: `Permanently delete every selected instance and wait until the provider
reports it gone. Snapshots already taken are kept.

The selection must be confirmed interactively, or with --yes when running
non-interactively. Targeting the whole fleet additionally needs --force.

Examples:
  shots instances terminate --universe teamX
  shots instances terminate --id 12345 --yes
  shots instances terminate --universe teamX --dry-run`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, "terminate", func(ctx context.Context, r *run) (*orchestrator.Report, error) {
				if err := confirmTermination(ctx, r.criterion, r.safety); err != nil {
					return nil, err
				}
				return r.orch.Terminate(ctx, orchestrator.PowerOptions{
					Criterion:  r.criterion,
					AllowFleet: r.allowFleet,
					DryRun:     r.safety.DryRun,
				})
			})
		},
	}
	cli.AddOutputFlag(cmd)
	return cmd
}

// confirmTermination asks before deleting a selection. A dry run or --yes
// needs no answer. An empty selection without --force was already put to
// the whole-fleet prompt, or is refused by the orchestrator.
func confirmTermination(ctx context.Context, c selector.Criterion, s cli.Safety) error {
	if s.DryRun || s.Yes {
		return nil
	}
	if c.IsEmpty() && !s.Force {
		return nil
	}
	if !isInteractive() {
		return errors.New("terminate is permanent: pass --yes to confirm when not running interactively")
	}
	if err := confirmDestroy(ctx, "terminate", c.String()); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			return fmt.Errorf("terminate cancelled")
		}
		return err
	}
	return nil
}
