package instances

import (
	"context"
	"strings"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/orchestrator"
	"nathanbeddoewebdev/shots/internal/policy"

	"github.com/spf13/cobra"
)

// SnapshotCommand returns the "instances snapshot" command.
func SnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot the volumes of selected instances",
		Long: `Snapshot every volume of the selected instances that needs one.

A volume is skipped while one of its snapshots is still in progress, and,
when a maximum age is set, while its newest completed snapshot is younger
than that age. Running instances are stopped before their volumes are
snapshotted and started again afterwards; stopped instances stay stopped.

Examples:
  shots instances snapshot --universe teamX
  shots instances snapshot --universe teamX --max-age 7
  shots instances snapshot --id 12345 --dry-run`,
		Args:         cobra.NoArgs,
		RunE:         runSnapshot,
		SilenceUsage: true,
	}

	cmd.Flags().Int("max-age", -1, "Skip volumes with a completed snapshot younger than this many days (overrides max-age-days)")
	cmd.Flags().String("description", "", "Snapshot description (overrides snapshot-description)")
	cli.AddOutputFlag(cmd)

	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	return execute(cmd, "snapshot", func(ctx context.Context, r *run) (*orchestrator.Report, error) {
		threshold, err := resolveThreshold(cmd, r.env)
		if err != nil {
			return nil, err
		}

		description, _ := cmd.Flags().GetString("description")
		if strings.TrimSpace(description) == "" {
			description = r.env.Settings.SnapshotDescription
		}

		return r.orch.Run(ctx, orchestrator.Options{
			Criterion:   r.criterion,
			Threshold:   threshold,
			AllowFleet:  r.allowFleet,
			DryRun:      r.safety.DryRun,
			Description: description,
		})
	})
}

// resolveThreshold prefers --max-age over the max-age-days setting. A
// negative flag value given explicitly is a configuration error.
func resolveThreshold(cmd *cobra.Command, env *cli.Env) (policy.AgeThreshold, error) {
	if f := cmd.Flags().Lookup("max-age"); f != nil && f.Changed {
		days, _ := cmd.Flags().GetInt("max-age")
		t, err := policy.Days(days)
		if err != nil {
			return policy.NoThreshold, &orchestrator.ConfigurationError{Reason: err.Error()}
		}
		return t, nil
	}
	t, err := policy.FromOptional(env.Settings.MaxAgeDays)
	if err != nil {
		return policy.NoThreshold, &orchestrator.ConfigurationError{Reason: err.Error()}
	}
	return t, nil
}
