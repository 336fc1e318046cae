package actions

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/providers"
	"nathanbeddoewebdev/shots/internal/services/action"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrResumeFailed is returned when at least one owed restart could not be
// completed.
var ErrResumeFailed = errors.New("one or more restarts failed")

// ResumeCommand returns the "actions resume" command.
func ResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Start every instance still owed a restart",
		Long: `Start every instance an earlier run stopped and never started again,
then wait for it to run. Instances that are already running are marked
settled without a start request.`,
		Args:         cobra.NoArgs,
		RunE:         runResume,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("dry-run", false, "Show the restarts that would be resumed")

	return cmd
}

func runResume(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	env, err := cli.Load(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Log.Sync() }()

	repo, err := actionstore.Open()
	if err != nil {
		return fmt.Errorf("opening restart journal: %w", err)
	}
	defer repo.Close()

	open, err := repo.ListOpen()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No open restarts to resume.")
		return nil
	}

	if dryRun {
		for _, r := range open {
			fmt.Fprintf(cmd.OutOrStdout(), "Would start %s (%s) via %s.\n", r.InstanceID, r.InstanceName, r.Provider)
		}
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Resuming %d restart(s)...\n\n", len(open))

	ctx, cancel := cli.SignalContext(cmd)
	defer cancel()

	failed := 0
	groups := groupByProvider(open)
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		records := groups[name]
		provider, err := providers.Get(name, env.Store)
		if err != nil {
			env.Log.Warn("cannot resolve provider", zap.String("provider", name), zap.Error(err))
			for _, r := range records {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%s] Error resolving provider %q: %v\n", r.InstanceID, name, err)
			}
			failed += len(records)
			continue
		}

		// The service shares repo; it is closed once above.
		svc := action.NewService(provider, name, repo, env.Waiter(provider), env.Log)
		for i := range records {
			if !resumeOne(ctx, cmd, svc, &records[i]) {
				failed++
			}
		}
	}

	if failed > 0 {
		return ErrResumeFailed
	}
	return nil
}

func resumeOne(ctx context.Context, cmd *cobra.Command, svc *action.Service, record *actionstore.ActionRecord) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "[%s] Starting %s...\n", record.InstanceID, record.InstanceName)
	if err := svc.Resume(ctx, record); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] Error: %v\n", record.InstanceID, err)
		return false
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Instance %s restarted.\n", record.InstanceID)
	return true
}

func groupByProvider(records []actionstore.ActionRecord) map[string][]actionstore.ActionRecord {
	groups := make(map[string][]actionstore.ActionRecord)
	for _, r := range records {
		groups[r.Provider] = append(groups[r.Provider], r)
	}
	return groups
}
