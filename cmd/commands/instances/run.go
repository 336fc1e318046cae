package instances

import (
	"context"
	"errors"
	"fmt"
	"os"

	"nathanbeddoewebdev/shots/internal/cli"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/events"
	"nathanbeddoewebdev/shots/internal/metrics"
	"nathanbeddoewebdev/shots/internal/orchestrator"
	"nathanbeddoewebdev/shots/internal/report"
	"nathanbeddoewebdev/shots/internal/runlog"
	"nathanbeddoewebdev/shots/internal/selector"
	"nathanbeddoewebdev/shots/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrRunFailed is returned when at least one instance failed, so the
// process exits non-zero.
var ErrRunFailed = errors.New("one or more instances failed")

// Replaced in tests.
var (
	isInteractive = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
	confirmFleet   = tui.ConfirmFleet
	confirmDestroy = tui.ConfirmDestroy
)

// run is what an instances subcommand hands to its operation.
type run struct {
	env        *cli.Env
	orch       *orchestrator.Orchestrator
	criterion  selector.Criterion
	safety     cli.Safety
	allowFleet bool
}

type operation func(ctx context.Context, r *run) (*orchestrator.Report, error)

// execute wires the provider, journal and observers for one command,
// runs op and reports the result.
func execute(cmd *cobra.Command, name string, op operation) error {
	out, err := cli.Output(cmd)
	if err != nil {
		return err
	}

	env, err := cli.Load(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Log.Sync() }()

	provider, providerName, err := env.Provider(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext(cmd)
	defer cancel()

	r := &run{
		env:       env,
		criterion: cli.Criterion(cmd),
		safety:    cli.SafetyOptions(cmd),
	}

	r.allowFleet, err = allowFleet(ctx, provider, name, r.criterion, r.safety)
	if err != nil {
		return err
	}

	workers := env.Settings.Workers
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	waiter := env.Waiter(provider)
	journal := env.Journal(provider, providerName, waiter)
	defer func() { _ = journal.Close() }()

	observers := orchestrator.Observers{report.NewConsole(cmd.ErrOrStderr(), verbose)}
	var pub *events.Publisher
	if env.Settings.NATSURL != "" {
		pub, err = events.Connect(env.Settings.NATSURL, env.Settings.NATSSubject, env.Log)
		if err != nil {
			env.Log.Warn("event stream unavailable; continuing without it", zap.Error(err))
		} else {
			defer pub.Close()
			observers = append(observers, pub)
		}
	}
	recorder := metrics.New()

	r.orch = orchestrator.New(orchestrator.Config{
		Provider:     provider,
		ProviderName: provider.GetDisplayName(),
		Selector:     selector.New(provider, env.Settings.UniverseTag),
		Waiter:       waiter,
		Journal:      journal,
		Observer:     observers,
		Metrics:      recorder,
		Log:          env.Log,
		Workers:      workers,
	})

	rep, err := op(ctx, r)
	if err != nil {
		return err
	}

	if pub != nil {
		pub.PublishReport(rep)
	}
	saveHistory(env.Log, rep)
	if path := env.Settings.MetricsFile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			env.Log.Warn("failed to write metrics", zap.Error(err))
		}
	}

	stdout := cmd.OutOrStdout()
	if out == "json" {
		if err := report.PrintJSON(stdout, rep); err != nil {
			return err
		}
	} else {
		report.PrintSummary(stdout, rep)
	}

	if rep.HasFailures() {
		return ErrRunFailed
	}
	return nil
}

// allowFleet decides whether an empty selection may target the whole
// fleet. --force or a dry run allow it outright. Otherwise an interactive
// user is asked, unless --yes was given; a non-interactive run without
// --force is refused by the orchestrator.
func allowFleet(ctx context.Context, provider domain.Provider, operation string, c selector.Criterion, s cli.Safety) (bool, error) {
	if !c.IsEmpty() {
		return false, nil
	}
	if s.Force || s.DryRun {
		return true, nil
	}
	if s.Yes || !isInteractive() {
		return false, nil
	}
	if err := confirmFleet(ctx, provider, operation); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			return false, fmt.Errorf("%s cancelled", operation)
		}
		return false, err
	}
	return true, nil
}

// saveHistory records the run in the local run log. Failures are logged;
// the run itself already happened.
func saveHistory(log *zap.Logger, rep *orchestrator.Report) {
	repo, err := runlog.Open()
	if err != nil {
		log.Warn("run history unavailable", zap.Error(err))
		return
	}
	defer func() { _ = repo.Close() }()

	if err := repo.Save(runlog.FromReport(rep)); err != nil {
		log.Warn("failed to save run history", zap.String("run", rep.RunID), zap.Error(err))
	}
}
