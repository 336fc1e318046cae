// Package orchestrator drives selected instances through a safe backup
// cycle: stop, verify stopped, request snapshots, restore the prior power
// state. Each instance runs in its own worker and failures stay with the
// instance that caused them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/policy"
	"nathanbeddoewebdev/shots/internal/selector"
	"nathanbeddoewebdev/shots/internal/services/action"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers     = 4
	DefaultDescription = "Created by shots"
)

// Journal records restarts owed to instances stopped by a run.
// Implementations degrade to no-ops when storage is unavailable.
type Journal interface {
	Owe(runID string, inst domain.Instance) *actionstore.ActionRecord
	Settle(record *actionstore.ActionRecord, err error)
}

// Config wires an Orchestrator. Provider is required; everything else
// has a default.
type Config struct {
	Provider     domain.Provider
	ProviderName string
	Selector     *selector.Selector
	Waiter       *action.Waiter
	Journal      Journal
	Observer     Observer
	Metrics      Metrics
	Log          *zap.Logger

	// Workers bounds the number of instances processed at once.
	// Zero means DefaultWorkers.
	Workers int

	// RestartTimeout bounds an owed start issued after cancellation.
	// Zero means the waiter timeout plus one minute.
	RestartTimeout time.Duration

	Now   func() time.Time
	RunID func() string
}

// Orchestrator runs backup and power cycles over a selection.
type Orchestrator struct {
	provider       domain.Provider
	providerName   string
	selector       *selector.Selector
	waiter         *action.Waiter
	journal        Journal
	observer       Observer
	metrics        Metrics
	log            *zap.Logger
	workers        int
	restartTimeout time.Duration
	now            func() time.Time
	runID          func() string
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		provider:       cfg.Provider,
		providerName:   cfg.ProviderName,
		selector:       cfg.Selector,
		waiter:         cfg.Waiter,
		journal:        cfg.Journal,
		observer:       cfg.Observer,
		metrics:        cfg.Metrics,
		log:            cfg.Log,
		workers:        cfg.Workers,
		restartTimeout: cfg.RestartTimeout,
		now:            cfg.Now,
		runID:          cfg.RunID,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.selector == nil {
		o.selector = selector.New(cfg.Provider, "")
	}
	if o.waiter == nil {
		o.waiter = action.NewWaiter(cfg.Provider, o.log)
	}
	if o.observer == nil {
		o.observer = Observers(nil)
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	if o.workers == 0 {
		o.workers = DefaultWorkers
	}
	if o.restartTimeout <= 0 {
		o.restartTimeout = o.waiter.Timeout + time.Minute
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.runID == nil {
		o.runID = uuid.NewString
	}
	if o.providerName == "" && cfg.Provider != nil {
		o.providerName = cfg.Provider.GetDisplayName()
	}
	return o
}

// Options select and parameterize a snapshot run.
type Options struct {
	Criterion selector.Criterion
	Threshold policy.AgeThreshold

	// AllowFleet permits an empty criterion to target every instance.
	AllowFleet bool

	// DryRun evaluates and reports without stopping, snapshotting or
	// starting anything.
	DryRun bool

	// Description is attached to every requested snapshot.
	Description string
}

// Run executes the backup cycle over every selected instance. Only a
// *ConfigurationError or a failure to enumerate the selection is
// returned as an error; per-instance failures are recorded in the report.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if err := o.validate(opts.Criterion, opts.AllowFleet); err != nil {
		return nil, err
	}
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}

	report := o.newReport("snapshot", opts.Criterion, opts.DryRun)
	report.Threshold = opts.Threshold.String()

	instances, err := o.selector.Select(ctx, opts.Criterion)
	if err != nil {
		return nil, &ProviderError{Op: "list", Err: err}
	}

	log := o.log.With(zap.String("run", report.RunID))
	log.Info("run started",
		zap.String("criterion", report.Criterion),
		zap.String("threshold", report.Threshold),
		zap.Int("instances", len(instances)),
		zap.Bool("dry_run", opts.DryRun),
	)

	report.Results = o.fanOut(ctx, instances, func(ctx context.Context, inst domain.Instance) InstanceResult {
		c := &cycle{o: o, ctx: ctx, runID: report.RunID, opts: opts, inst: inst, log: log.With(zap.String("instance", inst.ID))}
		return c.run()
	})

	o.finish(report, log)
	return report, nil
}

// PowerOptions select instances for a plain stop, start or terminate.
type PowerOptions struct {
	Criterion  selector.Criterion
	AllowFleet bool
	DryRun     bool
}

// Power moves every selected instance to target (running or stopped)
// with the same guard, worker pool and failure isolation as Run.
func (o *Orchestrator) Power(ctx context.Context, opts PowerOptions, target domain.PowerState) (*Report, error) {
	if target != domain.PowerRunning && target != domain.PowerStopped {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unsupported power target %q", target)}
	}
	if err := o.validate(opts.Criterion, opts.AllowFleet); err != nil {
		return nil, err
	}

	op := "start"
	if target == domain.PowerStopped {
		op = "stop"
	}
	report := o.newReport(op, opts.Criterion, opts.DryRun)

	instances, err := o.selector.Select(ctx, opts.Criterion)
	if err != nil {
		return nil, &ProviderError{Op: "list", Err: err}
	}

	log := o.log.With(zap.String("run", report.RunID))
	log.Info("power run started", zap.String("target", string(target)), zap.Int("instances", len(instances)))

	report.Results = o.fanOut(ctx, instances, func(ctx context.Context, inst domain.Instance) InstanceResult {
		return o.power(ctx, report.RunID, inst, target, opts.DryRun, log.With(zap.String("instance", inst.ID)))
	})

	o.finish(report, log)
	return report, nil
}

// Terminate permanently deletes every selected instance with the same
// guard, worker pool and failure isolation as Power. Snapshots already
// taken are left in place.
func (o *Orchestrator) Terminate(ctx context.Context, opts PowerOptions) (*Report, error) {
	if err := o.validate(opts.Criterion, opts.AllowFleet); err != nil {
		return nil, err
	}

	report := o.newReport("terminate", opts.Criterion, opts.DryRun)

	instances, err := o.selector.Select(ctx, opts.Criterion)
	if err != nil {
		return nil, &ProviderError{Op: "list", Err: err}
	}

	log := o.log.With(zap.String("run", report.RunID))
	log.Info("terminate run started", zap.Int("instances", len(instances)), zap.Bool("dry_run", opts.DryRun))

	report.Results = o.fanOut(ctx, instances, func(ctx context.Context, inst domain.Instance) InstanceResult {
		return o.terminate(ctx, report.RunID, inst, opts.DryRun, log.With(zap.String("instance", inst.ID)))
	})

	o.finish(report, log)
	return report, nil
}

func (o *Orchestrator) validate(c selector.Criterion, allowFleet bool) error {
	if c.IsEmpty() && !allowFleet {
		return &ConfigurationError{Reason: "no universe or instance IDs given; targeting the whole fleet requires an explicit override"}
	}
	if o.workers < 1 {
		return &ConfigurationError{Reason: fmt.Sprintf("workers must be at least 1, got %d", o.workers)}
	}
	if o.provider == nil {
		return &ConfigurationError{Reason: "no provider configured"}
	}
	if v, ok := o.provider.(domain.TagValidator); ok && c.Universe != "" {
		if err := v.ValidateTag(o.selector.TagKey(), c.Universe); err != nil {
			return &ConfigurationError{Reason: "invalid universe: " + err.Error()}
		}
	}
	return nil
}

func (o *Orchestrator) newReport(op string, c selector.Criterion, dryRun bool) *Report {
	return &Report{
		RunID:     o.runID(),
		Operation: op,
		Provider:  o.providerName,
		Criterion: c.String(),
		DryRun:    dryRun,
		StartedAt: o.now(),
	}
}

// fanOut runs fn for every instance on a bounded pool. Workers never
// return errors to the group; each writes its own result slot. Instances
// not yet started when ctx is cancelled fail without any provider call.
func (o *Orchestrator) fanOut(ctx context.Context, instances []domain.Instance, fn func(context.Context, domain.Instance) InstanceResult) []InstanceResult {
	results := make([]InstanceResult, len(instances))

	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i, inst := range instances {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = InstanceResult{
					InstanceID:   inst.ID,
					InstanceName: inst.Name,
					PriorState:   inst.State,
					FinalState:   inst.State,
					Outcome:      OutcomeFailed,
					Reason:       "run cancelled",
					Path:         []State{StateFailed},
					Err:          ctx.Err(),
				}
				return nil
			}
			results[i] = fn(ctx, inst)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) finish(report *Report, log *zap.Logger) {
	report.FinishedAt = o.now()
	report.tally()
	for _, res := range report.Results {
		o.metrics.InstanceFinished(string(res.Outcome))
		o.emit(Event{
			RunID:        report.RunID,
			Kind:         EventFinished,
			InstanceID:   res.InstanceID,
			InstanceName: res.InstanceName,
			Outcome:      res.Outcome,
			Message:      res.Reason,
			Error:        errString(res.Err),
		})
	}
	log.Info("run finished",
		zap.Int("done", report.Counts.Done),
		zap.Int("skipped", report.Counts.Skipped),
		zap.Int("failed", report.Counts.Failed),
		zap.Int("planned", report.Counts.Planned),
	)
}

func (o *Orchestrator) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = o.now()
	}
	o.observer.Emit(e)
}

// wait blocks until id reaches target and converts a deadline expiry into
// a *TimeoutError.
func (o *Orchestrator) wait(ctx context.Context, act *domain.ActionStatus, id string, target domain.PowerState) error {
	start := time.Now()
	err := o.waiter.WaitForState(ctx, act, id, target)
	waited := time.Since(start)
	o.metrics.PowerWaited(string(target), waited)

	if errors.Is(err, domain.ErrTimeout) {
		return &TimeoutError{InstanceID: id, Target: target, Waited: waited, Err: err}
	}
	return err
}

// detached returns a context for an owed start. It survives cancellation
// of the run but carries its own deadline.
func (o *Orchestrator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.restartTimeout)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
