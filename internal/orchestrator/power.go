package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"

	"go.uber.org/zap"
)

// tracker accumulates the result of a single-step run on one instance.
type tracker struct {
	o     *Orchestrator
	runID string
	inst  domain.Instance
	log   *zap.Logger
	res   InstanceResult
}

func (o *Orchestrator) track(runID string, inst domain.Instance, log *zap.Logger) *tracker {
	return &tracker{
		o:     o,
		runID: runID,
		inst:  inst,
		log:   log,
		res: InstanceResult{
			InstanceID:   inst.ID,
			InstanceName: inst.Name,
			PriorState:   inst.State,
			FinalState:   inst.State,
			Path:         []State{StateEvaluating},
		},
	}
}

func (t *tracker) emit(e Event) {
	e.RunID = t.runID
	e.InstanceID = t.inst.ID
	e.InstanceName = t.inst.Name
	t.o.emit(e)
}

// moved records that a request was accepted and the instance is now in s.
func (t *tracker) moved(s State) {
	t.res.Path = append(t.res.Path, s)
	t.emit(Event{Kind: EventTransition, From: StateEvaluating, To: s})
}

func (t *tracker) finish(outcome Outcome, reason string, err error) InstanceResult {
	t.res.Outcome = outcome
	t.res.Reason = reason
	t.res.Err = err
	if outcome == OutcomeFailed {
		t.res.Path = append(t.res.Path, StateFailed)
		if err != nil {
			t.log.Warn("instance change failed", zap.Error(err))
			t.emit(Event{Kind: EventError, Error: err.Error()})
		}
	} else {
		t.res.Path = append(t.res.Path, StateDone)
	}
	return t.res
}

// power moves one instance to target. Instances already at target, or
// terminated, are skipped. An instance already moving toward target is
// waited on without a new request.
func (o *Orchestrator) power(ctx context.Context, runID string, inst domain.Instance, target domain.PowerState, dryRun bool, log *zap.Logger) InstanceResult {
	t := o.track(runID, inst, log)

	verb, moving, request := "start", StateStarting, o.provider.StartInstance
	transitional := domain.PowerPending
	if target == domain.PowerStopped {
		verb, moving, request = "stop", StateStopping, o.provider.StopInstance
		transitional = domain.PowerStopping
	}

	switch inst.State {
	case target:
		return t.finish(OutcomeSkipped, fmt.Sprintf("already %s", target), nil)
	case domain.PowerTerminated:
		return t.finish(OutcomeSkipped, "instance terminated", nil)
	case transitional:
		if dryRun {
			return t.finish(OutcomePlanned, fmt.Sprintf("would wait for %s", target), nil)
		}
		t.res.Path = append(t.res.Path, moving)
		if err := o.wait(ctx, nil, inst.ID, target); err != nil {
			return t.finish(OutcomeFailed, err.Error(), err)
		}
		t.res.FinalState = target
		return t.finish(OutcomeDone, "", nil)
	case domain.PowerRunning, domain.PowerStopped:
	default:
		err := fmt.Errorf("instance %s is in transitional state %q", inst.ID, inst.State)
		return t.finish(OutcomeFailed, err.Error(), err)
	}

	if dryRun {
		return t.finish(OutcomePlanned, "would "+verb, nil)
	}

	act, err := request(ctx, inst.ID)
	if err != nil {
		perr := &ProviderError{Op: verb, InstanceID: inst.ID, Err: err}
		return t.finish(OutcomeFailed, perr.Error(), perr)
	}
	t.moved(moving)

	if err := o.wait(ctx, act, inst.ID, target); err != nil {
		return t.finish(OutcomeFailed, err.Error(), err)
	}
	t.res.FinalState = target
	log.Info("power change confirmed", zap.String("state", string(target)))
	return t.finish(OutcomeDone, "", nil)
}

// terminate deletes one instance and waits until the provider reports it
// terminated or gone. Any power state may be terminated.
func (o *Orchestrator) terminate(ctx context.Context, runID string, inst domain.Instance, dryRun bool, log *zap.Logger) InstanceResult {
	t := o.track(runID, inst, log)

	if inst.State == domain.PowerTerminated {
		return t.finish(OutcomeSkipped, "already terminated", nil)
	}
	if dryRun {
		return t.finish(OutcomePlanned, "would terminate", nil)
	}

	act, err := o.provider.TerminateInstance(ctx, inst.ID)
	if err != nil {
		perr := &ProviderError{Op: "terminate", InstanceID: inst.ID, Err: err}
		return t.finish(OutcomeFailed, perr.Error(), perr)
	}
	t.moved(StateTerminating)

	start := time.Now()
	err = o.waiter.WaitForGone(ctx, act, inst.ID)
	waited := time.Since(start)
	o.metrics.PowerWaited(string(domain.PowerTerminated), waited)
	if errors.Is(err, domain.ErrTimeout) {
		err = &TimeoutError{InstanceID: inst.ID, Target: domain.PowerTerminated, Waited: waited, Err: err}
	}
	if err != nil {
		return t.finish(OutcomeFailed, err.Error(), err)
	}

	t.res.FinalState = domain.PowerTerminated
	log.Info("instance terminated")
	return t.finish(OutcomeDone, "", nil)
}
