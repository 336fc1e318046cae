package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/policy"

	"go.uber.org/zap"
)

// State is a step of the per-instance backup cycle. Power and terminate
// runs reuse a subset of the states.
type State string

const (
	StateEvaluating      State = "evaluating"
	StateRunning         State = "running"
	StateStopping        State = "stopping"
	StateStopped         State = "stopped"
	StatePendingSnapshot State = "pending-snapshot"
	StateStarting        State = "starting"
	StateTerminating     State = "terminating"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

func (s State) terminal() bool { return s == StateDone || s == StateFailed }

type stepFunc func(c *cycle) State

// transitions maps each non-terminal state to the step that leaves it.
var transitions = map[State]stepFunc{
	StateEvaluating:      (*cycle).evaluate,
	StateRunning:         (*cycle).requestStop,
	StateStopping:        (*cycle).awaitStopped,
	StateStopped:         (*cycle).afterStopped,
	StatePendingSnapshot: (*cycle).requestSnapshots,
	StateStarting:        (*cycle).restart,
}

// cycle is the working state of one instance during a run.
type cycle struct {
	o     *Orchestrator
	ctx   context.Context
	runID string
	opts  Options
	inst  domain.Instance
	log   *zap.Logger

	eligible []domain.Volume
	stopAct  *domain.ActionStatus
	owed     bool
	record   *actionstore.ActionRecord
	errs     []error
	outcome  Outcome
	reason   string

	result InstanceResult
}

func (c *cycle) run() InstanceResult {
	c.result = InstanceResult{
		InstanceID:   c.inst.ID,
		InstanceName: c.inst.Name,
		PriorState:   c.inst.State,
		FinalState:   c.inst.State,
	}

	state := StateEvaluating
	for {
		c.result.Path = append(c.result.Path, state)
		if state.terminal() {
			break
		}
		step, ok := transitions[state]
		if !ok {
			c.fail(fmt.Errorf("no transition from state %q", state))
			state = StateFailed
			continue
		}
		next := step(c)
		c.log.Debug("transition", zap.String("from", string(state)), zap.String("to", string(next)))
		c.emit(Event{Kind: EventTransition, From: state, To: next})
		state = next
	}

	if state == StateFailed || len(c.errs) > 0 {
		c.result.Outcome = OutcomeFailed
		c.result.Err = errors.Join(c.errs...)
		if c.reason == "" {
			c.reason = errString(c.result.Err)
		}
	} else {
		c.result.Outcome = c.outcome
		if c.result.Outcome == "" {
			c.result.Outcome = OutcomeDone
		}
	}
	c.result.Reason = c.reason
	return c.result
}

// evaluate records the prior state, gates every volume and picks the
// entry point of the cycle.
func (c *cycle) evaluate() State {
	if c.inst.State == domain.PowerTerminated {
		c.skip("instance terminated")
		return StateDone
	}

	for _, v := range c.inst.Volumes {
		d := policy.Evaluate(v, c.opts.Threshold, c.o.now())
		if d.Eligible {
			c.eligible = append(c.eligible, v)
			continue
		}
		c.skipVolume(v, d)
	}

	if len(c.eligible) == 0 {
		if len(c.inst.Volumes) == 0 {
			c.skip("no volumes")
		} else {
			c.skip("no volumes need a snapshot")
		}
		return StateDone
	}

	if c.opts.DryRun {
		for _, v := range c.eligible {
			c.result.Planned = append(c.result.Planned, v.ID)
		}
		c.outcome = OutcomePlanned
		c.reason = fmt.Sprintf("would snapshot %d volume(s)", len(c.eligible))
		return StateDone
	}

	switch c.inst.State {
	case domain.PowerRunning:
		return StateRunning
	case domain.PowerStopped:
		return StatePendingSnapshot
	case domain.PowerStopping:
		return StateStopping
	default:
		c.fail(fmt.Errorf("instance %s is in transitional state %q", c.inst.ID, c.inst.State))
		return StateFailed
	}
}

// requestStop journals the owed restart and asks the provider to stop.
func (c *cycle) requestStop() State {
	if err := c.ctx.Err(); err != nil {
		c.reason = "run cancelled"
		c.fail(err)
		return StateFailed
	}

	c.owed = true
	if c.o.journal != nil {
		c.record = c.o.journal.Owe(c.runID, c.inst)
	}

	act, err := c.o.provider.StopInstance(c.ctx, c.inst.ID)
	if err != nil {
		c.owed = false
		c.settle(nil)
		c.fail(&ProviderError{Op: "stop", InstanceID: c.inst.ID, Err: err})
		return StateFailed
	}
	c.stopAct = act
	return StateStopping
}

// awaitStopped blocks until the instance is off. A failed wait still
// pays the owed start.
func (c *cycle) awaitStopped() State {
	if err := c.o.wait(c.ctx, c.stopAct, c.inst.ID, domain.PowerStopped); err != nil {
		if c.ctx.Err() != nil {
			c.reason = "run cancelled"
		}
		c.fail(err)
		if c.owed {
			return StateStarting
		}
		return StateFailed
	}
	c.result.FinalState = domain.PowerStopped
	return StateStopped
}

func (c *cycle) afterStopped() State {
	if err := c.ctx.Err(); err != nil {
		c.reason = "run cancelled"
		c.fail(err)
		return c.exitAfterSnapshots()
	}
	return StatePendingSnapshot
}

// requestSnapshots issues one snapshot request per eligible volume without
// waiting for completion. A rejected request does not stop the others.
func (c *cycle) requestSnapshots() State {
	for i, v := range c.eligible {
		if err := c.ctx.Err(); err != nil {
			c.reason = "run cancelled"
			c.fail(err)
			for _, rest := range c.eligible[i:] {
				c.result.Skipped = append(c.result.Skipped, SkippedVolume{VolumeID: rest.ID, Reason: "run cancelled"})
			}
			break
		}

		snap, err := c.o.provider.CreateSnapshot(c.ctx, v.ID, c.opts.Description)
		if err != nil {
			c.fail(&ProviderError{Op: "snapshot", InstanceID: c.inst.ID, Err: fmt.Errorf("volume %s: %w", v.ID, err)})
			continue
		}

		c.o.metrics.SnapshotRequested()
		c.result.Snapshots = append(c.result.Snapshots, snap.ID)
		c.log.Info("snapshot requested", zap.String("volume", v.ID), zap.String("snapshot", snap.ID))
		c.emit(Event{Kind: EventSnapshotRequested, VolumeID: v.ID, SnapshotID: snap.ID})
	}
	return c.exitAfterSnapshots()
}

func (c *cycle) exitAfterSnapshots() State {
	if c.owed {
		return StateStarting
	}
	if len(c.errs) > 0 {
		return StateFailed
	}
	return StateDone
}

// restart pays the owed start. It runs on a context detached from run
// cancellation so a stopped instance is never abandoned.
func (c *cycle) restart() State {
	ctx, cancel := c.o.detached(c.ctx)
	defer cancel()

	err := c.start(ctx)
	c.owed = false
	c.settle(err)
	if err != nil {
		c.fail(err)
		return StateFailed
	}
	c.result.FinalState = domain.PowerRunning
	if len(c.errs) > 0 {
		return StateFailed
	}
	return StateDone
}

func (c *cycle) start(ctx context.Context) error {
	act, err := c.o.provider.StartInstance(ctx, c.inst.ID)
	if err != nil {
		return &ProviderError{Op: "start", InstanceID: c.inst.ID, Err: err}
	}
	return c.o.wait(ctx, act, c.inst.ID, domain.PowerRunning)
}

func (c *cycle) settle(err error) {
	if c.o.journal != nil && c.record != nil {
		c.o.journal.Settle(c.record, err)
	}
}

func (c *cycle) skip(reason string) {
	c.outcome = OutcomeSkipped
	c.reason = reason
}

func (c *cycle) skipVolume(v domain.Volume, d policy.Decision) {
	c.result.Skipped = append(c.result.Skipped, SkippedVolume{VolumeID: v.ID, Reason: string(d.Reason)})
	c.o.metrics.VolumeSkipped(string(d.Reason))

	msg := fmt.Sprintf("volume %s: %s", v.ID, d.Reason)
	ev := Event{Kind: EventSkip, VolumeID: v.ID, Message: msg}
	if d.Snapshot != nil {
		ev.SnapshotID = d.Snapshot.ID
		if d.Reason == policy.ReasonInFlight {
			ev.Message = fmt.Sprintf("volume %s: snapshot %s already in progress (%d%%)", v.ID, d.Snapshot.ID, d.Snapshot.Progress)
		}
	}
	c.log.Info("volume skipped", zap.String("volume", v.ID), zap.String("reason", string(d.Reason)))
	c.emit(ev)
}

func (c *cycle) fail(err error) {
	c.errs = append(c.errs, err)
	c.log.Warn("instance cycle error", zap.Error(err))
	c.emit(Event{Kind: EventError, Error: err.Error()})
}

func (c *cycle) emit(e Event) {
	e.RunID = c.runID
	e.InstanceID = c.inst.ID
	e.InstanceName = c.inst.Name
	c.o.emit(e)
}
