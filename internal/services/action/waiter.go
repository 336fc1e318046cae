package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the delay between successive status reads.
	DefaultPollInterval = 3 * time.Second

	// DefaultTimeout bounds a single wait for a target power state.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxTransientErrors is the number of consecutive read errors
	// tolerated before a wait gives up. Rate-limit errors abort at once.
	DefaultMaxTransientErrors = 3
)

// Waiter blocks until an instance reaches a target power state.
//
// Strategy selection:
//   - If the provider implements [domain.ActionPoller] and the action is
//     still running, the action is tracked by its ID first. Some provider
//     operations (e.g. Hetzner's graceful shutdown) report success once
//     the signal is sent, so the instance state is verified afterwards.
//   - Otherwise [domain.Provider.GetInstance] is polled until the state
//     matches.
//
// Every wait is bounded by Timeout. Expiry yields an error wrapping
// [domain.ErrTimeout].
type Waiter struct {
	provider domain.Provider
	log      *zap.Logger

	PollInterval       time.Duration
	Timeout            time.Duration
	MaxTransientErrors int
}

// NewWaiter returns a Waiter with default settings.
func NewWaiter(provider domain.Provider, log *zap.Logger) *Waiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Waiter{
		provider:           provider,
		log:                log,
		PollInterval:       DefaultPollInterval,
		Timeout:            DefaultTimeout,
		MaxTransientErrors: DefaultMaxTransientErrors,
	}
}

// WaitForState waits for instanceID to reach target. action may be nil
// when the provider returned none.
func (w *Waiter) WaitForState(ctx context.Context, act *domain.ActionStatus, instanceID string, target domain.PowerState) error {
	return w.wait(ctx, act, instanceID, target, func(ctx context.Context, log *zap.Logger) error {
		return w.pollByState(ctx, instanceID, target, log)
	})
}

// WaitForGone waits for instanceID to be terminated or no longer known
// to the provider.
func (w *Waiter) WaitForGone(ctx context.Context, act *domain.ActionStatus, instanceID string) error {
	return w.wait(ctx, act, instanceID, domain.PowerTerminated, func(ctx context.Context, log *zap.Logger) error {
		return w.pollInstance(ctx, instanceID, log, true, func(inst *domain.Instance) (bool, error) {
			return inst.State == domain.PowerTerminated, nil
		})
	})
}

func (w *Waiter) wait(ctx context.Context, act *domain.ActionStatus, instanceID string, target domain.PowerState, poll func(context.Context, *zap.Logger) error) error {
	if act != nil && act.Status == domain.ActionStatusError {
		return actionFailed(act)
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := w.log.With(zap.String("instance", instanceID), zap.String("target", string(target)))

	if act != nil && !act.IsComplete() && act.ID != "" {
		if poller, ok := w.provider.(domain.ActionPoller); ok {
			if err := w.pollByAction(waitCtx, poller, act.ID, log); err != nil {
				return w.classify(waitCtx, err, instanceID, target, timeout)
			}
		}
	}

	err := poll(waitCtx, log)
	return w.classify(waitCtx, err, instanceID, target, timeout)
}

// classify turns a deadline expiry into a timeout error.
func (w *Waiter) classify(ctx context.Context, err error, instanceID string, target domain.PowerState, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("instance %s did not reach %s within %s: %w", instanceID, target, timeout, domain.ErrTimeout)
	}
	return err
}

// pollByAction polls a provider's action endpoint until the action
// reaches a terminal state.
func (w *Waiter) pollByAction(ctx context.Context, poller domain.ActionPoller, actionID string, log *zap.Logger) error {
	var consecutiveErrors int

	for {
		if err := w.pause(ctx); err != nil {
			return err
		}

		status, err := poller.PollAction(ctx, actionID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrRateLimited) {
				return fmt.Errorf("polling stopped: %w", err)
			}
			consecutiveErrors++
			if consecutiveErrors >= w.maxTransient() {
				return fmt.Errorf("error polling action (after %d consecutive failures): %w", consecutiveErrors, err)
			}
			log.Warn("transient error polling action", zap.Error(err), zap.Int("attempt", consecutiveErrors))
			continue
		}
		consecutiveErrors = 0

		switch status.Status {
		case domain.ActionStatusSuccess:
			return nil
		case domain.ActionStatusError:
			return actionFailed(status)
		default:
			log.Debug("action in progress", zap.String("action", actionID), zap.Int("progress", status.Progress))
		}
	}
}

// pollByState reads the instance until its state matches target.
func (w *Waiter) pollByState(ctx context.Context, instanceID string, target domain.PowerState, log *zap.Logger) error {
	return w.pollInstance(ctx, instanceID, log, false, func(inst *domain.Instance) (bool, error) {
		if inst.State == target {
			return true, nil
		}
		if inst.State == domain.PowerTerminated {
			return false, fmt.Errorf("instance %s terminated while waiting for %s", instanceID, target)
		}
		return false, nil
	})
}

// pollInstance reads the instance until done reports true or fails. The
// first read happens immediately. A not-found instance ends the wait
// successfully when goneOK is set.
func (w *Waiter) pollInstance(ctx context.Context, instanceID string, log *zap.Logger, goneOK bool, done func(*domain.Instance) (bool, error)) error {
	var consecutiveErrors int

	for first := true; ; first = false {
		if !first {
			if err := w.pause(ctx); err != nil {
				return err
			}
		}

		inst, err := w.provider.GetInstance(ctx, instanceID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrRateLimited) {
				return fmt.Errorf("polling stopped: %w", err)
			}
			if errors.Is(err, domain.ErrNotFound) {
				if goneOK {
					return nil
				}
				return fmt.Errorf("instance %s disappeared while polling: %w", instanceID, err)
			}
			consecutiveErrors++
			if consecutiveErrors >= w.maxTransient() {
				return fmt.Errorf("error polling instance state (after %d consecutive failures): %w", consecutiveErrors, err)
			}
			log.Warn("transient error polling instance", zap.Error(err), zap.Int("attempt", consecutiveErrors))
			continue
		}
		consecutiveErrors = 0

		ok, err := done(inst)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		log.Debug("waiting for state", zap.String("state", string(inst.State)))
	}
}

func (w *Waiter) pause(ctx context.Context) error {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Waiter) maxTransient() int {
	if w.MaxTransientErrors <= 0 {
		return DefaultMaxTransientErrors
	}
	return w.MaxTransientErrors
}

func actionFailed(a *domain.ActionStatus) error {
	if a.ErrorMessage != "" {
		return fmt.Errorf("action failed: %s", a.ErrorMessage)
	}
	return fmt.Errorf("action failed")
}
