package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/providers"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fastWaiter(p domain.Provider) *Waiter {
	w := NewWaiter(p, zap.NewNop())
	w.PollInterval = time.Millisecond
	w.Timeout = time.Second
	return w
}

// flakyProvider fails GetInstance a fixed number of times before
// delegating.
type flakyProvider struct {
	*providers.FakeProvider
	mu       sync.Mutex
	failures int
	err      error
}

func (p *flakyProvider) GetInstance(ctx context.Context, id string) (*domain.Instance, error) {
	p.mu.Lock()
	if p.failures > 0 {
		p.failures--
		p.mu.Unlock()
		return nil, p.err
	}
	p.mu.Unlock()
	return p.FakeProvider.GetInstance(ctx, id)
}

// actionProvider reports its action running for a few polls.
type actionProvider struct {
	*providers.FakeProvider
	mu      sync.Mutex
	running int
	final   domain.ActionStatus
	polls   int
}

func (p *actionProvider) PollAction(_ context.Context, id string) (*domain.ActionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.running > 0 {
		p.running--
		return &domain.ActionStatus{ID: id, Status: domain.ActionStatusRunning, Progress: 50}, nil
	}
	final := p.final
	return &final, nil
}

func running(id string) domain.Instance {
	return domain.Instance{ID: id, State: domain.PowerRunning}
}

func TestWaitForState_Settles(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	fake.Settle = 3
	ctx := context.Background()

	act, _ := fake.StopInstance(ctx, "a")
	if err := fastWaiter(fake).WaitForState(ctx, act, "a", domain.PowerStopped); err != nil {
		t.Fatalf("WaitForState: %v", err)
	}
	if fake.State("a") != domain.PowerStopped {
		t.Errorf("expected stopped, got %q", fake.State("a"))
	}
}

func TestWaitForState_AlreadyThere(t *testing.T) {
	fake := providers.NewFakeProvider(domain.Instance{ID: "a", State: domain.PowerStopped})
	w := fastWaiter(fake)
	w.PollInterval = time.Hour

	if err := w.WaitForState(context.Background(), nil, "a", domain.PowerStopped); err != nil {
		t.Fatalf("WaitForState: %v", err)
	}
}

func TestWaitForState_Timeout(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	fake.StuckOnStop["a"] = true
	ctx := context.Background()

	act, _ := fake.StopInstance(ctx, "a")
	w := fastWaiter(fake)
	w.Timeout = 20 * time.Millisecond

	err := w.WaitForState(ctx, act, "a", domain.PowerStopped)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitForState_Canceled(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	fake.StuckOnStop["a"] = true
	ctx, cancel := context.WithCancel(context.Background())

	act, _ := fake.StopInstance(ctx, "a")
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := fastWaiter(fake).WaitForState(ctx, act, "a", domain.PowerStopped)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
}

func TestWaitForState_ActionError(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	act := &domain.ActionStatus{ID: "1", Status: domain.ActionStatusError, ErrorMessage: "locked"}

	err := fastWaiter(fake).WaitForState(context.Background(), act, "a", domain.PowerStopped)
	if err == nil || err.Error() != "action failed: locked" {
		t.Fatalf("expected action failure, got %v", err)
	}
	if len(fake.CallsFor("get")) != 0 {
		t.Error("expected no state reads after a failed action")
	}
}

func TestWaitForState_TransientErrorsTolerated(t *testing.T) {
	fake := providers.NewFakeProvider(domain.Instance{ID: "a", State: domain.PowerStopped})
	p := &flakyProvider{FakeProvider: fake, failures: 2, err: errors.New("connection reset")}

	core, logs := observer.New(zap.WarnLevel)
	w := fastWaiter(p)
	w.log = zap.New(core)

	if err := w.WaitForState(context.Background(), nil, "a", domain.PowerStopped); err != nil {
		t.Fatalf("WaitForState: %v", err)
	}
	if logs.FilterMessage("transient error polling instance").Len() != 2 {
		t.Errorf("expected 2 transient warnings, got %d", logs.Len())
	}
}

func TestWaitForState_TooManyTransientErrors(t *testing.T) {
	fake := providers.NewFakeProvider(domain.Instance{ID: "a", State: domain.PowerStopped})
	boom := errors.New("connection reset")
	p := &flakyProvider{FakeProvider: fake, failures: 10, err: boom}

	err := fastWaiter(p).WaitForState(context.Background(), nil, "a", domain.PowerStopped)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Error("expected a read failure, not a timeout")
	}
}

func TestWaitForState_RateLimitAborts(t *testing.T) {
	fake := providers.NewFakeProvider(domain.Instance{ID: "a", State: domain.PowerStopped})
	p := &flakyProvider{FakeProvider: fake, failures: 1, err: domain.ErrRateLimited}

	err := fastWaiter(p).WaitForState(context.Background(), nil, "a", domain.PowerStopped)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestWaitForState_Terminated(t *testing.T) {
	fake := providers.NewFakeProvider(domain.Instance{ID: "a", State: domain.PowerTerminated})

	err := fastWaiter(fake).WaitForState(context.Background(), nil, "a", domain.PowerRunning)
	if err == nil {
		t.Fatal("expected error for terminated instance")
	}
}

func TestWaitForState_PollsActionFirst(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	p := &actionProvider{
		FakeProvider: fake,
		running:      2,
		final:        domain.ActionStatus{ID: "9", Status: domain.ActionStatusSuccess},
	}
	ctx := context.Background()

	fake.StopInstance(ctx, "a")
	act := &domain.ActionStatus{ID: "9", Status: domain.ActionStatusRunning}
	if err := fastWaiter(p).WaitForState(ctx, act, "a", domain.PowerStopped); err != nil {
		t.Fatalf("WaitForState: %v", err)
	}
	if p.polls != 3 {
		t.Errorf("expected 3 action polls, got %d", p.polls)
	}
}

func TestWaitForState_PolledActionFails(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	p := &actionProvider{
		FakeProvider: fake,
		final:        domain.ActionStatus{ID: "9", Status: domain.ActionStatusError, ErrorMessage: "server locked"},
	}

	act := &domain.ActionStatus{ID: "9", Status: domain.ActionStatusRunning}
	err := fastWaiter(p).WaitForState(context.Background(), act, "a", domain.PowerStopped)
	if err == nil || err.Error() != "action failed: server locked" {
		t.Fatalf("expected action failure, got %v", err)
	}
}

func TestWaitForGone(t *testing.T) {
	tests := []struct {
		name    string
		seed    []domain.Instance
		wantErr error
	}{
		{name: "terminated", seed: []domain.Instance{{ID: "a", State: domain.PowerTerminated}}},
		{name: "no longer listed"},
		{name: "still running", seed: []domain.Instance{running("a")}, wantErr: domain.ErrTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := fastWaiter(providers.NewFakeProvider(tc.seed...))
			w.Timeout = 20 * time.Millisecond

			err := w.WaitForGone(context.Background(), nil, "a")
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("WaitForGone: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestWaitForGone_PolledActionFails(t *testing.T) {
	fake := providers.NewFakeProvider(running("a"))
	p := &actionProvider{
		FakeProvider: fake,
		final:        domain.ActionStatus{ID: "9", Status: domain.ActionStatusError, ErrorMessage: "server is protected"},
	}

	act := &domain.ActionStatus{ID: "9", Status: domain.ActionStatusRunning}
	err := fastWaiter(p).WaitForGone(context.Background(), act, "a")
	if err == nil || err.Error() != "action failed: server is protected" {
		t.Fatalf("expected action failure, got %v", err)
	}
	if got := fake.CallsFor("get"); len(got) != 0 {
		t.Errorf("expected no state reads after a failed action, got %v", got)
	}
}
