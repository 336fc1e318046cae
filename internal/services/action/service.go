// Package action waits on provider power transitions and keeps the journal
// of restarts owed to instances stopped for a snapshot.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/actionstore"
	"nathanbeddoewebdev/shots/internal/domain"

	"go.uber.org/zap"
)

// Service encapsulates the restart journal: recording owed restarts,
// finalizing them, and resuming the ones an interrupted run left open.
type Service struct {
	repo         actionstore.ActionRepository
	provider     domain.Provider
	providerName string
	waiter       *Waiter
	log          *zap.Logger
}

// NewService creates a new action service. repo may be nil, in which case
// nothing is persisted.
func NewService(provider domain.Provider, providerName string, repo actionstore.ActionRepository, waiter *Waiter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if waiter == nil && provider != nil {
		waiter = NewWaiter(provider, log)
	}
	return &Service{
		repo:         repo,
		provider:     provider,
		providerName: providerName,
		waiter:       waiter,
		log:          log,
	}
}

// Close releases repository resources.
func (s *Service) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

// Owe records that inst must be returned to running. If persistence
// fails the run continues untracked and nil is returned.
func (s *Service) Owe(runID string, inst domain.Instance) *actionstore.ActionRecord {
	if s.repo == nil {
		return nil
	}

	record := &actionstore.ActionRecord{
		RunID:        runID,
		Provider:     s.providerName,
		InstanceID:   inst.ID,
		InstanceName: inst.Name,
		Command:      actionstore.CommandRestoreRunning,
		TargetState:  string(domain.PowerRunning),
		Status:       actionstore.StatusRunning,
	}

	if err := s.repo.Save(record); err != nil {
		s.log.Warn("restart journal unavailable", zap.String("instance", inst.ID), zap.Error(err))
		return nil
	}

	// Opportunistically clean up old completed records.
	_, _ = s.repo.DeleteOlderThan(7 * 24 * time.Hour)

	return record
}

// Settle finalizes an owed restart with the outcome of the start.
func (s *Service) Settle(record *actionstore.ActionRecord, err error) {
	if s.repo == nil || record == nil {
		return
	}

	if err != nil {
		record.Status = actionstore.StatusError
		record.ErrorMessage = err.Error()
	} else {
		record.Status = actionstore.StatusSuccess
		record.ErrorMessage = ""
	}

	if saveErr := s.repo.Save(record); saveErr != nil {
		s.log.Warn("failed to finalize restart record", zap.Int64("record", record.ID), zap.Error(saveErr))
	}
}

// ListOpen returns restarts that are still owed.
func (s *Service) ListOpen() ([]actionstore.ActionRecord, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("actions: repository unavailable")
	}
	return s.repo.ListOpen()
}

// ListRecent returns the most recent n action records.
func (s *Service) ListRecent(n int) ([]actionstore.ActionRecord, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("actions: repository unavailable")
	}
	return s.repo.ListRecent(n)
}

// Resume issues the owed start for record and waits for the instance to
// run. An instance that is already running settles the record without a
// start request.
func (s *Service) Resume(ctx context.Context, record *actionstore.ActionRecord) error {
	if s.provider == nil {
		return fmt.Errorf("actions: provider unavailable")
	}
	if record == nil {
		return fmt.Errorf("actions: record is nil")
	}

	err := s.resume(ctx, record)
	s.Settle(record, err)
	return err
}

func (s *Service) resume(ctx context.Context, record *actionstore.ActionRecord) error {
	target := domain.PowerState(record.TargetState)
	if target == "" {
		target = domain.PowerRunning
	}

	inst, err := s.provider.GetInstance(ctx, record.InstanceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("instance %s no longer exists: %w", record.InstanceID, err)
		}
		return fmt.Errorf("failed to read instance %s: %w", record.InstanceID, err)
	}

	switch inst.State {
	case target:
		s.log.Info("instance already restored", zap.String("instance", record.InstanceID))
		return nil
	case domain.PowerTerminated:
		return fmt.Errorf("instance %s is terminated", record.InstanceID)
	case domain.PowerPending:
		return s.waiter.WaitForState(ctx, nil, record.InstanceID, target)
	case domain.PowerStopping:
		if err := s.waiter.WaitForState(ctx, nil, record.InstanceID, domain.PowerStopped); err != nil {
			return err
		}
	}

	act, err := s.provider.StartInstance(ctx, record.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to start instance %s: %w", record.InstanceID, err)
	}
	return s.waiter.WaitForState(ctx, act, record.InstanceID, target)
}
