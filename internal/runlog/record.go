package runlog

import (
	"time"

	"nathanbeddoewebdev/shots/internal/orchestrator"
)

// Run is a persisted run report.
type Run struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Operation  string    `json:"operation"`
	Provider   string    `json:"provider"`
	Criterion  string    `json:"criterion"`
	Threshold  string    `json:"threshold,omitempty"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Done       int       `json:"done"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Planned    int       `json:"planned"`

	Instances []Instance `json:"instances,omitempty"`
}

// Instance is the stored result of one instance within a run.
type Instance struct {
	InstanceID   string   `json:"instance_id"`
	InstanceName string   `json:"instance_name,omitempty"`
	PriorState   string   `json:"prior_state"`
	FinalState   string   `json:"final_state"`
	Outcome      string   `json:"outcome"`
	Reason       string   `json:"reason,omitempty"`
	Snapshots    []string `json:"snapshots,omitempty"`
}

// FromReport converts an orchestrator report for storage.
func FromReport(r *orchestrator.Report) *Run {
	run := &Run{
		RunID:      r.RunID,
		Operation:  r.Operation,
		Provider:   r.Provider,
		Criterion:  r.Criterion,
		Threshold:  r.Threshold,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Done:       r.Counts.Done,
		Skipped:    r.Counts.Skipped,
		Failed:     r.Counts.Failed,
		Planned:    r.Counts.Planned,
	}
	for _, res := range r.Results {
		snaps := res.Snapshots
		if res.Outcome == orchestrator.OutcomePlanned {
			snaps = res.Planned
		}
		run.Instances = append(run.Instances, Instance{
			InstanceID:   res.InstanceID,
			InstanceName: res.InstanceName,
			PriorState:   string(res.PriorState),
			FinalState:   string(res.FinalState),
			Outcome:      string(res.Outcome),
			Reason:       res.Reason,
			Snapshots:    append([]string(nil), snaps...),
		})
	}
	return run
}
