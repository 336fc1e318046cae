package orchestrator

import (
	"time"

	"nathanbeddoewebdev/shots/internal/domain"
)

// Outcome is the final classification of one instance.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomePlanned Outcome = "planned"
)

// SkippedVolume is a volume left alone by the run.
type SkippedVolume struct {
	VolumeID string `json:"volume_id"`
	Reason   string `json:"reason"`
}

// InstanceResult is what happened to one instance.
type InstanceResult struct {
	InstanceID   string            `json:"instance_id"`
	InstanceName string            `json:"instance_name,omitempty"`
	PriorState   domain.PowerState `json:"prior_state"`
	FinalState   domain.PowerState `json:"final_state,omitempty"`
	Outcome      Outcome           `json:"outcome"`
	Reason       string            `json:"reason,omitempty"`

	// Snapshots holds the IDs of requested snapshots.
	Snapshots []string `json:"snapshots,omitempty"`

	// Planned holds the volumes a dry run would snapshot.
	Planned []string        `json:"planned,omitempty"`
	Skipped []SkippedVolume `json:"skipped,omitempty"`

	// Path lists the states the instance passed through.
	Path []State `json:"path"`

	Err error `json:"-"`
}

// Counts summarizes outcomes.
type Counts struct {
	Done    int `json:"done"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Planned int `json:"planned"`
}

// Report is the result of a run.
type Report struct {
	RunID      string           `json:"run_id"`
	Operation  string           `json:"operation"`
	Provider   string           `json:"provider"`
	Criterion  string           `json:"criterion"`
	Threshold  string           `json:"threshold,omitempty"`
	DryRun     bool             `json:"dry_run,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Results    []InstanceResult `json:"results"`
	Counts     Counts           `json:"counts"`
}

// HasFailures reports whether any instance failed.
func (r *Report) HasFailures() bool {
	return r != nil && r.Counts.Failed > 0
}

func (r *Report) tally() {
	r.Counts = Counts{}
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeDone:
			r.Counts.Done++
		case OutcomeSkipped:
			r.Counts.Skipped++
		case OutcomeFailed:
			r.Counts.Failed++
		case OutcomePlanned:
			r.Counts.Planned++
		}
	}
}
