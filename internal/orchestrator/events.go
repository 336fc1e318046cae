package orchestrator

import "time"

// EventKind classifies an Event.
type EventKind string

const (
	EventTransition        EventKind = "transition"
	EventSnapshotRequested EventKind = "snapshot-requested"
	EventSkip              EventKind = "skip"
	EventError             EventKind = "error"
	EventFinished          EventKind = "instance-finished"
)

// Event is one line of run output. Observers receive events from several
// workers at once and must be safe for concurrent use.
type Event struct {
	RunID        string    `json:"run_id"`
	Time         time.Time `json:"time"`
	Kind         EventKind `json:"kind"`
	InstanceID   string    `json:"instance_id"`
	InstanceName string    `json:"instance_name,omitempty"`
	VolumeID     string    `json:"volume_id,omitempty"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
	From         State     `json:"from,omitempty"`
	To           State     `json:"to,omitempty"`
	Outcome      Outcome   `json:"outcome,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Observer receives run events.
type Observer interface {
	Emit(Event)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) Emit(e Event) {
	for _, o := range obs {
		if o != nil {
			o.Emit(e)
		}
	}
}

// Metrics receives run measurements.
type Metrics interface {
	InstanceFinished(outcome string)
	SnapshotRequested()
	VolumeSkipped(reason string)
	PowerWaited(target string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) InstanceFinished(string)           {}
func (nopMetrics) SnapshotRequested()                {}
func (nopMetrics) VolumeSkipped(string)              {}
func (nopMetrics) PowerWaited(string, time.Duration) {}
