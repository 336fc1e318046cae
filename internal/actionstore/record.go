package actionstore

import "time"

// Command names stored in the journal.
const (
	// CommandRestoreRunning marks a restart owed to an instance that was
	// stopped for a snapshot.
	CommandRestoreRunning = "restore_running"
)

// Record statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// ActionRecord is a journalled obligation: an instance that a run stopped
// and still owes a start. It outlives the process so an interrupted run
// can be resumed.
type ActionRecord struct {
	// ID is the auto-increment primary key (assigned on insert).
	ID int64

	// RunID ties the record to the run that created it.
	RunID string

	Provider     string
	InstanceID   string
	InstanceName string

	// Command describes the obligation, e.g. "restore_running".
	Command string

	// TargetState is the power state the instance must be returned to.
	TargetState string

	// Status is "running" while the obligation is open, then "success"
	// or "error".
	Status string

	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the obligation still needs work.
func (r ActionRecord) Open() bool {
	return r.Status != StatusSuccess
}
