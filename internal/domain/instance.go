package domain

import "time"

// PowerState is the provider-reported power state of an instance.
type PowerState string

const (
	PowerRunning    PowerState = "running"
	PowerStopped    PowerState = "stopped"
	PowerPending    PowerState = "pending"
	PowerStopping   PowerState = "stopping"
	PowerTerminated PowerState = "terminated"
	PowerUnknown    PowerState = "unknown"
)

// Instance represents a compute instance across providers.
type Instance struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	State PowerState `json:"state"`

	// Tags are provider labels. May be nil.
	Tags map[string]string `json:"tags,omitempty"`

	// Volumes are the block-storage volumes attached to the instance,
	// in provider order.
	Volumes []Volume `json:"volumes,omitempty"`
}

// Tag returns the value of the tag named key and whether it was present.
func (i *Instance) Tag(key string) (string, bool) {
	if i == nil || i.Tags == nil {
		return "", false
	}
	v, ok := i.Tags[key]
	return v, ok
}

// Volume is a block-storage volume as enumerated under an instance.
type Volume struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	SizeGB     int    `json:"size_gb"`
	Encrypted  bool   `json:"encrypted"`

	// Snapshots are ordered newest first.
	Snapshots []Snapshot `json:"snapshots,omitempty"`
}

// SnapshotState is the lifecycle state of a snapshot.
type SnapshotState string

const (
	SnapshotPending   SnapshotState = "pending"
	SnapshotCompleted SnapshotState = "completed"
	SnapshotError     SnapshotState = "error"
)

// Snapshot is a point-in-time backup of a volume. StartTime is the
// canonical instant used for every age comparison.
type Snapshot struct {
	ID          string        `json:"id"`
	VolumeID    string        `json:"volume_id"`
	State       SnapshotState `json:"state"`
	Progress    int           `json:"progress"`
	StartTime   time.Time     `json:"start_time"`
	Description string        `json:"description,omitempty"`
}
