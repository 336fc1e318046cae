package domain

import "context"

// InstanceFilter narrows instance enumeration. Zero value means all
// instances. Providers may ignore fields they cannot filter on; callers
// re-check results.
type InstanceFilter struct {
	TagKey   string
	TagValue string
	IDs      []string
}

// Provider is the resource-provider contract consumed by the selector,
// the waiter and the orchestrator.
type Provider interface {
	GetDisplayName() string

	ListInstances(ctx context.Context, filter InstanceFilter) ([]Instance, error)
	GetInstance(ctx context.Context, id string) (*Instance, error)

	// StopInstance and StartInstance request a power transition. They
	// return as soon as the provider accepted the request.
	StopInstance(ctx context.Context, id string) (*ActionStatus, error)
	StartInstance(ctx context.Context, id string) (*ActionStatus, error)

	// TerminateInstance requests permanent deletion of the instance and
	// its root volume. Snapshots taken from it are kept.
	TerminateInstance(ctx context.Context, id string) (*ActionStatus, error)

	// CreateSnapshot requests a new snapshot of the volume and returns
	// without waiting for it to complete.
	CreateSnapshot(ctx context.Context, volumeID, description string) (*Snapshot, error)
}

// ActionPoller is implemented by providers that track asynchronous
// operations by ID (e.g. Hetzner actions).
type ActionPoller interface {
	PollAction(ctx context.Context, actionID string) (*ActionStatus, error)
}

// TagValidator is implemented by providers that restrict which tag keys
// and values a filter may use. A failing check means no list call could
// succeed with that tag.
type TagValidator interface {
	ValidateTag(key, value string) error
}
