package domain

// ActionStatus represents the state of an asynchronous provider action
// such as starting or stopping an instance. Providers return this from
// power operations so callers can poll for completion.
type ActionStatus struct {
	// ID is the provider-specific action identifier, used for polling.
	// Empty when the provider has no concept of actions.
	ID string `json:"id"`

	// Status is one of "running", "success", "error".
	Status string `json:"status"`

	// Progress is a percentage (0–100). Not all providers supply it.
	Progress int `json:"progress"`

	// Command describes the operation, e.g. "stop_instance".
	Command string `json:"command,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

const (
	ActionStatusRunning = "running"
	ActionStatusSuccess = "success"
	ActionStatusError   = "error"
)

// IsComplete reports whether the action has finished, regardless of outcome.
func (a *ActionStatus) IsComplete() bool {
	return a.Status == ActionStatusSuccess || a.Status == ActionStatusError
}
