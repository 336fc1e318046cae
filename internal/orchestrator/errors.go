package orchestrator

import (
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"
)

// ConfigurationError aborts a run before any provider access.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ProviderError is a rejected provider request. It is contained to the
// instance it concerns.
type ProviderError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.InstanceID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TimeoutError reports that an instance did not reach Target in time.
type TimeoutError struct {
	InstanceID string
	Target     domain.PowerState
	Waited     time.Duration
	Err        error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("instance %s did not reach %s after %s", e.InstanceID, e.Target, e.Waited.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error {
	if e.Err == nil {
		return domain.ErrTimeout
	}
	return e.Err
}
