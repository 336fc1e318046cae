// Package policy decides whether a volume needs a fresh snapshot.
package policy

import (
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"
)

// AgeThreshold is the maximum age, in whole days, of a completed snapshot
// that still counts as fresh. The zero value means no threshold.
type AgeThreshold struct {
	days int
	set  bool
}

// NoThreshold means every volume without an in-flight snapshot is eligible.
var NoThreshold = AgeThreshold{}

// Days returns a threshold of n days. n must not be negative.
func Days(n int) (AgeThreshold, error) {
	if n < 0 {
		return AgeThreshold{}, fmt.Errorf("age threshold must not be negative, got %d days", n)
	}
	return AgeThreshold{days: n, set: true}, nil
}

// FromOptional converts an optional day count (nil = unset).
func FromOptional(days *int) (AgeThreshold, error) {
	if days == nil {
		return NoThreshold, nil
	}
	return Days(*days)
}

// IsSet reports whether a threshold is configured.
func (t AgeThreshold) IsSet() bool { return t.set }

// Duration is the threshold length, days × 24h.
func (t AgeThreshold) Duration() time.Duration {
	return time.Duration(t.days) * 24 * time.Hour
}

func (t AgeThreshold) String() string {
	if !t.set {
		return "none"
	}
	return fmt.Sprintf("%dd", t.days)
}

// Reason explains a Decision.
type Reason string

const (
	ReasonInFlight    Reason = "in-flight"
	ReasonFresh       Reason = "fresh"
	ReasonStale       Reason = "stale"
	ReasonNoThreshold Reason = "no-threshold"
	ReasonNoSnapshots Reason = "no-snapshots"
)

// Decision is the verdict for one volume.
type Decision struct {
	Eligible bool
	Reason   Reason

	// Snapshot is the snapshot that drove the decision: the in-flight one
	// or the newest fresh one. Nil otherwise.
	Snapshot *domain.Snapshot
}

// InFlight returns the first pending snapshot of v, or nil.
func InFlight(v domain.Volume) *domain.Snapshot {
	for i := range v.Snapshots {
		if v.Snapshots[i].State == domain.SnapshotPending {
			return &v.Snapshots[i]
		}
	}
	return nil
}

// IsStale reports whether v has no completed snapshot started within the
// threshold window ending at now. A snapshot started exactly at the
// window edge is fresh. Snapshots dated after now count as fresh.
// Without a threshold every volume is stale.
func IsStale(v domain.Volume, threshold AgeThreshold, now time.Time) bool {
	return freshSnapshot(v, threshold, now) == nil
}

func freshSnapshot(v domain.Volume, threshold AgeThreshold, now time.Time) *domain.Snapshot {
	if !threshold.IsSet() {
		return nil
	}
	cutoff := now.Add(-threshold.Duration())
	for i := range v.Snapshots {
		s := &v.Snapshots[i]
		if s.State != domain.SnapshotCompleted {
			continue
		}
		if !s.StartTime.Before(cutoff) {
			return s
		}
	}
	return nil
}

// Evaluate combines the in-flight guard and the staleness check.
func Evaluate(v domain.Volume, threshold AgeThreshold, now time.Time) Decision {
	if s := InFlight(v); s != nil {
		return Decision{Eligible: false, Reason: ReasonInFlight, Snapshot: s}
	}
	if !threshold.IsSet() {
		return Decision{Eligible: true, Reason: ReasonNoThreshold}
	}
	if s := freshSnapshot(v, threshold, now); s != nil {
		return Decision{Eligible: false, Reason: ReasonFresh, Snapshot: s}
	}
	for _, s := range v.Snapshots {
		if s.State == domain.SnapshotCompleted {
			return Decision{Eligible: true, Reason: ReasonStale}
		}
	}
	return Decision{Eligible: true, Reason: ReasonNoSnapshots}
}
