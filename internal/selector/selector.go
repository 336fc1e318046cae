// Package selector resolves a selection criterion into the instances a run
// operates on.
package selector

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"nathanbeddoewebdev/shots/internal/domain"
)

// DefaultTagKey is the tag that groups instances into a universe.
const DefaultTagKey = "Universe"

// Criterion selects instances. The zero value selects the whole fleet.
type Criterion struct {
	// Universe matches the value of the universe tag.
	Universe string

	// InstanceIDs restricts the selection to these instances.
	InstanceIDs []string
}

// IsEmpty reports whether the criterion selects every instance.
func (c Criterion) IsEmpty() bool {
	return c.Universe == "" && len(c.InstanceIDs) == 0
}

func (c Criterion) String() string {
	switch {
	case c.IsEmpty():
		return "all instances"
	case c.Universe != "" && len(c.InstanceIDs) > 0:
		return fmt.Sprintf("universe %q, ids %v", c.Universe, c.InstanceIDs)
	case c.Universe != "":
		return fmt.Sprintf("universe %q", c.Universe)
	default:
		return fmt.Sprintf("ids %v", c.InstanceIDs)
	}
}

// Selector enumerates instances through a provider.
type Selector struct {
	provider domain.Provider
	tagKey   string
}

// New returns a Selector matching universes on tagKey (DefaultTagKey if
// empty).
func New(provider domain.Provider, tagKey string) *Selector {
	if tagKey == "" {
		tagKey = DefaultTagKey
	}
	return &Selector{provider: provider, tagKey: tagKey}
}

// TagKey returns the tag that holds an instance's universe.
func (s *Selector) TagKey() string { return s.tagKey }

// Select returns the instances matching c, sorted by ID. Provider-side
// filtering is re-checked here: an instance without the universe tag never
// matches a universe criterion.
func (s *Selector) Select(ctx context.Context, c Criterion) ([]domain.Instance, error) {
	filter := domain.InstanceFilter{IDs: c.InstanceIDs}
	if c.Universe != "" {
		filter.TagKey = s.tagKey
		filter.TagValue = c.Universe
	}

	instances, err := s.provider.ListInstances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c, err)
	}

	out := make([]domain.Instance, 0, len(instances))
	for _, inst := range instances {
		if c.Universe != "" {
			if v, ok := inst.Tag(s.tagKey); !ok || v != c.Universe {
				continue
			}
		}
		if len(c.InstanceIDs) > 0 && !slices.Contains(c.InstanceIDs, inst.ID) {
			continue
		}
		out = append(out, inst)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
