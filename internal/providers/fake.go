package providers

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"nathanbeddoewebdev/shots/internal/domain"
)

// FakeProvider is an in-memory domain.Provider for tests. Power
// transitions complete after Settle GetInstance calls; StuckOnStop and
// StuckOnStart keep an instance in its transitional state forever.
type FakeProvider struct {
	mu sync.Mutex

	instances map[string]*fakeInstance
	nextSnap  int

	Settle int
	Now    func() time.Time

	StopErr      map[string]error
	StartErr     map[string]error
	TerminateErr map[string]error
	SnapshotErr  map[string]error // keyed by volume ID
	GetErr       map[string]error
	ListErr      error
	StuckOnStop  map[string]bool
	StuckOnStart map[string]bool

	// Calls, in order, formatted as "<op> <id>".
	Calls []string
}

type fakeInstance struct {
	inst      domain.Instance
	target    domain.PowerState
	remaining int
}

// NewFakeProvider returns a FakeProvider seeded with instances.
func NewFakeProvider(instances ...domain.Instance) *FakeProvider {
	f := &FakeProvider{
		instances:    make(map[string]*fakeInstance),
		Now:          time.Now,
		StopErr:      map[string]error{},
		StartErr:     map[string]error{},
		TerminateErr: map[string]error{},
		SnapshotErr:  map[string]error{},
		GetErr:       map[string]error{},
		StuckOnStop:  map[string]bool{},
		StuckOnStart: map[string]bool{},
	}
	for _, inst := range instances {
		f.Add(inst)
	}
	return f
}

// Add inserts or replaces an instance.
func (f *FakeProvider) Add(inst domain.Instance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[inst.ID] = &fakeInstance{inst: cloneInstance(inst)}
}

func (f *FakeProvider) GetDisplayName() string { return "Fake" }

func (f *FakeProvider) ListInstances(_ context.Context, filter domain.InstanceFilter) ([]domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "list")

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	out := make([]domain.Instance, 0, len(f.instances))
	for id, fi := range f.instances {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, id) {
			continue
		}
		if filter.TagKey != "" {
			if v, ok := fi.inst.Tag(filter.TagKey); !ok || v != filter.TagValue {
				continue
			}
		}
		out = append(out, cloneInstance(fi.inst))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeProvider) GetInstance(_ context.Context, id string) (*domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "get "+id)

	if err := f.GetErr[id]; err != nil {
		return nil, err
	}
	fi, ok := f.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}

	if fi.target != "" {
		if fi.remaining > 0 {
			fi.remaining--
		} else {
			fi.inst.State = fi.target
			fi.target = ""
		}
	}

	inst := cloneInstance(fi.inst)
	return &inst, nil
}

func (f *FakeProvider) StopInstance(_ context.Context, id string) (*domain.ActionStatus, error) {
	return f.transition("stop", id, f.StopErr, f.StuckOnStop, domain.PowerStopping, domain.PowerStopped)
}

func (f *FakeProvider) StartInstance(_ context.Context, id string) (*domain.ActionStatus, error) {
	return f.transition("start", id, f.StartErr, f.StuckOnStart, domain.PowerPending, domain.PowerRunning)
}

// TerminateInstance marks the instance terminated at once. Terminated
// instances stay listed, the way EC2 keeps them visible for a while.
func (f *FakeProvider) TerminateInstance(_ context.Context, id string) (*domain.ActionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "terminate "+id)

	if err := f.TerminateErr[id]; err != nil {
		return nil, err
	}
	fi, ok := f.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	fi.inst.State = domain.PowerTerminated
	fi.target = ""
	return &domain.ActionStatus{Status: domain.ActionStatusRunning, Command: "terminate_instance"}, nil
}

func (f *FakeProvider) transition(op, id string, errs map[string]error, stuck map[string]bool, via, target domain.PowerState) (*domain.ActionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op+" "+id)

	if err := errs[id]; err != nil {
		return nil, err
	}
	fi, ok := f.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}

	fi.inst.State = via
	if stuck[id] {
		fi.target = ""
	} else {
		fi.target = target
		fi.remaining = f.Settle
	}
	return &domain.ActionStatus{Status: domain.ActionStatusRunning, Command: op + "_instance"}, nil
}

func (f *FakeProvider) CreateSnapshot(_ context.Context, volumeID, description string) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "snapshot "+volumeID)

	if err := f.SnapshotErr[volumeID]; err != nil {
		return nil, err
	}

	for _, fi := range f.instances {
		for vi := range fi.inst.Volumes {
			v := &fi.inst.Volumes[vi]
			if v.ID != volumeID {
				continue
			}
			f.nextSnap++
			snap := domain.Snapshot{
				ID:          "snap-" + strconv.Itoa(f.nextSnap),
				VolumeID:    volumeID,
				State:       domain.SnapshotPending,
				StartTime:   f.Now(),
				Description: description,
			}
			v.Snapshots = append([]domain.Snapshot{snap}, v.Snapshots...)
			return &snap, nil
		}
	}
	return nil, fmt.Errorf("volume %s: %w", volumeID, domain.ErrNotFound)
}

// State returns the current stored power state of an instance.
func (f *FakeProvider) State(id string) domain.PowerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fi, ok := f.instances[id]; ok {
		return fi.inst.State
	}
	return ""
}

// CallsFor returns the recorded calls of op ("stop", "start", "terminate",
// "snapshot", "get") as their IDs.
func (f *FakeProvider) CallsFor(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	prefix := op + " "
	for _, c := range f.Calls {
		if len(c) > len(prefix) && c[:len(prefix)] == prefix {
			ids = append(ids, c[len(prefix):])
		}
	}
	return ids
}

func cloneInstance(in domain.Instance) domain.Instance {
	out := in
	if in.Tags != nil {
		out.Tags = make(map[string]string, len(in.Tags))
		for k, v := range in.Tags {
			out.Tags[k] = v
		}
	}
	if in.Volumes != nil {
		out.Volumes = make([]domain.Volume, len(in.Volumes))
		for i, v := range in.Volumes {
			out.Volumes[i] = v
			out.Volumes[i].Snapshots = append([]domain.Snapshot(nil), v.Snapshots...)
		}
	}
	return out
}
