package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"nathanbeddoewebdev/shots/internal/domain"
	"nathanbeddoewebdev/shots/internal/retry"
	"nathanbeddoewebdev/shots/internal/services/auth"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

const (
	// rootVolumePrefix marks the synthetic volume ID that stands for a
	// server's primary disk.
	rootVolumePrefix = "root-"

	managedByLabel = "managed-by"
	managedByValue = "shots"
)

var (
	labelValueRe = regexp.MustCompile(`^(?:[A-Za-z0-9](?:[A-Za-z0-9._-]{0,61}[A-Za-z0-9])?)?$`)
	labelKeyRe   = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9.-]{0,251}[a-z0-9])?/)?[A-Za-z0-9](?:[A-Za-z0-9._-]{0,61}[A-Za-z0-9])?$`)
)

// HetznerProvider implements domain.Provider using the Hetzner Cloud API.
//
// Hetzner has no per-volume snapshot API, so every server exposes exactly
// one volume: its primary disk. Server snapshots (images of type
// "snapshot" created from the server) are that volume's snapshots.
type HetznerProvider struct {
	client *hcloud.Client
	retry  retry.Config
}

// NewHetznerProvider creates a HetznerProvider with the given hcloud client options.
// Default options (application name) are applied first; callers can override them.
func NewHetznerProvider(opts ...hcloud.ClientOption) *HetznerProvider {
	defaults := []hcloud.ClientOption{
		hcloud.WithApplication("shots", "0.1.0"),
	}
	allOpts := append(defaults, opts...)
	return &HetznerProvider{
		client: hcloud.NewClient(allOpts...),
		retry:  retry.DefaultConfig(),
	}
}

// RegisterHetzner registers the Hetzner provider factory with the global registry.
func RegisterHetzner() {
	Register("hetzner", func(store auth.Store) (domain.Provider, error) {
		token, err := store.GetToken("hetzner")
		if err != nil {
			return nil, fmt.Errorf("hetzner auth: %w", err)
		}

		return NewHetznerProvider(hcloud.WithToken(token)), nil
	})
}

func (h *HetznerProvider) GetDisplayName() string {
	return "Hetzner"
}

// ValidateTag implements domain.TagValidator with Hetzner's label rules:
// values are empty or up to 63 alphanumerics, dots, dashes and
// underscores, starting and ending alphanumeric. Keys follow the same
// rule with an optional DNS-style prefix.
func (h *HetznerProvider) ValidateTag(key, value string) error {
	if !labelKeyRe.MatchString(key) {
		return fmt.Errorf("%q is not a valid Hetzner label key", key)
	}
	if !labelValueRe.MatchString(value) {
		return fmt.Errorf("%q is not a valid Hetzner label value (up to 63 letters, digits, '.', '-' or '_', starting and ending with a letter or digit)", value)
	}
	return nil
}

// ListInstances returns servers matching the filter, each with its root
// volume and that volume's snapshots (newest first).
func (h *HetznerProvider) ListInstances(ctx context.Context, filter domain.InstanceFilter) ([]domain.Instance, error) {
	opts := hcloud.ServerListOpts{}
	if filter.TagKey != "" {
		opts.LabelSelector = filter.TagKey + "=" + filter.TagValue
	}

	servers, err := retry.Value(ctx, h.retry, retry.IsRetryable, func() ([]*hcloud.Server, error) {
		s, err := h.client.Server.AllWithOpts(ctx, opts)
		return s, mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	if len(filter.IDs) > 0 {
		want := make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			want[id] = true
		}
		kept := servers[:0]
		for _, s := range servers {
			if want[strconv.FormatInt(s.ID, 10)] {
				kept = append(kept, s)
			}
		}
		servers = kept
	}

	if len(servers) == 0 {
		return []domain.Instance{}, nil
	}

	snapshots, err := h.snapshotsByServer(ctx)
	if err != nil {
		return nil, err
	}

	instances := make([]domain.Instance, 0, len(servers))
	for _, s := range servers {
		instances = append(instances, toDomainInstance(s, snapshots[s.ID]))
	}
	return instances, nil
}

// GetInstance fetches one server by its numeric ID.
func (h *HetznerProvider) GetInstance(ctx context.Context, id string) (*domain.Instance, error) {
	server, err := h.server(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshots, err := h.snapshotsByServer(ctx)
	if err != nil {
		return nil, err
	}

	inst := toDomainInstance(server, snapshots[server.ID])
	return &inst, nil
}

// StopInstance requests a graceful ACPI shutdown.
func (h *HetznerProvider) StopInstance(ctx context.Context, id string) (*domain.ActionStatus, error) {
	numericID, err := parseServerID(id)
	if err != nil {
		return nil, err
	}

	action, _, err := h.client.Server.Shutdown(ctx, &hcloud.Server{ID: numericID})
	if err != nil {
		return nil, fmt.Errorf("failed to stop server %s: %w", id, mapError(err))
	}
	return toDomainAction(action), nil
}

// StartInstance powers a server on.
func (h *HetznerProvider) StartInstance(ctx context.Context, id string) (*domain.ActionStatus, error) {
	numericID, err := parseServerID(id)
	if err != nil {
		return nil, err
	}

	action, _, err := h.client.Server.Poweron(ctx, &hcloud.Server{ID: numericID})
	if err != nil {
		return nil, fmt.Errorf("failed to start server %s: %w", id, mapError(err))
	}
	return toDomainAction(action), nil
}

// TerminateInstance deletes a server. Snapshot images created from it
// survive the deletion.
func (h *HetznerProvider) TerminateInstance(ctx context.Context, id string) (*domain.ActionStatus, error) {
	numericID, err := parseServerID(id)
	if err != nil {
		return nil, err
	}

	result, _, err := h.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: numericID})
	if err != nil {
		return nil, fmt.Errorf("failed to terminate server %s: %w", id, mapError(err))
	}
	if result == nil {
		return nil, nil
	}
	return toDomainAction(result.Action), nil
}

// CreateSnapshot requests a snapshot image of the server that owns the
// root volume. It returns as soon as the request is accepted.
func (h *HetznerProvider) CreateSnapshot(ctx context.Context, volumeID, description string) (*domain.Snapshot, error) {
	serverID, ok := strings.CutPrefix(volumeID, rootVolumePrefix)
	if !ok {
		return nil, fmt.Errorf("volume %q is not a Hetzner root volume: %w", volumeID, domain.ErrNotFound)
	}
	numericID, err := parseServerID(serverID)
	if err != nil {
		return nil, err
	}

	result, _, err := h.client.Server.CreateImage(ctx, &hcloud.Server{ID: numericID}, &hcloud.ServerCreateImageOpts{
		Type:        hcloud.ImageTypeSnapshot,
		Description: hcloud.Ptr(description),
		Labels:      map[string]string{managedByLabel: managedByValue},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot volume %s: %w", volumeID, mapError(err))
	}
	if result.Image == nil {
		return nil, fmt.Errorf("failed to snapshot volume %s: empty response", volumeID)
	}

	snap := toDomainSnapshot(result.Image, volumeID)
	if result.Action != nil {
		snap.Progress = result.Action.Progress
	}
	return &snap, nil
}

// PollAction implements domain.ActionPoller.
func (h *HetznerProvider) PollAction(ctx context.Context, actionID string) (*domain.ActionStatus, error) {
	numericID, err := strconv.ParseInt(actionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid action ID %q: %w", actionID, err)
	}

	action, _, err := h.client.Action.GetByID(ctx, numericID)
	if err != nil {
		return nil, fmt.Errorf("failed to poll action %s: %w", actionID, mapError(err))
	}
	if action == nil {
		return nil, fmt.Errorf("action %s: %w", actionID, domain.ErrNotFound)
	}
	return toDomainAction(action), nil
}

func (h *HetznerProvider) server(ctx context.Context, id string) (*hcloud.Server, error) {
	numericID, err := parseServerID(id)
	if err != nil {
		return nil, err
	}

	server, err := retry.Value(ctx, h.retry, retry.IsRetryable, func() (*hcloud.Server, error) {
		s, _, err := h.client.Server.GetByID(ctx, numericID)
		return s, mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", id, err)
	}
	if server == nil {
		return nil, fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
	}
	return server, nil
}

// snapshotsByServer lists all snapshot images and groups them by the
// server they were created from, newest first.
func (h *HetznerProvider) snapshotsByServer(ctx context.Context) (map[int64][]*hcloud.Image, error) {
	images, err := retry.Value(ctx, h.retry, retry.IsRetryable, func() ([]*hcloud.Image, error) {
		imgs, err := h.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
			Type: []hcloud.ImageType{hcloud.ImageTypeSnapshot},
		})
		return imgs, mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	byServer := make(map[int64][]*hcloud.Image)
	for _, img := range images {
		if img.CreatedFrom == nil {
			continue
		}
		byServer[img.CreatedFrom.ID] = append(byServer[img.CreatedFrom.ID], img)
	}
	for _, imgs := range byServer {
		sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].Created.After(imgs[j].Created) })
	}
	return byServer, nil
}

func parseServerID(id string) (int64, error) {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid server ID %q: %w", id, err)
	}
	return numericID, nil
}

// toDomainInstance converts an hcloud.Server and its snapshot images into
// a domain.Instance with a single root volume.
func toDomainInstance(s *hcloud.Server, images []*hcloud.Image) domain.Instance {
	id := strconv.FormatInt(s.ID, 10)
	volumeID := rootVolumePrefix + id

	snapshots := make([]domain.Snapshot, 0, len(images))
	for _, img := range images {
		snapshots = append(snapshots, toDomainSnapshot(img, volumeID))
	}

	return domain.Instance{
		ID:    id,
		Name:  s.Name,
		State: toPowerState(s.Status),
		Tags:  s.Labels,
		Volumes: []domain.Volume{{
			ID:         volumeID,
			InstanceID: id,
			SizeGB:     s.PrimaryDiskSize,
			Snapshots:  snapshots,
		}},
	}
}

func toDomainSnapshot(img *hcloud.Image, volumeID string) domain.Snapshot {
	snap := domain.Snapshot{
		ID:          strconv.FormatInt(img.ID, 10),
		VolumeID:    volumeID,
		State:       toSnapshotState(img.Status),
		StartTime:   img.Created,
		Description: img.Description,
	}
	if snap.State == domain.SnapshotCompleted {
		snap.Progress = 100
	}
	return snap
}

func toPowerState(status hcloud.ServerStatus) domain.PowerState {
	switch status {
	case hcloud.ServerStatusRunning:
		return domain.PowerRunning
	case hcloud.ServerStatusOff:
		return domain.PowerStopped
	case hcloud.ServerStatusInitializing, hcloud.ServerStatusStarting:
		return domain.PowerPending
	case hcloud.ServerStatusStopping:
		return domain.PowerStopping
	case hcloud.ServerStatusDeleting:
		return domain.PowerTerminated
	default:
		return domain.PowerUnknown
	}
}

func toSnapshotState(status hcloud.ImageStatus) domain.SnapshotState {
	switch status {
	case hcloud.ImageStatusAvailable:
		return domain.SnapshotCompleted
	case hcloud.ImageStatusCreating:
		return domain.SnapshotPending
	default:
		return domain.SnapshotError
	}
}

func toDomainAction(a *hcloud.Action) *domain.ActionStatus {
	if a == nil {
		return nil
	}
	status := &domain.ActionStatus{
		ID:           strconv.FormatInt(a.ID, 10),
		Status:       string(a.Status),
		Progress:     a.Progress,
		Command:      a.Command,
		ErrorMessage: a.ErrorMessage,
	}
	return status
}

// mapError translates hcloud API errors into domain sentinels so callers
// can classify them with errors.Is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch {
	case hcloud.IsError(err, hcloud.ErrorCodeNotFound):
		sentinel = domain.ErrNotFound
	case hcloud.IsError(err, hcloud.ErrorCodeUnauthorized), hcloud.IsError(err, hcloud.ErrorCodeForbidden):
		sentinel = domain.ErrUnauthorized
	case hcloud.IsError(err, hcloud.ErrorCodeRateLimitExceeded):
		sentinel = domain.ErrRateLimited
	case hcloud.IsError(err, hcloud.ErrorCodeConflict), hcloud.IsError(err, hcloud.ErrorCodeLocked):
		sentinel = domain.ErrConflict
	}
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
