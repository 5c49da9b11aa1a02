package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/caresync-health/platform/pkg/common/logger"
	"github.com/caresync-health/platform/pkg/observability/metrics"
)

const (
	EventRegistered    = "device.registered"
	EventStatusChanged = "device.status_changed"
	EventTransferred   = "device.transferred"
)

var (
	ErrIdentifierMissing = errs.New(errs.KindIdentifierMissing, "device_id (or serial/id) is required")
	ErrOwnerUnresolved   = errs.New(errs.KindOwnerUnresolved, "device owner could not be determined: authenticate or supply user_id")
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Publisher matches kafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// RegisterRequest carries the candidate values for each input, in the order
// they should be tried. Zero user ids mean "not supplied".
type RegisterRequest struct {
	SessionUserID  uint
	ExplicitUserID uint
	Kinds          []string
	ExternalIDs    []string
}

type Registry struct {
	store  Store
	events Publisher
	now    func() time.Time
}

func NewRegistry(store Store, events Publisher) *Registry {
	return &Registry{
		store:  store,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register binds an external identifier to its owner. A new identifier creates
// a connected device; a known one owned by the same user is refreshed; a known
// one owned by anybody else is an ownership conflict and is left untouched.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*Device, Outcome, error) {
	kind, kindSupplied := firstNonEmpty(req.Kinds)
	if !kindSupplied {
		kind = defaultKind
	}
	externalID, ok := firstNonEmpty(req.ExternalIDs)
	if !ok {
		return nil, "", ErrIdentifierMissing
	}
	owner := req.SessionUserID
	if owner == 0 {
		owner = req.ExplicitUserID
	}
	if owner == 0 {
		return nil, "", ErrOwnerUnresolved
	}

	existing, err := r.store.GetByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, ErrNotFound):
		d := &Device{
			UserID:     owner,
			Kind:       kind,
			ExternalID: externalID,
			Status:     StatusConnected,
		}
		createErr := r.store.Create(ctx, d)
		if createErr == nil {
			r.publish(ctx, EventRegistered, d, map[string]interface{}{"outcome": OutcomeCreated})
			metrics.ObserveRegistration(string(OutcomeCreated))
			return d, OutcomeCreated, nil
		}
		if !errors.Is(createErr, ErrDuplicate) {
			return nil, "", createErr
		}
		// A concurrent registration won the insert; decide against its row.
		logger.WithField("device_id", externalID).Info("device registration lost insert race, re-reading")
		existing, err = r.store.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", err
	}

	if existing.UserID != owner {
		metrics.ObserveRegistration("conflict")
		return nil, "", errs.New(errs.KindOwnershipConflict,
			fmt.Sprintf("device %s is registered to another user", externalID))
	}

	columns := []string{"status"}
	existing.Status = StatusConnected
	if kindSupplied {
		existing.Kind = kind
		columns = append(columns, "device_type")
	}
	if err := r.store.Update(ctx, existing, columns...); err != nil {
		return nil, "", err
	}
	r.publish(ctx, EventRegistered, existing, map[string]interface{}{"outcome": OutcomeUpdated})
	metrics.ObserveRegistration(string(OutcomeUpdated))
	return existing, OutcomeUpdated, nil
}

// Disconnect is the administrative connected -> disconnected transition.
func (r *Registry) Disconnect(ctx context.Context, d *Device) (*Device, error) {
	d.Status = StatusDisconnected
	if err := r.store.Update(ctx, d, "status"); err != nil {
		return nil, err
	}
	r.publish(ctx, EventStatusChanged, d, nil)
	return d, nil
}

// Reconnect marks the device connected and refreshes last_sync.
func (r *Registry) Reconnect(ctx context.Context, d *Device) (*Device, error) {
	now := r.now()
	d.Status = StatusConnected
	d.LastSync = &now
	if err := r.store.Update(ctx, d, "status", "last_sync"); err != nil {
		return nil, err
	}
	r.publish(ctx, EventStatusChanged, d, nil)
	return d, nil
}

// Transfer is the only path that changes a device's owner.
func (r *Registry) Transfer(ctx context.Context, d *Device, newOwner uint) (*Device, error) {
	if newOwner == 0 {
		return nil, ErrOwnerUnresolved
	}
	previous := d.UserID
	d.UserID = newOwner
	if err := r.store.Update(ctx, d, "user_id"); err != nil {
		return nil, err
	}
	r.publish(ctx, EventTransferred, d, map[string]interface{}{"previous_user_id": previous})
	return d, nil
}

// MarkSynced stamps a successful sync without touching the connection status.
func (r *Registry) MarkSynced(ctx context.Context, d *Device, at time.Time) error {
	d.LastSync = &at
	return r.store.Update(ctx, d, "last_sync")
}

func (r *Registry) publish(ctx context.Context, eventType string, d *Device, extra map[string]interface{}) {
	if r.events == nil {
		return
	}
	data := map[string]interface{}{
		"id":          d.ID,
		"device_id":   d.ExternalID,
		"device_type": d.Kind,
		"user_id":     d.UserID,
		"status":      d.Status,
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := r.events.PublishEvent(ctx, eventType, "device:"+d.ExternalID, data); err != nil {
		logger.WithError(err).WithField("device_id", d.ExternalID).Warn("failed to publish device event")
	}
}

func firstNonEmpty(candidates []string) (string, bool) {
	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}
