// Package identity resolves device references and maps devices to the
// patient that owns them. It only reads; every call goes to the store.
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/caresync-health/platform/pkg/device"
)

type DeviceLookup interface {
	GetByID(ctx context.Context, id uint) (*device.Device, error)
	GetByExternalID(ctx context.Context, externalID string) (*device.Device, error)
}

type Resolver struct {
	devices  DeviceLookup
	subjects SubjectStore
}

func NewResolver(devices DeviceLookup, subjects SubjectStore) *Resolver {
	return &Resolver{devices: devices, subjects: subjects}
}

// Device resolves ref as a surrogate id first when it is numeric, then as an
// external identifier.
func (r *Resolver) Device(ctx context.Context, ref string) (*device.Device, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, device.ErrNotFound
	}

	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		d, err := r.devices.GetByID(ctx, uint(id))
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, device.ErrNotFound) {
			return nil, err
		}
	}

	return r.devices.GetByExternalID(ctx, ref)
}

// SubjectForDevice finds the patient whose user owns d.
func (r *Resolver) SubjectForDevice(ctx context.Context, d *device.Device) (*Subject, error) {
	s, err := r.subjects.GetByUserID(ctx, d.UserID)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil, errs.Wrap(errs.KindSubjectNotFound, "no patient is linked to this device", err)
	}
	return s, err
}

// DeviceSubject resolves both steps of an ingestion call.
func (r *Resolver) DeviceSubject(ctx context.Context, ref string) (*device.Device, *Subject, error) {
	d, err := r.Device(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	s, err := r.SubjectForDevice(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	return d, s, nil
}

func (r *Resolver) Subject(ctx context.Context, id uint) (*Subject, error) {
	return r.subjects.GetByID(ctx, id)
}
