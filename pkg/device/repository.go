package device

import (
	"context"
	"errors"
	"time"

	"github.com/caresync-health/platform/pkg/common/database"
	"github.com/caresync-health/platform/pkg/common/errs"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errs.New(errs.KindDeviceNotFound, "device not found")
	// ErrDuplicate is returned by Create when the external identifier is taken.
	ErrDuplicate = errors.New("device identifier already registered")
)

// Store is the persistence the registry and resolver depend on.
type Store interface {
	GetByID(ctx context.Context, id uint) (*Device, error)
	GetByExternalID(ctx context.Context, externalID string) (*Device, error)
	Create(ctx context.Context, d *Device) error
	Update(ctx context.Context, d *Device, columns ...string) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Device{})
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*Device, error) {
	var d Device
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	return r.found(&d, err)
}

func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*Device, error) {
	var d Device
	err := r.db.WithContext(ctx).First(&d, "device_id = ?", externalID).Error
	return r.found(&d, err)
}

func (r *Repository) Create(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	err := r.db.WithContext(ctx).Create(d).Error
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return errs.Storage(err)
}

// Update writes the named columns from d; updated_at is always written.
func (r *Repository) Update(ctx context.Context, d *Device, columns ...string) error {
	d.UpdatedAt = time.Now().UTC()
	cols := append([]string{"updated_at"}, columns...)
	err := r.db.WithContext(ctx).Model(d).Select(cols).Updates(d).Error
	return errs.Storage(err)
}

func (r *Repository) found(d *Device, err error) (*Device, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errs.Storage(err)
	}
	return d, nil
}
