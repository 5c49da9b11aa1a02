package identity

import (
	"context"
	"errors"
	"time"

	"github.com/caresync-health/platform/pkg/common/errs"
	"gorm.io/gorm"
)

var ErrSubjectNotFound = errs.New(errs.KindSubjectNotFound, "patient not found")

// Subject is the clinical subject (patient) whose observations are recorded.
// There is at most one per owning user.
type Subject struct {
	ID           uint      `json:"id" gorm:"primaryKey;column:id"`
	UserID       uint      `json:"user_id" gorm:"column:user_id;not null;uniqueIndex"`
	HealthStatus string    `json:"health_status" gorm:"column:health_status;size:20;default:stable"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Subject) TableName() string {
	return "patients"
}

type SubjectStore interface {
	GetByID(ctx context.Context, id uint) (*Subject, error)
	GetByUserID(ctx context.Context, userID uint) (*Subject, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Subject{})
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*Subject, error) {
	var s Subject
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return found(&s, err)
}

func (r *Repository) GetByUserID(ctx context.Context, userID uint) (*Subject, error) {
	var s Subject
	err := r.db.WithContext(ctx).First(&s, "user_id = ?", userID).Error
	return found(&s, err)
}

// Create is used by seeding and tests; patient enrolment itself happens elsewhere.
func (r *Repository) Create(ctx context.Context, s *Subject) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return errs.Storage(r.db.WithContext(ctx).Create(s).Error)
}

func found(s *Subject, err error) (*Subject, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, errs.Storage(err)
	}
	return s, nil
}
