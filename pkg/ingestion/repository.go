package ingestion

import (
	"context"
	"errors"

	"github.com/caresync-health/platform/pkg/common/errs"
	"gorm.io/gorm"
)

// Store is the bulk persistence gateway for canonical observations.
type Store interface {
	InsertMetrics(ctx context.Context, rows []HealthMetric) (int, error)
	InsertSymptoms(ctx context.Context, rows []Symptom) (int, error)
	InsertEmotions(ctx context.Context, rows []Emotion) (int, error)
	ListMetrics(ctx context.Context, patientID uint, limit int) ([]HealthMetric, error)
	LatestMetric(ctx context.Context, patientID uint) (*HealthMetric, error)
	ListSymptoms(ctx context.Context, patientID uint, limit int) ([]Symptom, error)
	ListEmotions(ctx context.Context, patientID uint, limit int) ([]Emotion, error)
}

type Repository struct {
	db        *gorm.DB
	atomic    bool
	batchSize int
}

// NewRepository returns a gateway whose multi-row writes either share one
// transaction (atomic) or commit batch by batch, in which case a failure can
// leave earlier batches written.
func NewRepository(db *gorm.DB, atomic bool, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Repository{db: db, atomic: atomic, batchSize: batchSize}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&HealthMetric{}, &Symptom{}, &Emotion{})
}

func (r *Repository) InsertMetrics(ctx context.Context, rows []HealthMetric) (int, error) {
	return insertRows(ctx, r, rows)
}

func (r *Repository) InsertSymptoms(ctx context.Context, rows []Symptom) (int, error) {
	return insertRows(ctx, r, rows)
}

func (r *Repository) InsertEmotions(ctx context.Context, rows []Emotion) (int, error) {
	return insertRows(ctx, r, rows)
}

func insertRows[T any](ctx context.Context, r *Repository, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx)

	if len(rows) == 1 {
		if err := db.Create(&rows[0]).Error; err != nil {
			return 0, errs.Storage(err)
		}
		return 1, nil
	}

	if r.atomic {
		var written int64
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.CreateInBatches(&rows, r.batchSize)
			written = res.RowsAffected
			return res.Error
		})
		if err != nil {
			return 0, errs.Storage(err)
		}
		return int(written), nil
	}

	res := db.Session(&gorm.Session{SkipDefaultTransaction: true}).CreateInBatches(&rows, r.batchSize)
	if res.Error != nil {
		return int(res.RowsAffected), errs.Storage(res.Error)
	}
	return int(res.RowsAffected), nil
}

// ListMetrics returns newest first.
func (r *Repository) ListMetrics(ctx context.Context, patientID uint, limit int) ([]HealthMetric, error) {
	var rows []HealthMetric
	err := newestFirst(r.db.WithContext(ctx), patientID, limit).Find(&rows).Error
	return rows, errs.Storage(err)
}

// LatestMetric returns nil without error when the patient has no metrics.
func (r *Repository) LatestMetric(ctx context.Context, patientID uint) (*HealthMetric, error) {
	var row HealthMetric
	err := newestFirst(r.db.WithContext(ctx), patientID, 1).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Storage(err)
	}
	return &row, nil
}

func (r *Repository) ListSymptoms(ctx context.Context, patientID uint, limit int) ([]Symptom, error) {
	var rows []Symptom
	err := newestFirst(r.db.WithContext(ctx), patientID, limit).Find(&rows).Error
	return rows, errs.Storage(err)
}

func (r *Repository) ListEmotions(ctx context.Context, patientID uint, limit int) ([]Emotion, error) {
	var rows []Emotion
	err := newestFirst(r.db.WithContext(ctx), patientID, limit).Find(&rows).Error
	return rows, errs.Storage(err)
}

func newestFirst(db *gorm.DB, patientID uint, limit int) *gorm.DB {
	q := db.Where("patient_id = ?", patientID).Order("recorded_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}
