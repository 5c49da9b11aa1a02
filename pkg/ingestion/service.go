package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/caresync-health/platform/pkg/common/logger"
	"github.com/caresync-health/platform/pkg/device"
	"github.com/caresync-health/platform/pkg/identity"
	"github.com/caresync-health/platform/pkg/normalizer"
	"github.com/caresync-health/platform/pkg/observability/metrics"
)

const (
	EventObservationsRecorded = "observations.recorded"

	manualSource = "manual"
)

// SnapshotCache matches storage.SnapshotCache.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Version(ctx context.Context, key string) (int64, error)
	SetIfVersion(ctx context.Context, key string, version int64, value interface{}) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

type Options struct {
	MetricsListLimit int
}

type Service struct {
	resolver   *identity.Resolver
	registry   *device.Registry
	normalizer *normalizer.Normalizer
	store      Store
	cache      SnapshotCache
	events     device.Publisher
	opts       Options
	now        func() time.Time
}

// NewService wires the pipeline. cache and events may be nil.
func NewService(resolver *identity.Resolver, registry *device.Registry, n *normalizer.Normalizer, store Store, cache SnapshotCache, events device.Publisher, opts Options) *Service {
	if opts.MetricsListLimit <= 0 {
		opts.MetricsListLimit = 200
	}
	return &Service{
		resolver:   resolver,
		registry:   registry,
		normalizer: n,
		store:      store,
		cache:      cache,
		events:     events,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SyncDevice ingests a vital-sign batch from the device named by ref and
// stamps the device's last_sync once the rows are written.
func (s *Service) SyncDevice(ctx context.Context, ref string, payload interface{}) (*SyncResult, error) {
	d, subject, err := s.resolver.DeviceSubject(ctx, ref)
	if err != nil {
		return nil, err
	}

	res, err := s.normalize(normalizer.KindVital, payload)
	if err != nil {
		return nil, err
	}

	rows := make([]HealthMetric, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		rows = append(rows, newHealthMetric(subject.ID, c, d.Kind))
	}
	written, err := s.store.InsertMetrics(ctx, rows)
	if err != nil {
		s.logWriteFailure(normalizer.KindVital, subject.ID, written, err)
		return nil, err
	}
	metrics.ObserveWritten(string(normalizer.KindVital), written)

	if len(rows) > 0 {
		if err := s.registry.MarkSynced(ctx, d, s.now()); err != nil {
			logger.WithError(err).WithField("device_id", d.ExternalID).Warn("metrics stored but last_sync was not updated")
		}
		s.invalidateLatest(ctx, subject.ID)
	}
	s.publish(ctx, normalizer.KindVital, subject.ID, "device:"+d.ExternalID, written)

	logger.WithFields(map[string]interface{}{
		"device_id":  d.ExternalID,
		"patient_id": subject.ID,
		"count":      written,
		"dropped":    res.Dropped,
		"shape":      res.Shape.String(),
	}).Info("device sync stored")

	return &SyncResult{Synced: true, Count: written}, nil
}

// DeviceMetrics returns the newest metrics of the patient linked to the device.
func (s *Service) DeviceMetrics(ctx context.Context, ref string) ([]HealthMetric, error) {
	_, subject, err := s.resolver.DeviceSubject(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.store.ListMetrics(ctx, subject.ID, s.opts.MetricsListLimit)
}

func (s *Service) AddSymptoms(ctx context.Context, patientID uint, payload interface{}) ([]Symptom, normalizer.Shape, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, 0, err
	}
	res, err := s.normalize(normalizer.KindSymptom, payload)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]Symptom, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		rows = append(rows, newSymptom(patientID, c))
	}
	written, err := s.store.InsertSymptoms(ctx, rows)
	if err != nil {
		s.logWriteFailure(normalizer.KindSymptom, patientID, written, err)
		return nil, 0, err
	}
	metrics.ObserveWritten(string(normalizer.KindSymptom), written)
	s.publish(ctx, normalizer.KindSymptom, patientID, fmt.Sprintf("patient:%d", patientID), written)
	return rows, res.Shape, nil
}

func (s *Service) AddEmotions(ctx context.Context, patientID uint, payload interface{}) ([]Emotion, normalizer.Shape, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, 0, err
	}
	res, err := s.normalize(normalizer.KindEmotion, payload)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]Emotion, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		rows = append(rows, newEmotion(patientID, c))
	}
	written, err := s.store.InsertEmotions(ctx, rows)
	if err != nil {
		s.logWriteFailure(normalizer.KindEmotion, patientID, written, err)
		return nil, 0, err
	}
	metrics.ObserveWritten(string(normalizer.KindEmotion), written)
	s.publish(ctx, normalizer.KindEmotion, patientID, fmt.Sprintf("patient:%d", patientID), written)
	return rows, res.Shape, nil
}

// AddMetrics records manually entered vitals; rows without a source are
// attributed to "manual".
func (s *Service) AddMetrics(ctx context.Context, patientID uint, payload interface{}) ([]HealthMetric, normalizer.Shape, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, 0, err
	}
	res, err := s.normalize(normalizer.KindVital, payload)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]HealthMetric, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		rows = append(rows, newHealthMetric(patientID, c, manualSource))
	}
	written, err := s.store.InsertMetrics(ctx, rows)
	if err != nil {
		s.logWriteFailure(normalizer.KindVital, patientID, written, err)
		return nil, 0, err
	}
	metrics.ObserveWritten(string(normalizer.KindVital), written)
	if written > 0 {
		s.invalidateLatest(ctx, patientID)
	}
	s.publish(ctx, normalizer.KindVital, patientID, fmt.Sprintf("patient:%d", patientID), written)
	return rows, res.Shape, nil
}

func (s *Service) ListSymptoms(ctx context.Context, patientID uint) ([]Symptom, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, err
	}
	return s.store.ListSymptoms(ctx, patientID, 0)
}

func (s *Service) ListEmotions(ctx context.Context, patientID uint) ([]Emotion, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, err
	}
	return s.store.ListEmotions(ctx, patientID, 0)
}

func (s *Service) ListMetrics(ctx context.Context, patientID uint) ([]HealthMetric, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, err
	}
	return s.store.ListMetrics(ctx, patientID, s.opts.MetricsListLimit)
}

// LatestMetric serves the most recent vitals, from the snapshot cache when
// possible. A nil result means the patient has no metrics yet.
func (s *Service) LatestMetric(ctx context.Context, patientID uint) (*HealthMetric, error) {
	if _, err := s.resolver.Subject(ctx, patientID); err != nil {
		return nil, err
	}

	key := latestKey(patientID)
	cacheable := s.cache != nil
	var version int64
	if cacheable {
		var cached HealthMetric
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.WithError(err).WithField("patient_id", patientID).Warn("latest vitals cache read failed")
			cacheable = false
		} else if hit {
			return &cached, nil
		} else if version, err = s.cache.Version(ctx, key); err != nil {
			logger.WithError(err).WithField("patient_id", patientID).Warn("latest vitals cache read failed")
			cacheable = false
		}
	}

	latest, err := s.store.LatestMetric(ctx, patientID)
	if err != nil || latest == nil {
		return latest, err
	}
	if cacheable {
		if _, err := s.cache.SetIfVersion(ctx, key, version, latest); err != nil {
			logger.WithError(err).WithField("patient_id", patientID).Warn("latest vitals cache write failed")
		}
	}
	return latest, nil
}

func (s *Service) normalize(kind normalizer.Kind, payload interface{}) (normalizer.Result, error) {
	res, err := s.normalizer.Normalize(kind, payload)
	if err != nil {
		metrics.ObserveRejected(string(kind), string(errs.KindOf(err)))
		logger.WithError(err).WithField("kind", kind).Warn("submission rejected")
		return res, err
	}
	metrics.ObserveDropped(string(kind), res.Dropped)
	return res, nil
}

func (s *Service) invalidateLatest(ctx context.Context, patientID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, latestKey(patientID)); err != nil {
		logger.WithError(err).WithField("patient_id", patientID).Warn("latest vitals cache invalidation failed")
	}
}

func (s *Service) publish(ctx context.Context, kind normalizer.Kind, patientID uint, source string, count int) {
	if s.events == nil || count == 0 {
		return
	}
	data := map[string]interface{}{
		"kind":       kind,
		"patient_id": patientID,
		"count":      count,
	}
	if err := s.events.PublishEvent(ctx, EventObservationsRecorded, source, data); err != nil {
		logger.WithError(err).WithField("patient_id", patientID).Warn("failed to publish ingestion event")
	}
}

func (s *Service) logWriteFailure(kind normalizer.Kind, patientID uint, written int, err error) {
	logger.WithError(err).WithFields(map[string]interface{}{
		"kind":       kind,
		"patient_id": patientID,
		"written":    written,
	}).Error("bulk insert failed")
}

func latestKey(patientID uint) string {
	return fmt.Sprintf("vitals:latest:%d", patientID)
}
