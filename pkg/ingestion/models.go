package ingestion

import (
	"time"

	"github.com/caresync-health/platform/pkg/normalizer"
	"gorm.io/datatypes"
)

// HealthMetric is one vital-sign record. Nil fields were not measured and are
// left out of the JSON entirely.
type HealthMetric struct {
	ID               uint           `json:"id" gorm:"primaryKey;column:id"`
	PatientID        uint           `json:"patient_id" gorm:"column:patient_id;not null;index:idx_health_metrics_patient_time,priority:1"`
	Source           *string        `json:"source,omitempty" gorm:"column:source;size:50"`
	HeartRate        *int           `json:"heart_rate,omitempty" gorm:"column:heart_rate"`
	SpO2             *int           `json:"spo2,omitempty" gorm:"column:spo2"`
	ECGData          datatypes.JSON `json:"ecg_data,omitempty" gorm:"column:ecg_data"`
	Temperature      *float64       `json:"temperature,omitempty" gorm:"column:temperature"`
	RespirationRate  *int           `json:"respiration_rate,omitempty" gorm:"column:respiration_rate"`
	BloodPressureSys *int           `json:"blood_pressure_sys,omitempty" gorm:"column:blood_pressure_sys"`
	BloodPressureDia *int           `json:"blood_pressure_dia,omitempty" gorm:"column:blood_pressure_dia"`
	Steps            *int           `json:"steps,omitempty" gorm:"column:steps"`
	ActivityMinutes  *int           `json:"activity_minutes,omitempty" gorm:"column:activity_minutes"`
	SleepHours       *float64       `json:"sleep_hours,omitempty" gorm:"column:sleep_hours"`
	StressLevel      *int           `json:"stress_level,omitempty" gorm:"column:stress_level"`
	RecordedAt       time.Time      `json:"recorded_at" gorm:"column:recorded_at;index:idx_health_metrics_patient_time,priority:2"`
}

func (HealthMetric) TableName() string {
	return "health_metrics"
}

type Symptom struct {
	ID          uint      `json:"id" gorm:"primaryKey;column:id"`
	PatientID   uint      `json:"patient_id" gorm:"column:patient_id;not null;index"`
	SymptomType string    `json:"symptom_type" gorm:"column:symptom_type;size:50"`
	Severity    *int      `json:"severity,omitempty" gorm:"column:severity"`
	Notes       *string   `json:"notes,omitempty" gorm:"column:notes;type:text"`
	RecordedAt  time.Time `json:"recorded_at" gorm:"column:recorded_at"`
}

func (Symptom) TableName() string {
	return "symptoms"
}

type Emotion struct {
	ID          uint      `json:"id" gorm:"primaryKey;column:id"`
	PatientID   uint      `json:"patient_id" gorm:"column:patient_id;not null;index"`
	EmotionType string    `json:"emotion_type" gorm:"column:emotion_type;size:50"`
	Intensity   *int      `json:"intensity,omitempty" gorm:"column:intensity"`
	Notes       *string   `json:"notes,omitempty" gorm:"column:notes;type:text"`
	RecordedAt  time.Time `json:"recorded_at" gorm:"column:recorded_at"`
}

func (Emotion) TableName() string {
	return "emotions"
}

type SyncResult struct {
	Synced bool `json:"synced"`
	Count  int  `json:"count"`
}

func newHealthMetric(patientID uint, c normalizer.Candidate, defaultSource string) HealthMetric {
	m := HealthMetric{
		PatientID:        patientID,
		Source:           textPtr(c, normalizer.FieldSource),
		HeartRate:        intPtr(c, normalizer.FieldHeartRate),
		SpO2:             intPtr(c, normalizer.FieldSpO2),
		Temperature:      floatPtr(c, normalizer.FieldTemperature),
		RespirationRate:  intPtr(c, normalizer.FieldRespirationRate),
		BloodPressureSys: intPtr(c, normalizer.FieldBloodPressure),
		BloodPressureDia: intPtr(c, normalizer.FieldBloodPressureD),
		Steps:            intPtr(c, normalizer.FieldSteps),
		ActivityMinutes:  intPtr(c, normalizer.FieldActivityMinutes),
		SleepHours:       floatPtr(c, normalizer.FieldSleepHours),
		StressLevel:      intPtr(c, normalizer.FieldStressLevel),
		RecordedAt:       recordedAt(c),
	}
	if raw, ok := c.Raw(normalizer.FieldECGData); ok {
		m.ECGData = datatypes.JSON(raw)
	}
	if m.Source == nil && defaultSource != "" {
		src := defaultSource
		m.Source = &src
	}
	return m
}

func newSymptom(patientID uint, c normalizer.Candidate) Symptom {
	category, _ := c.Text(normalizer.FieldSymptomType)
	return Symptom{
		PatientID:   patientID,
		SymptomType: category,
		Severity:    intPtr(c, normalizer.FieldSeverity),
		Notes:       textPtr(c, normalizer.FieldNotes),
		RecordedAt:  recordedAt(c),
	}
}

func newEmotion(patientID uint, c normalizer.Candidate) Emotion {
	category, _ := c.Text(normalizer.FieldEmotionType)
	return Emotion{
		PatientID:   patientID,
		EmotionType: category,
		Intensity:   intPtr(c, normalizer.FieldIntensity),
		Notes:       textPtr(c, normalizer.FieldNotes),
		RecordedAt:  recordedAt(c),
	}
}

func intPtr(c normalizer.Candidate, name string) *int {
	v, ok := c.Int(name)
	if !ok {
		return nil
	}
	i := int(v)
	return &i
}

func floatPtr(c normalizer.Candidate, name string) *float64 {
	v, ok := c.Float(name)
	if !ok {
		return nil
	}
	return &v
}

func textPtr(c normalizer.Candidate, name string) *string {
	v, ok := c.Text(name)
	if !ok {
		return nil
	}
	return &v
}

func recordedAt(c normalizer.Candidate) time.Time {
	ts, _ := c.Time(normalizer.FieldRecordedAt)
	return ts
}
