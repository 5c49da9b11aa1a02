package normalizer

// Kind is the observation family a payload is normalized into.
type Kind string

const (
	KindVital   Kind = "vital"
	KindSymptom Kind = "symptom"
	KindEmotion Kind = "emotion"
)

type FieldType int

const (
	TypeInteger FieldType = iota
	TypeFloat
	TypeText
	TypeTimestamp
	TypeRawJSON
)

// Field maps one canonical field to the source keys accepted for it, tried in order.
type Field struct {
	Name    string
	Aliases []string
	Type    FieldType
	// Inherit lets a wrapper-level value back-fill items that lack the field.
	Inherit bool
	// Measured fields count towards the empty vital record check.
	Measured bool
	// Int32 integer values outside the 32-bit range are dropped; they are
	// stored in integer columns.
	Int32 bool
}

// Table is the declarative description of one observation kind.
type Table struct {
	Kind   Kind
	Fields []Field
	Shape  ShapeRules
	// Category must be non-empty on every kept item, when set.
	Category string
	// Score is clamped into the policy range; ScoreRequired drops items without it.
	Score         string
	ScoreRequired bool
}

const (
	FieldSource     = "source"
	FieldRecordedAt = "recorded_at"
	FieldNotes      = "notes"

	FieldHeartRate       = "heart_rate"
	FieldSpO2            = "spo2"
	FieldECGData         = "ecg_data"
	FieldTemperature     = "temperature"
	FieldRespirationRate = "respiration_rate"
	FieldBloodPressure   = "blood_pressure_sys"
	FieldBloodPressureD  = "blood_pressure_dia"
	FieldSteps           = "steps"
	FieldActivityMinutes = "activity_minutes"
	FieldSleepHours      = "sleep_hours"
	FieldStressLevel     = "stress_level"

	FieldSymptomType = "symptom_type"
	FieldSeverity    = "severity"
	FieldEmotionType = "emotion_type"
	FieldIntensity   = "intensity"
)

func recordedAtField() Field {
	return Field{Name: FieldRecordedAt, Aliases: []string{"recorded_at", "recordedAt", "timestamp"}, Type: TypeTimestamp, Inherit: true}
}

func notesField() Field {
	return Field{Name: FieldNotes, Aliases: []string{"notes", "note"}, Type: TypeText, Inherit: true}
}

func VitalTable() Table {
	return Table{
		Kind: KindVital,
		Shape: ShapeRules{
			ListField: "payload",
		},
		Fields: []Field{
			{Name: FieldSource, Aliases: []string{"source", "provider"}, Type: TypeText, Inherit: true},
			{Name: FieldHeartRate, Aliases: []string{"heart_rate", "heartRate", "hr"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldSpO2, Aliases: []string{"spo2", "SpO2", "oxygen_saturation", "oxygenSaturation"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldECGData, Aliases: []string{"ecg_data", "ecgData", "ecg"}, Type: TypeRawJSON, Measured: true},
			{Name: FieldTemperature, Aliases: []string{"temperature", "temp", "body_temperature"}, Type: TypeFloat, Measured: true},
			{Name: FieldRespirationRate, Aliases: []string{"respiration_rate", "respirationRate", "respiratory_rate"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldBloodPressure, Aliases: []string{"blood_pressure_sys", "bloodPressureSys", "systolic"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldBloodPressureD, Aliases: []string{"blood_pressure_dia", "bloodPressureDia", "diastolic"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldSteps, Aliases: []string{"steps", "step_count", "stepCount"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldActivityMinutes, Aliases: []string{"activity_minutes", "activityMinutes", "active_minutes", "activeMinutes"}, Type: TypeInteger, Measured: true, Int32: true},
			{Name: FieldSleepHours, Aliases: []string{"sleep_hours", "sleepHours", "sleep_duration"}, Type: TypeFloat, Measured: true},
			{Name: FieldStressLevel, Aliases: []string{"stress_level", "stressLevel", "stress"}, Type: TypeInteger, Measured: true, Int32: true},
			recordedAtField(),
		},
	}
}

func SymptomTable() Table {
	return Table{
		Kind: KindSymptom,
		Shape: ShapeRules{
			ListField: "items",
			MapField:  "symptoms",
			MapKey:    FieldSymptomType,
			MapValue:  FieldSeverity,
		},
		Fields: []Field{
			{Name: FieldSymptomType, Aliases: []string{"symptom_type", "type", "symptom"}, Type: TypeText},
			{Name: FieldSeverity, Aliases: []string{"severity", "intensity"}, Type: TypeInteger},
			notesField(),
			recordedAtField(),
		},
		Category:      FieldSymptomType,
		Score:         FieldSeverity,
		ScoreRequired: true,
	}
}

// EmotionTable keeps intensity optional: a mood with no score is still a report.
func EmotionTable() Table {
	return Table{
		Kind: KindEmotion,
		Shape: ShapeRules{
			ListField: "items",
			MapField:  "emotions",
			MapKey:    FieldEmotionType,
			MapValue:  FieldIntensity,
		},
		Fields: []Field{
			{Name: FieldEmotionType, Aliases: []string{"emotion_type", "mood", "emotion"}, Type: TypeText},
			{Name: FieldIntensity, Aliases: []string{"intensity"}, Type: TypeInteger},
			notesField(),
			recordedAtField(),
		},
		Category: FieldEmotionType,
		Score:    FieldIntensity,
	}
}

func DefaultTables() []Table {
	return []Table{VitalTable(), SymptomTable(), EmotionTable()}
}
