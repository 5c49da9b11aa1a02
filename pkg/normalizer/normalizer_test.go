package normalizer

import (
	"sort"
	"testing"

	"github.com/caresync-health/platform/pkg/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedValues(cs []Candidate, key string) []map[string]interface{} {
	out := make([]map[string]interface{}, len(cs))
	for i, c := range cs {
		out[i] = c.Values
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i][key].(string) < out[j][key].(string)
	})
	return out
}

func TestSymptomShapesAreEquivalent(t *testing.T) {
	n := newTestNormalizer(Policy{})
	bodies := map[string]string{
		"single":  `{"symptom_type":"nausea","severity":2,"notes":"am"}`,
		"list":    `[{"symptom_type":"nausea","severity":2,"notes":"am"}]`,
		"wrapper": `{"items":[{"type":"nausea","severity":"2"}],"notes":"am"}`,
		"map":     `{"symptoms":{"nausea":2},"note":"am"}`,
	}

	var reference []map[string]interface{}
	for name, body := range bodies {
		res, err := n.Normalize(KindSymptom, decode(t, body))
		require.NoError(t, err, name)
		got := sortedValues(res.Candidates, FieldSymptomType)
		if reference == nil {
			reference = got
			continue
		}
		assert.Equal(t, reference, got, name)
	}
}

func TestSymptomMapScenario(t *testing.T) {
	n := newTestNormalizer(Policy{})
	res, err := n.Normalize(KindSymptom, decode(t, `{"symptoms":{"nausea":2,"fatigue":12},"notes":"am"}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeMap, res.Shape)

	got := sortedValues(res.Candidates, FieldSymptomType)
	assert.Equal(t, []map[string]interface{}{
		{FieldSymptomType: "fatigue", FieldSeverity: int64(10), FieldNotes: "am", FieldRecordedAt: fixedNow},
		{FieldSymptomType: "nausea", FieldSeverity: int64(2), FieldNotes: "am", FieldRecordedAt: fixedNow},
	}, got)
}

func TestEmptySymptomBodyRejected(t *testing.T) {
	n := newTestNormalizer(Policy{})
	_, err := n.Normalize(KindSymptom, decode(t, `{}`))
	require.Error(t, err)
	assert.Equal(t, errs.KindNoValidObservations, errs.KindOf(err))
}

func TestVitalPayloadShapes(t *testing.T) {
	n := newTestNormalizer(Policy{})

	res, err := n.Normalize(KindVital, decode(t, `{"heart_rate":72}`))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, map[string]interface{}{FieldHeartRate: int64(72), FieldRecordedAt: fixedNow}, res.Candidates[0].Values)

	res, err = n.Normalize(KindVital, decode(t, `[{"heartRate":70},{"spo2":"98"}]`))
	require.NoError(t, err)
	assert.Equal(t, ShapeList, res.Shape)
	assert.Len(t, res.Candidates, 2)

	res, err = n.Normalize(KindVital, decode(t, `{"payload":[{"steps":10},{"temp":"36.9"}],"source":"healthkit"}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapper, res.Shape)
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		src, _ := c.Text(FieldSource)
		assert.Equal(t, "healthkit", src)
	}
	temp, ok := res.Candidates[1].Float(FieldTemperature)
	require.True(t, ok)
	assert.InDelta(t, 36.9, temp, 1e-9)
}

func TestVitalEmptyListRejected(t *testing.T) {
	n := newTestNormalizer(Policy{})
	_, err := n.Normalize(KindVital, decode(t, `[]`))
	assert.Equal(t, errs.KindNoValidObservations, errs.KindOf(err))
}

func TestEmotionShapes(t *testing.T) {
	n := newTestNormalizer(Policy{})

	res, err := n.Normalize(KindEmotion, decode(t, `{"mood":"anxious","intensity":11,"note":"before scan"}`))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, map[string]interface{}{
		FieldEmotionType: "anxious",
		FieldIntensity:   int64(10),
		FieldNotes:       "before scan",
		FieldRecordedAt:  fixedNow,
	}, res.Candidates[0].Values)

	res, err = n.Normalize(KindEmotion, decode(t, `{"emotions":{"calm":3,"hopeful":7}}`))
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)

	_, err = n.Normalize(KindEmotion, decode(t, `{"intensity":3}`))
	assert.ErrorContains(t, err, "emotion_type is required")
}

func TestUnknownKind(t *testing.T) {
	n := New(Policy{}, SymptomTable())
	_, err := n.Normalize(KindVital, map[string]interface{}{})
	assert.Error(t, err)
}

func TestFirstHelpers(t *testing.T) {
	body := decode(t, `{"type":"","provider":"fitbit","serial":"ABC","user_id":"42"}`).(map[string]interface{})

	assert.Equal(t, "fitbit", FirstString(body, "device_type", "type", "provider"))
	assert.Equal(t, "ABC", FirstString(body, "device_id", "serial", "id"))
	assert.Equal(t, "", FirstString(body, "missing"))

	id, ok := FirstInt(body, "user_id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestOutOfRangeScoresSaturateBeforeClamp(t *testing.T) {
	n := newTestNormalizer(Policy{})
	cases := map[string]int64{
		"15":                   10,
		"9223372036854775807":  10,
		"9223372036854775808":  10,
		"1e20":                 10,
		"-1e20":                1,
		"-9223372036854775809": 1,
		"0":                    1,
	}
	for raw, want := range cases {
		res, err := n.Normalize(KindSymptom, decode(t, `{"symptoms":{"fatigue":`+raw+`}}`))
		require.NoError(t, err, raw)
		require.Len(t, res.Candidates, 1, raw)
		got, ok := res.Candidates[0].Int(FieldSeverity)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestVitalIntegersBeyond32BitAreDropped(t *testing.T) {
	n := newTestNormalizer(Policy{})
	res, err := n.Normalize(KindVital, decode(t, `{"heart_rate":3e9,"steps":-3000000000,"spo2":97}`))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.False(t, c.Has(FieldHeartRate))
	assert.False(t, c.Has(FieldSteps))
	spo2, ok := c.Int(FieldSpO2)
	require.True(t, ok)
	assert.Equal(t, int64(97), spo2)

	_, err = newTestNormalizer(Policy{RejectEmptyVitals: true}).Normalize(KindVital, decode(t, `{"heart_rate":3e9}`))
	assert.Equal(t, errs.KindNoValidObservations, errs.KindOf(err))
}

func TestNonObjectListElementsCountAsDropped(t *testing.T) {
	n := newTestNormalizer(Policy{})
	res, err := n.Normalize(KindSymptom, decode(t, `["a","b",3,{"symptom_type":"cough","severity":4}]`))
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, 3, res.Dropped)

	res, err = n.Normalize(KindVital, decode(t, `{"payload":[null,{"heart_rate":60}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)

	res, err = n.Normalize(KindSymptom, decode(t, `["a","b"]`))
	assert.Equal(t, errs.KindNoValidObservations, errs.KindOf(err))
	assert.Equal(t, 2, res.Dropped)
}
