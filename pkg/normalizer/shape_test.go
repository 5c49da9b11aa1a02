package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPrecedence(t *testing.T) {
	rules := SymptomTable().Shape

	cases := []struct {
		name  string
		body  string
		shape Shape
		items int
	}{
		{"list", `[{"type":"pain"},{"type":"cough"}]`, ShapeList, 2},
		{"wrapper", `{"items":[{"type":"pain"}],"notes":"x"}`, ShapeWrapper, 1},
		{"map", `{"symptoms":{"pain":3,"cough":1}}`, ShapeMap, 2},
		{"items wins over map", `{"items":[{"type":"pain"}],"symptoms":{"cough":1}}`, ShapeWrapper, 1},
		{"single", `{"type":"pain","severity":4}`, ShapeSingle, 1},
		{"items not a list", `{"items":"pain"}`, ShapeSingle, 1},
		{"symptoms not an object", `{"symptoms":"pain"}`, ShapeSingle, 1},
		{"empty object", `{}`, ShapeSingle, 1},
		{"scalar", `42`, ShapeSingle, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := Classify(decode(t, tc.body), rules)
			assert.Equal(t, tc.shape, env.Shape)
			assert.Len(t, env.Items, tc.items)
		})
	}
}

func TestClassifyListSkipsNonObjects(t *testing.T) {
	env := Classify(decode(t, `[{"type":"pain"}, 3, "x", null]`), SymptomTable().Shape)
	assert.Equal(t, ShapeList, env.Shape)
	assert.Len(t, env.Items, 1)
	assert.Equal(t, 3, env.Skipped)
	assert.Nil(t, env.Shared)

	env = Classify(decode(t, `{"payload":["x",{"heart_rate":70}]}`), VitalTable().Shape)
	assert.Equal(t, ShapeWrapper, env.Shape)
	assert.Equal(t, 1, env.Skipped)
}

func TestClassifyMapExpandsSortedEntries(t *testing.T) {
	env := Classify(decode(t, `{"symptoms":{"nausea":2,"fatigue":{"severity":5,"note":"after lunch"}},"notes":"am"}`), SymptomTable().Shape)
	require.Equal(t, ShapeMap, env.Shape)
	require.Len(t, env.Items, 2)

	assert.Equal(t, "fatigue", env.Items[0][FieldSymptomType])
	assert.Equal(t, "after lunch", env.Items[0]["note"])
	assert.Equal(t, "nausea", env.Items[1][FieldSymptomType])
	assert.Equal(t, json.Number("2"), env.Items[1][FieldSeverity])
	assert.Equal(t, "am", env.Shared["notes"])
}

func TestClassifyVitalPayloadWrapper(t *testing.T) {
	rules := VitalTable().Shape
	env := Classify(decode(t, `{"payload":[{"heart_rate":70},{"heart_rate":71}],"source":"fitbit"}`), rules)
	assert.Equal(t, ShapeWrapper, env.Shape)
	assert.Len(t, env.Items, 2)

	env = Classify(decode(t, `{"symptoms":{"a":1}}`), rules)
	assert.Equal(t, ShapeSingle, env.Shape, "vital rules have no map shape")
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "list", ShapeList.String())
	assert.Equal(t, "wrapper", ShapeWrapper.String())
	assert.Equal(t, "map", ShapeMap.String())
	assert.Equal(t, "single", ShapeSingle.String())
}
