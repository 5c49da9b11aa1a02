package normalizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAliasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTablesDefaults(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Len(t, tables, 3)
}

func TestLoadTablesAppendsAliases(t *testing.T) {
	path := writeAliasFile(t, `
fields:
  vital:
    heart_rate: [pulse, heart_rate]
  symptom:
    symptom_type: [complaint]
`)
	tables, err := LoadTables(path)
	require.NoError(t, err)

	n := New(Policy{}, tables...).WithClock(func() time.Time { return fixedNow })
	res, err := n.Normalize(KindVital, map[string]interface{}{"pulse": json.Number("64")})
	require.NoError(t, err)
	hr, ok := res.Candidates[0].Int(FieldHeartRate)
	require.True(t, ok)
	assert.Equal(t, int64(64), hr)

	vital := VitalTable()
	for _, tbl := range tables {
		if tbl.Kind == KindVital {
			assert.Len(t, tbl.Fields[1].Aliases, len(vital.Fields[1].Aliases)+1, "duplicates are skipped")
		}
	}

	res, err = n.Normalize(KindSymptom, map[string]interface{}{"complaint": "itch", "severity": json.Number("3")})
	require.NoError(t, err)
	cat, _ := res.Candidates[0].Text(FieldSymptomType)
	assert.Equal(t, "itch", cat)
}

func TestLoadTablesRejectsUnknownNames(t *testing.T) {
	_, err := LoadTables(writeAliasFile(t, "fields:\n  vital:\n    pulse_ox: [po]\n"))
	assert.ErrorContains(t, err, `unknown vital field "pulse_ox"`)

	_, err = LoadTables(writeAliasFile(t, "fields:\n  medication:\n    name: [drug]\n"))
	assert.ErrorContains(t, err, `unknown observation kind "medication"`)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
