package normalizer

import (
	"encoding/json"
	"math"
	"time"
)

// Candidate is a canonical observation before policy is applied. Values only
// holds fields that resolved; missing measurements are absent, never zero.
type Candidate struct {
	Kind   Kind
	Values map[string]interface{}
}

func (c Candidate) Has(name string) bool {
	_, ok := c.Values[name]
	return ok
}

func (c Candidate) Int(name string) (int64, bool) {
	v, ok := c.Values[name].(int64)
	return v, ok
}

func (c Candidate) Float(name string) (float64, bool) {
	v, ok := c.Values[name].(float64)
	return v, ok
}

func (c Candidate) Text(name string) (string, bool) {
	v, ok := c.Values[name].(string)
	return v, ok
}

func (c Candidate) Time(name string) (time.Time, bool) {
	v, ok := c.Values[name].(time.Time)
	return v, ok
}

func (c Candidate) Raw(name string) (json.RawMessage, bool) {
	v, ok := c.Values[name].(json.RawMessage)
	return v, ok
}

// Map resolves every field of the table against one raw item. Timestamps that
// are missing or unparsable fall back to now instead of dropping the item.
func (t Table) Map(item, shared map[string]interface{}, now time.Time) Candidate {
	values := make(map[string]interface{}, len(t.Fields))
	for _, f := range t.Fields {
		raw, ok := lookup(item, f.Aliases)
		if !ok && f.Inherit {
			raw, ok = lookup(shared, f.Aliases)
		}

		if f.Type == TypeTimestamp {
			ts := now
			if ok {
				if parsed, valid := coerceTime(raw); valid {
					ts = parsed
				}
			}
			values[f.Name] = ts
			continue
		}
		if !ok {
			continue
		}

		switch f.Type {
		case TypeInteger:
			v, valid := coerceInt(raw)
			if valid && f.Int32 && (v > math.MaxInt32 || v < math.MinInt32) {
				valid = false
			}
			if valid {
				values[f.Name] = v
			}
		case TypeFloat:
			if v, valid := coerceFloat(raw); valid {
				values[f.Name] = v
			}
		case TypeText:
			if v, valid := coerceText(raw); valid {
				values[f.Name] = v
			}
		case TypeRawJSON:
			if v, valid := coerceRaw(raw); valid {
				values[f.Name] = v
			}
		}
	}
	return Candidate{Kind: t.Kind, Values: values}
}

func (t Table) measured(c Candidate) bool {
	for _, f := range t.Fields {
		if f.Measured && c.Has(f.Name) {
			return true
		}
	}
	return false
}
