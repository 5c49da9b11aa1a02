// Package normalizer turns inbound JSON payloads of varying shape into
// canonical observation candidates.
package normalizer

import (
	"fmt"
	"time"
)

type Normalizer struct {
	tables map[Kind]Table
	policy Policy
	now    func() time.Time
}

type Result struct {
	Shape      Shape
	Candidates []Candidate
	Dropped    int
}

func New(policy Policy, tables ...Table) *Normalizer {
	if len(tables) == 0 {
		tables = DefaultTables()
	}
	byKind := make(map[Kind]Table, len(tables))
	for _, t := range tables {
		byKind[t.Kind] = t
	}
	return &Normalizer{
		tables: byKind,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the ingestion-time source.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

func (n *Normalizer) Table(kind Kind) (Table, bool) {
	t, ok := n.tables[kind]
	return t, ok
}

// Normalize classifies, maps and validates payload for kind. Every item in
// one call shares the same ingestion time.
func (n *Normalizer) Normalize(kind Kind, payload interface{}) (Result, error) {
	t, ok := n.tables[kind]
	if !ok {
		return Result{}, fmt.Errorf("no field table for observation kind %q", kind)
	}

	env := Classify(payload, t.Shape)
	now := n.now()
	candidates := make([]Candidate, 0, len(env.Items))
	for _, item := range env.Items {
		candidates = append(candidates, t.Map(item, env.Shared, now))
	}

	kept, dropped, err := n.policy.Apply(t, candidates)
	dropped += env.Skipped
	if err != nil {
		return Result{Shape: env.Shape, Dropped: dropped}, err
	}
	return Result{Shape: env.Shape, Candidates: kept, Dropped: dropped}, nil
}

// FirstString returns the first non-blank string among aliases, for callers
// that resolve a single field outside a table.
func FirstString(item map[string]interface{}, aliases ...string) string {
	raw, ok := lookup(item, aliases)
	if !ok {
		return ""
	}
	s, _ := coerceText(raw)
	return s
}

// FirstInt is FirstString for integer identifiers.
func FirstInt(item map[string]interface{}, aliases ...string) (int64, bool) {
	raw, ok := lookup(item, aliases)
	if !ok {
		return 0, false
	}
	return coerceInt(raw)
}
