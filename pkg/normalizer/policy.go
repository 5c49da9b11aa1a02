package normalizer

import (
	"fmt"
	"strings"

	"github.com/caresync-health/platform/pkg/common/errs"
)

const (
	ScoreMin int64 = 1
	ScoreMax int64 = 10
)

// Policy holds the validation switches that are deployment decisions.
type Policy struct {
	// RejectEmptyVitals drops vital records with no measured field instead of
	// storing them as a no-data sync.
	RejectEmptyVitals bool
}

// Clamp forces v into [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	return max(lo, min(hi, v))
}

// Apply filters and clamps candidates in place order. It fails with
// no_valid_observations when nothing survives.
func (p Policy) Apply(t Table, candidates []Candidate) ([]Candidate, int, error) {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !p.accept(t, c) {
			continue
		}
		if t.Score != "" {
			if score, ok := c.Int(t.Score); ok {
				c.Values[t.Score] = Clamp(score, ScoreMin, ScoreMax)
			}
		}
		kept = append(kept, c)
	}

	dropped := len(candidates) - len(kept)
	if len(kept) == 0 {
		return nil, dropped, errs.New(errs.KindNoValidObservations, rejectionMessage(t, len(candidates), p))
	}
	return kept, dropped, nil
}

func (p Policy) accept(t Table, c Candidate) bool {
	if t.Category != "" {
		category, ok := c.Text(t.Category)
		if !ok || strings.TrimSpace(category) == "" {
			return false
		}
	}
	if t.ScoreRequired && !c.Has(t.Score) {
		return false
	}
	if t.Kind == KindVital && p.RejectEmptyVitals && !t.measured(c) {
		return false
	}
	return true
}

func rejectionMessage(t Table, received int, p Policy) string {
	if received == 0 {
		return fmt.Sprintf("no valid %s observations: payload contained no items", t.Kind)
	}
	switch {
	case t.Category != "" && t.ScoreRequired:
		return fmt.Sprintf("no valid %s observations: %s and %s are required", t.Kind, t.Category, t.Score)
	case t.Category != "":
		return fmt.Sprintf("no valid %s observations: %s is required", t.Kind, t.Category)
	case p.RejectEmptyVitals:
		return fmt.Sprintf("no valid %s observations: at least one measurement is required", t.Kind)
	}
	return fmt.Sprintf("no valid %s observations", t.Kind)
}
