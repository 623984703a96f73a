package scoring

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CellKey addresses one score cell of a scoresheet
type CellKey struct {
	ParticipantID int
	CriterionID   int
}

// ScoreSet is one judge's known values. A pending entry shadows the
// persisted one; a nil pending entry is a cleared cell.
type ScoreSet struct {
	Persisted map[CellKey]float64
	Pending   map[CellKey]*float64
}

// NewScoreSet indexes persisted scores of a single judge
func NewScoreSet(scores []models.Score) ScoreSet {
	set := ScoreSet{
		Persisted: make(map[CellKey]float64, len(scores)),
		Pending:   make(map[CellKey]*float64),
	}
	for _, s := range scores {
		set.Persisted[CellKey{s.ParticipantID, s.CriterionID}] = s.Value
	}
	return set
}

// WithPending returns a copy of s with pending edits overlaid
func (s ScoreSet) WithPending(pending map[CellKey]*float64) ScoreSet {
	merged := make(map[CellKey]*float64, len(s.Pending)+len(pending))
	for k, v := range s.Pending {
		merged[k] = v
	}
	for k, v := range pending {
		merged[k] = v
	}
	return ScoreSet{Persisted: s.Persisted, Pending: merged}
}

// Value returns the most authoritative value for a cell
func (s ScoreSet) Value(key CellKey) (float64, bool) {
	if p, ok := s.Pending[key]; ok {
		if p == nil {
			return 0, false
		}
		return *p, true
	}
	v, ok := s.Persisted[key]
	return v, ok
}

// Contribution is the weighted amount a raw value adds to a total. Points
// are capped at the criterion maximum, percentages at 100.
func Contribution(raw float64, c models.Criterion, scoringType models.ScoringType) decimal.Decimal {
	v := decimal.NewFromFloat(raw)
	if v.IsNegative() {
		v = decimal.Zero
	}
	weight := decimal.NewFromFloat(c.Weight)
	if scoringType == models.ScoringPoints {
		return decimal.Min(v, weight)
	}
	return decimal.Min(v, hundred).Mul(weight).Div(hundred)
}

// ParticipantTotal sums the weighted contributions of every criterion that
// has a value. ok is false when no criterion has one, so that "not yet
// scored" is distinguishable from a real zero.
func ParticipantTotal(scores ScoreSet, participantID int, criteria []models.Criterion, scoringType models.ScoringType) (total float64, ok bool) {
	sum := decimal.Zero
	for _, c := range criteria {
		v, has := scores.Value(CellKey{participantID, c.ID})
		if !has {
			continue
		}
		ok = true
		sum = sum.Add(Contribution(v, c, scoringType))
	}
	if !ok {
		return 0, false
	}
	return round2(sum), true
}

// CategorySubtotals groups contributions by criterion category. Criteria
// without a category are not included.
func CategorySubtotals(scores ScoreSet, participantID int, criteria []models.Criterion, scoringType models.ScoringType) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, c := range criteria {
		if c.Category == "" {
			continue
		}
		v, has := scores.Value(CellKey{participantID, c.ID})
		if !has {
			continue
		}
		sums[c.Category] = sums[c.Category].Add(Contribution(v, c, scoringType))
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = round2(v)
	}
	return out
}

// Round2 rounds half away from zero to two decimal places
func Round2(v float64) float64 {
	return round2(decimal.NewFromFloat(v))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// SumRounded adds already-rounded totals and rounds the result again
func SumRounded(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return round2(sum)
}

// MaxRaw is the largest raw value a criterion accepts
func MaxRaw(c models.Criterion, scoringType models.ScoringType) float64 {
	if scoringType == models.ScoringPoints {
		return c.Weight
	}
	return 100
}

// ValidateRaw checks that a raw value is finite and in range for the criterion
func ValidateRaw(raw float64, c models.Criterion, scoringType models.ScoringType) error {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return errors.Validationf("score for %q must be a number", c.Name)
	}
	limit := MaxRaw(c, scoringType)
	if raw < 0 || raw > limit {
		return errors.Validationf("score for %q must be between 0 and %s",
			c.Name, decimal.NewFromFloat(limit).String())
	}
	return nil
}

// ParseRaw parses and validates user input for a criterion. Blank input is
// a validation error; callers that treat blank as "clear" check first.
func ParseRaw(input string, c models.Criterion, scoringType models.ScoringType) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, errors.Validationf("score for %q is required", c.Name)
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return 0, errors.Validationf("score for %q must be a number", c.Name)
	}
	raw := d.InexactFloat64()
	if err := ValidateRaw(raw, c, scoringType); err != nil {
		return 0, err
	}
	return raw, nil
}
