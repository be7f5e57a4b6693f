package quality

import "strings"

// Class is the qualitative band of a score.
type Class string

const (
	ClassExcellent Class = "excellent"
	ClassGood      Class = "good"
	ClassRegular   Class = "regular"
	ClassPoor      Class = "poor"
)

// Fields are the inputs to a score.
type Fields struct {
	Name           string
	Description    string // product or justification text
	SizeClass      string
	City           string
	TaxID          string
	IndustryCode   string
	HasCoordinates bool
}

// Scorer computes scores for one profile. The zero value is not usable; use
// NewScorer.
type Scorer struct {
	profile Profile
}

// NewScorer creates a scorer for p.
func NewScorer(p Profile) *Scorer {
	return &Scorer{profile: p}
}

// Default returns a scorer with DefaultProfile.
func Default() *Scorer {
	return NewScorer(DefaultProfile())
}

// Score returns a completeness score in [0, 100].
func (s *Scorer) Score(f Fields) int {
	w := s.profile.Weights
	score := w.Base
	add := func(v string, pts int) {
		if strings.TrimSpace(v) != "" {
			score += pts
		}
	}
	add(f.Name, w.Name)
	add(f.Description, w.Description)
	add(f.SizeClass, w.SizeClass)
	add(f.City, w.City)
	add(f.TaxID, w.TaxID)
	add(f.IndustryCode, w.IndustryCode)
	if f.HasCoordinates {
		score += w.Coordinates
	}
	return min(max(score, 0), 100)
}

// Classify maps a score to its band.
func (s *Scorer) Classify(score int) Class {
	b := s.profile.Bands
	switch {
	case score >= b.Excellent:
		return ClassExcellent
	case score >= b.Good:
		return ClassGood
	case score >= b.Regular:
		return ClassRegular
	default:
		return ClassPoor
	}
}

// Evaluate returns both the score and its class.
func (s *Scorer) Evaluate(f Fields) (int, Class) {
	score := s.Score(f)
	return score, s.Classify(score)
}

// Keep returns the score to store when a record that already has a score
// is rewritten. Scores never go down.
func Keep(previous, computed int) int {
	return max(previous, computed)
}
