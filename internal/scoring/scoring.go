// Package scoring computes the relevance of a posting for a profile.
//
// The rule-based strategy is always available; a learned-model strategy can
// be composed on top via configuration. Scores are deterministic for
// identical (profile, posting, weights, model state).
package scoring

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
)

// Criterion names used in weight maps and score breakdowns.
const (
	CriterionTitle    = "title"
	CriterionSkills   = "skills"
	CriterionLocation = "location"
	CriterionSalary   = "salary"
)

// ScoringError marks a (profile, posting) pair that cannot be scored because
// required fields are missing. The posting is skipped and counted; the run
// continues.
type ScoringError struct {
	Reason string
}

func (e *ScoringError) Error() string {
	return "scoring: " + e.Reason
}

// Result is the scorer output: a 0-100 score plus a per-criterion
// contribution map for reporting.
type Result struct {
	Score     int
	Breakdown map[string]float64
}

// Scorer is the scoring capability. Strategies are selected by configuration;
// they are composed, not inherited.
type Scorer interface {
	Score(ctx context.Context, p *profile.Profile, post *posting.Posting) (*Result, error)
}

// Weights holds the per-criterion weights. The sum does not have to equal 1;
// the final score is normalized to 0-100 afterwards.
type Weights struct {
	Title    float64 `mapstructure:"title"`
	Skills   float64 `mapstructure:"skills"`
	Location float64 `mapstructure:"location"`
	Salary   float64 `mapstructure:"salary"`
}

// DefaultWeights favors skill overlap, the strongest signal in practice.
func DefaultWeights() Weights {
	return Weights{Title: 1.0, Skills: 2.0, Location: 1.0, Salary: 0.5}
}

// Sum returns the total weight mass, ignoring negative entries.
func (w Weights) Sum() float64 {
	sum := 0.0
	for _, v := range []float64{w.Title, w.Skills, w.Location, w.Salary} {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

// WeightsFromMap decodes a criterion->weight map, e.g. from the configuration
// file. Unknown criteria are rejected so typos do not vanish silently.
func WeightsFromMap(m map[string]float64) (Weights, error) {
	var w Weights

	for k := range m {
		switch k {
		case CriterionTitle, CriterionSkills, CriterionLocation, CriterionSalary:
		default:
			return w, fmt.Errorf("unknown scoring criterion %q", k)
		}
	}

	cfg := &mapstructure.DecoderConfig{Result: &w}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return w, fmt.Errorf("build weights decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return w, fmt.Errorf("decode weights: %w", err)
	}

	return w, nil
}
