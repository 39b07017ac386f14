package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
	"github.com/applyflow/applyflow/internal/textsim"
)

// location match contributions per spec'd modes.
const (
	locationExact  = 1.0
	locationRemote = 0.5
	locationMiss   = 0.0
)

// RuleScorer is the default, always-available strategy: a weighted sum over
// independent criteria, normalized to 0-100.
type RuleScorer struct {
	weights Weights
}

func NewRuleScorer(w Weights) *RuleScorer {
	if w.Sum() == 0 {
		w = DefaultWeights()
	}
	return &RuleScorer{weights: w}
}

// Score computes the weighted criterion sum. Each criterion contributes a
// fraction in [0,1] scaled by its weight; the total is normalized by the
// weight mass so the result stays in [0,100] for all valid inputs.
func (s *RuleScorer) Score(_ context.Context, p *profile.Profile, post *posting.Posting) (*Result, error) {
	if p == nil {
		return nil, &ScoringError{Reason: "profile is required"}
	}
	if post == nil {
		return nil, &ScoringError{Reason: "posting is required"}
	}
	if len(p.Skills) == 0 && len(p.Criteria.Titles) == 0 {
		return nil, &ScoringError{Reason: "profile has neither skills nor desired titles"}
	}

	breakdown := map[string]float64{
		CriterionTitle:    titleMatch(p.Criteria.Titles, post.Title),
		CriterionSkills:   skillOverlap(p.SkillSet(), post.SkillSet()),
		CriterionLocation: locationMatch(p.Criteria, post.Location),
		CriterionSalary:   salaryFit(p.Criteria, post),
	}

	weightFor := map[string]float64{
		CriterionTitle:    s.weights.Title,
		CriterionSkills:   s.weights.Skills,
		CriterionLocation: s.weights.Location,
		CriterionSalary:   s.weights.Salary,
	}

	total := 0.0
	mass := 0.0
	for _, criterion := range []string{CriterionTitle, CriterionSkills, CriterionLocation, CriterionSalary} {
		fraction := breakdown[criterion]
		weight := weightFor[criterion]
		if weight <= 0 {
			breakdown[criterion] = 0
			continue
		}
		// Salary carries weight only when the posting declares a range;
		// otherwise it must not dilute the other criteria.
		if criterion == CriterionSalary && !post.HasSalaryRange() {
			breakdown[criterion] = 0
			continue
		}
		contribution := fraction * weight
		breakdown[criterion] = contribution
		total += contribution
		mass += weight
	}

	score := 0
	if mass > 0 {
		score = int(math.Round(total / mass * 100))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &Result{Score: score, Breakdown: breakdown}, nil
}

// titleMatch returns the best token-set overlap between any desired title and
// the posting title. With no desired titles the criterion is neutral (full
// contribution) rather than penalizing every posting.
func titleMatch(desired []string, title string) float64 {
	if len(desired) == 0 {
		return 1
	}
	best := 0.0
	for _, want := range desired {
		if sim := textsim.TokenSetRatio(want, title); sim > best {
			best = sim
		}
	}
	return best
}

// skillOverlap is |profile ∩ posting| / |posting|, guarding the empty
// denominator: a posting with no extracted skills contributes 0.
func skillOverlap(profileSkills, postingSkills map[string]bool) float64 {
	if len(postingSkills) == 0 {
		return 0
	}
	matched := 0
	for skill := range postingSkills {
		if profileSkills[skill] {
			matched++
		}
	}
	return float64(matched) / float64(len(postingSkills))
}

func locationMatch(criteria profile.Criteria, location string) float64 {
	loc := strings.ToLower(strings.TrimSpace(location))

	for _, want := range criteria.Locations {
		want = strings.ToLower(strings.TrimSpace(want))
		if want != "" && strings.Contains(loc, want) {
			return locationExact
		}
	}

	if criteria.Remote && strings.Contains(loc, "remote") {
		return locationRemote
	}

	if len(criteria.Locations) == 0 && !criteria.Remote {
		return locationExact
	}

	return locationMiss
}

// salaryFit measures how much of the desired range the posting covers. A
// posting without a range is handled by the caller (criterion excluded).
func salaryFit(criteria profile.Criteria, post *posting.Posting) float64 {
	if !post.HasSalaryRange() {
		return 0
	}
	if criteria.SalaryMin <= 0 {
		return 1
	}

	high := post.SalaryTo
	if high == 0 {
		high = post.SalaryFrom
	}

	switch {
	case high >= criteria.SalaryMin:
		return 1
	case post.SalaryFrom > 0 && criteria.SalaryMin > 0:
		ratio := float64(high) / float64(criteria.SalaryMin)
		if ratio < 0 {
			return 0
		}
		return ratio
	default:
		return 0
	}
}
