package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		ID:     "profile-1",
		Name:   "Sam",
		Skills: []string{"Go", "PostgreSQL", "Docker", "Kubernetes"},
		Criteria: profile.Criteria{
			Titles:    []string{"Senior Go Developer"},
			Locations: []string{"Berlin"},
			SalaryMin: 60000,
		},
	}
}

func TestRuleScorerValidation(t *testing.T) {
	t.Parallel()

	scorer := NewRuleScorer(DefaultWeights())
	ctx := context.Background()

	_, err := scorer.Score(ctx, nil, &posting.Posting{})
	require.Error(t, err)

	_, err = scorer.Score(ctx, testProfile(), nil)
	require.Error(t, err)

	empty := &profile.Profile{ID: "p"}
	_, err = scorer.Score(ctx, empty, &posting.Posting{Title: "x"})
	var scoreErr *ScoringError
	require.ErrorAs(t, err, &scoreErr)
}

func TestRuleScorerHalfSkillOverlap(t *testing.T) {
	t.Parallel()

	// Only the skills criterion carries weight: 2 of 4 posting skills match,
	// so the normalized score is exactly 50.
	scorer := NewRuleScorer(Weights{Skills: 1})

	prof := &profile.Profile{
		ID:     "profile-1",
		Skills: []string{"go", "postgresql"},
	}
	post := &posting.Posting{
		Title:           "Backend Developer",
		ExtractedSkills: []string{"go", "postgresql", "erlang", "haskell"},
	}

	result, err := scorer.Score(context.Background(), prof, post)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
}

func TestRuleScorerZeroSkillPosting(t *testing.T) {
	t.Parallel()

	scorer := NewRuleScorer(Weights{Skills: 1})

	prof := &profile.Profile{ID: "profile-1", Skills: []string{"go"}}
	post := &posting.Posting{Title: "Backend Developer"}

	result, err := scorer.Score(context.Background(), prof, post)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0.0, result.Breakdown[CriterionSkills])
}

func TestRuleScorerDeterministic(t *testing.T) {
	t.Parallel()

	scorer := NewRuleScorer(DefaultWeights())
	prof := testProfile()
	post := &posting.Posting{
		Title:           "Senior Go Developer",
		Company:         "Acme",
		Location:        "Berlin",
		ExtractedSkills: []string{"go", "docker", "terraform"},
		SalaryFrom:      65000,
		SalaryTo:        80000,
	}

	first, err := scorer.Score(context.Background(), prof, post)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := scorer.Score(context.Background(), prof, post)
		require.NoError(t, err)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Breakdown, again.Breakdown)
	}
}

func TestRuleScorerBounds(t *testing.T) {
	t.Parallel()

	scorer := NewRuleScorer(DefaultWeights())
	prof := testProfile()

	perfect := &posting.Posting{
		Title:           "Senior Go Developer",
		Location:        "Berlin",
		ExtractedSkills: []string{"go", "postgresql", "docker", "kubernetes"},
		SalaryFrom:      70000,
		SalaryTo:        90000,
	}
	result, err := scorer.Score(context.Background(), prof, perfect)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)

	miss := &posting.Posting{
		Title:           "Marketing Manager",
		Location:        "Tokyo",
		ExtractedSkills: []string{"seo", "copywriting"},
	}
	result, err = scorer.Score(context.Background(), prof, miss)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
}

func TestRuleScorerSalaryExcludedWithoutRange(t *testing.T) {
	t.Parallel()

	scorer := NewRuleScorer(Weights{Skills: 1, Salary: 1})

	prof := &profile.Profile{
		ID:       "profile-1",
		Skills:   []string{"go"},
		Criteria: profile.Criteria{SalaryMin: 60000},
	}
	post := &posting.Posting{
		Title:           "Backend Developer",
		ExtractedSkills: []string{"go", "python"},
	}

	// Without a salary range the salary weight must not dilute the score:
	// mass is 1, skills contribute 0.5, score 50.
	result, err := scorer.Score(context.Background(), prof, post)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, 0.0, result.Breakdown[CriterionSalary])
}

func TestLocationMatchModes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		criteria profile.Criteria
		location string
		want     float64
	}{
		{"listed location", profile.Criteria{Locations: []string{"Berlin"}}, "Berlin, Germany", 1},
		{"remote compatible", profile.Criteria{Remote: true}, "Remote (EU)", 0.5},
		{"no criteria is neutral", profile.Criteria{}, "Anywhere", 1},
		{"mismatch", profile.Criteria{Locations: []string{"Berlin"}}, "Tokyo", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, locationMatch(tc.criteria, tc.location))
		})
	}
}

func TestSalaryFit(t *testing.T) {
	t.Parallel()

	criteria := profile.Criteria{SalaryMin: 60000}

	covers := &posting.Posting{SalaryFrom: 50000, SalaryTo: 70000}
	assert.Equal(t, 1.0, salaryFit(criteria, covers))

	below := &posting.Posting{SalaryFrom: 30000, SalaryTo: 45000}
	assert.Equal(t, 0.75, salaryFit(criteria, below))

	noMinimum := &posting.Posting{SalaryFrom: 10000, SalaryTo: 20000}
	assert.Equal(t, 1.0, salaryFit(profile.Criteria{}, noMinimum))
}

func TestWeightsFromMap(t *testing.T) {
	t.Parallel()

	w, err := WeightsFromMap(map[string]float64{"title": 1, "skills": 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.Title)
	assert.Equal(t, 3.0, w.Skills)
	assert.Equal(t, 0.0, w.Salary)

	_, err = WeightsFromMap(map[string]float64{"skils": 1})
	require.Error(t, err)
}
