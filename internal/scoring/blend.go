package scoring

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/applyflow/applyflow/internal/ai"
	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
)

// CriterionModel is the breakdown key for the learned-model contribution.
const CriterionModel = "model"

// BlendedScorer composes the rule-based scorer with an optional learned
// model. The model output is mixed in by ratio; a missing or failing model
// degrades to the pure rule-based score.
type BlendedScorer struct {
	rules    Scorer
	assessor ai.Assessor
	mixRatio float64
	logger   *zap.Logger
}

// NewBlendedScorer wires the model strategy on top of the rule strategy.
// mixRatio is clamped to [0,1]; 0 means the model is effectively unused.
func NewBlendedScorer(rules Scorer, assessor ai.Assessor, mixRatio float64, log *zap.Logger) *BlendedScorer {
	if mixRatio < 0 {
		mixRatio = 0
	}
	if mixRatio > 1 {
		mixRatio = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BlendedScorer{rules: rules, assessor: assessor, mixRatio: mixRatio, logger: log}
}

func (s *BlendedScorer) Score(ctx context.Context, p *profile.Profile, post *posting.Posting) (*Result, error) {
	result, err := s.rules.Score(ctx, p, post)
	if err != nil {
		return nil, err
	}

	if s.assessor == nil || s.mixRatio == 0 {
		return result, nil
	}

	assessment, err := s.assessor.Assess(ctx, p, post)
	if err != nil {
		// Model trouble must not fail the run; fall back to rules only.
		s.logger.Warn("model assessment failed, using rule-based score",
			zap.String("fingerprint", post.Fingerprint),
			zap.Error(err),
		)
		return result, nil
	}

	modelScore := assessment.Score * 100
	blended := float64(result.Score)*(1-s.mixRatio) + modelScore*s.mixRatio

	score := int(math.Round(blended))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	breakdown := make(map[string]float64, len(result.Breakdown)+1)
	for k, v := range result.Breakdown {
		breakdown[k] = v
	}
	breakdown[CriterionModel] = modelScore

	return &Result{Score: score, Breakdown: breakdown}, nil
}
