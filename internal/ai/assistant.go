package ai

import (
	"context"

	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
)

// Assessment is a learned-model fit evaluation of a posting for a profile.
type Assessment struct {
	// Score is the model's fit estimate in [0,1].
	Score  float64
	Reason string
	Raw    string
}

// Assessor is the optional learned-model scoring strategy. Its output is
// blended with the rule-based score; absence of an assessor is never an
// error.
type Assessor interface {
	Assess(ctx context.Context, p *profile.Profile, post *posting.Posting) (*Assessment, error)
}

// Writer is the generation collaborator: profile + posting -> document. It is
// invoked only for applications that reached the queue.
type Writer interface {
	CoverLetter(ctx context.Context, p *profile.Profile, post *posting.Posting) (string, error)
}
