// Package dedup decides whether a normalized posting already exists in a
// profile's application history.
package dedup

import (
	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/textsim"
)

// VerdictKind classifies a dedup check result.
type VerdictKind string

const (
	// Unique means no matching application exists.
	Unique VerdictKind = "unique"
	// ExactDuplicate means the fingerprint is already in the history. Exact
	// duplicates are dropped silently: counted, never reported as errors.
	ExactDuplicate VerdictKind = "exact_duplicate"
	// ProbableDuplicate means the fingerprint differs but the text similarity
	// against an existing posting exceeds the threshold, catching reposts
	// with minor wording changes.
	ProbableDuplicate VerdictKind = "probable_duplicate"
)

// OnProbable selects the policy for probable duplicates.
type OnProbable string

const (
	// Drop discards probable duplicates like exact ones.
	Drop OnProbable = "drop"
	// Flag surfaces probable duplicates to the caller for manual resolution.
	Flag OnProbable = "flag"
)

// DefaultThreshold is the similarity at or above which a posting counts as a
// probable duplicate. The boundary is inclusive.
const DefaultThreshold = 0.85

// Verdict is the outcome of a duplicate check.
type Verdict struct {
	Kind        VerdictKind
	Similarity  float64
	MatchedWith string // fingerprint of the matched application, if any
}

// Config tunes the detector.
type Config struct {
	Threshold  float64
	OnProbable OnProbable
}

// Detector performs pure duplicate checks against a supplied history. It
// never touches storage itself; the caller provides the profile's accumulated
// applications.
type Detector struct {
	threshold  float64
	onProbable OnProbable
}

func New(cfg Config) *Detector {
	threshold := cfg.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	onProbable := cfg.OnProbable
	if onProbable != Flag {
		onProbable = Drop
	}
	return &Detector{threshold: threshold, onProbable: onProbable}
}

// OnProbablePolicy returns the configured probable-duplicate policy.
func (d *Detector) OnProbablePolicy() OnProbable { return d.onProbable }

// Threshold returns the configured similarity threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// Check classifies the posting against the history. Fingerprint equality wins
// over fuzzy similarity; fuzzy matching skips applications already closed as
// rejected, since a repost of a rejected listing is a fresh opportunity.
func (d *Detector) Check(p *posting.Posting, history []*application.Application) Verdict {
	for _, app := range history {
		if app.Fingerprint == p.Fingerprint {
			return Verdict{Kind: ExactDuplicate, Similarity: 1, MatchedWith: app.Fingerprint}
		}
	}

	text := p.Text()
	best := Verdict{Kind: Unique}
	for _, app := range history {
		if app.State == application.StateClosedRejected {
			continue
		}
		sim := textsim.TokenSetRatio(text, app.Posting.Text())
		if sim >= d.threshold && sim > best.Similarity {
			best = Verdict{Kind: ProbableDuplicate, Similarity: sim, MatchedWith: app.Fingerprint}
		}
	}

	return best
}
