package application

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/applyflow/applyflow/internal/posting"
)

// State is the lifecycle position of an Application.
type State string

const (
	StateDiscovered      State = "discovered"
	StateScored          State = "scored"
	StateQueued          State = "queued"
	StateApplied         State = "applied"
	StateFollowedUp      State = "followed_up"
	StateClosedSuccess   State = "closed_success"
	StateClosedRejected  State = "closed_rejected"
	StateClosedAbandoned State = "closed_abandoned"
)

// Terminal reports whether the state is one of the closed_* states. Terminal
// applications are retained for audit and future dedup checks, never deleted.
func (s State) Terminal() bool {
	switch s {
	case StateClosedSuccess, StateClosedRejected, StateClosedAbandoned:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateDiscovered, StateScored, StateQueued, StateApplied,
		StateFollowedUp, StateClosedSuccess, StateClosedRejected, StateClosedAbandoned:
		return true
	}
	return false
}

// DocumentRef points at a generated application artifact. Content lives with
// the generation collaborator; the application record keeps references only.
type DocumentRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
}

// Application binds a profile to a unique posting and tracks the pursuit
// through its lifecycle. Exactly one exists per (profile_id, fingerprint);
// it is mutated only through Machine transitions.
type Application struct {
	ID          string          `json:"id"`
	ProfileID   string          `json:"profile_id"`
	Fingerprint string          `json:"fingerprint"`
	Posting     posting.Posting `json:"posting"`

	State            State              `json:"state"`
	RelevanceScore   int                `json:"relevance_score"`
	ScoreBreakdown   map[string]float64 `json:"score_breakdown,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	LastTransitionAt time.Time          `json:"last_transition_at"`

	AttemptCount  int `json:"attempt_count"`
	FollowUpCount int `json:"follow_up_count"`

	Documents []DocumentRef `json:"generated_documents,omitempty"`
	Notes     []string      `json:"notes,omitempty"`
}

// New creates a discovered Application for the given profile and posting.
func New(profileID string, p *posting.Posting, now time.Time) *Application {
	return &Application{
		ID:               uuid.NewString(),
		ProfileID:        profileID,
		Fingerprint:      p.Fingerprint,
		Posting:          *p,
		State:            StateDiscovered,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
}

// AddNote appends a timestamped free-form note.
func (a *Application) AddNote(now time.Time, format string, args ...any) {
	a.Notes = append(a.Notes, fmt.Sprintf("%s %s", now.Format(time.RFC3339), fmt.Sprintf(format, args...)))
}

// AttachDocument records a reference to a generated artifact.
func (a *Application) AttachDocument(kind, path string) DocumentRef {
	ref := DocumentRef{ID: uuid.NewString(), Kind: kind, Path: path}
	a.Documents = append(a.Documents, ref)
	return ref
}
