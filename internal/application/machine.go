package application

import (
	"fmt"
	"time"
)

// InvalidTransitionError marks a (state, event) pair outside the transition
// table. It signals an orchestration bug: the attempt leaves the application
// record untouched, counters included.
type InvalidTransitionError struct {
	From  State
	Event EventKind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q in state %q", e.Event, e.From)
}

const (
	defaultMaxAttempts    = 3
	defaultMaxFollowUps   = 2
	defaultScoreThreshold = 50
)

// Machine owns the application lifecycle. The transition table is closed: any
// pair it does not list fails with InvalidTransitionError, never silently.
type Machine struct {
	ScoreThreshold int
	MaxAttempts    int
	MaxFollowUps   int
}

// NewMachine builds a machine, substituting defaults for non-positive limits.
func NewMachine(scoreThreshold, maxAttempts, maxFollowUps int) *Machine {
	if scoreThreshold <= 0 {
		scoreThreshold = defaultScoreThreshold
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if maxFollowUps <= 0 {
		maxFollowUps = defaultMaxFollowUps
	}
	return &Machine{
		ScoreThreshold: scoreThreshold,
		MaxAttempts:    maxAttempts,
		MaxFollowUps:   maxFollowUps,
	}
}

// Apply validates the event against the current state and, when the guards
// hold, mutates the application. All guard checks run before any mutation so
// a rejected attempt never corrupts attempt_count or follow_up_count.
func (m *Machine) Apply(app *Application, ev Event) error {
	if app == nil {
		return fmt.Errorf("application is required")
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch ev.Kind {
	case EventScored:
		if app.State != StateDiscovered {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.RelevanceScore = ev.Score
		app.ScoreBreakdown = ev.Breakdown
		app.State = StateScored

	case EventQueueApproved:
		if app.State != StateScored || app.RelevanceScore < m.ScoreThreshold {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.State = StateQueued

	case EventThresholdRejected:
		if app.State != StateScored || app.RelevanceScore >= m.ScoreThreshold {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.State = StateClosedRejected

	case EventDispatchSucceeded:
		if app.State != StateQueued {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.State = StateApplied

	case EventDispatchFailed:
		if app.State != StateQueued {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.AttemptCount++
		switch {
		case ev.Failure == FailurePermanent:
			// Permanent failures bypass the retry budget.
			app.State = StateClosedAbandoned
		case app.AttemptCount >= m.MaxAttempts:
			app.State = StateClosedAbandoned
		default:
			// Stays queued for a backoff re-enqueue.
		}
		if ev.Detail != "" {
			app.AddNote(at, "dispatch failed (%s): %s", ev.Failure, ev.Detail)
		}

	case EventFollowUpDue:
		if app.State != StateApplied && app.State != StateFollowedUp {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		if app.FollowUpCount >= m.MaxFollowUps {
			app.State = StateClosedAbandoned
			break
		}
		app.FollowUpCount++
		app.State = StateFollowedUp

	case EventResponseRecorded:
		if app.State != StateFollowedUp {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		switch ev.Response {
		case ResponsePositive:
			app.State = StateClosedSuccess
		case ResponseNegative:
			app.State = StateClosedRejected
		default:
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		if ev.Detail != "" {
			app.AddNote(at, "response recorded (%s): %s", ev.Response, ev.Detail)
		}

	case EventCancelled:
		if app.State != StateQueued && app.State != StateFollowedUp {
			return &InvalidTransitionError{From: app.State, Event: ev.Kind}
		}
		app.State = StateClosedAbandoned
		app.AddNote(at, "cancelled: %s", ev.Detail)

	default:
		return &InvalidTransitionError{From: app.State, Event: ev.Kind}
	}

	app.LastTransitionAt = at
	return nil
}

// RecordRescore keeps the original score immutable while preserving an audit
// trail: a later scoring pass appends a note instead of overwriting, so
// historical reports stay reproducible.
func (m *Machine) RecordRescore(app *Application, score int, now time.Time) {
	app.AddNote(now, "re-score ignored: score %d kept, new result %d", app.RelevanceScore, score)
}
