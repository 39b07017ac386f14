// Package dispatch sends finished applications out and classifies the
// outcome so the state machine can drive retries or abandonment.
package dispatch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/applyflow/applyflow/internal/application"
)

// Outcome classifies a delivery attempt.
type Outcome string

const (
	// Delivered means the application was accepted by the receiving side.
	Delivered Outcome = "delivered"
	// TransientFailure drives the retry transition with backoff.
	TransientFailure Outcome = "transient_failure"
	// PermanentFailure drives immediate abandonment, bypassing the retry
	// budget.
	PermanentFailure Outcome = "permanent_failure"
)

// Result is the dispatcher verdict for one attempt.
type Result struct {
	Outcome Outcome
	Detail  string
}

// Documents carries the generated artifacts accompanying a dispatch.
type Documents struct {
	CoverLetter string
	ResumePath  string
}

// Dispatcher is the dispatch collaborator contract.
type Dispatcher interface {
	Send(ctx context.Context, app *application.Application, docs Documents) (*Result, error)
}

// ReportSender delivers the run summary to the configured recipient.
type ReportSender interface {
	SendReport(ctx context.Context, recipient, subject, body string) error
}

const (
	defaultBackoffBase = 2 * time.Second
	maxBackoffInterval = 5 * time.Minute
)

// NewBackOff builds the exponential backoff with jitter used between
// transient dispatch failures.
func NewBackOff(base time.Duration) *backoff.ExponentialBackOff {
	if base <= 0 {
		base = defaultBackoffBase
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = maxBackoffInterval
	return b
}
