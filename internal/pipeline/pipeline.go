// Package pipeline orchestrates one run over a batch of scraped postings:
// normalize, deduplicate, score, threshold, persist, dispatch. Stages are
// wired through interfaces so each collaborator stays swappable in tests.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/dedup"
	"github.com/applyflow/applyflow/internal/dispatch"
	"github.com/applyflow/applyflow/internal/posting"
	"github.com/applyflow/applyflow/internal/profile"
	"github.com/applyflow/applyflow/internal/scoring"
	"github.com/applyflow/applyflow/internal/store"
)

const (
	stageNormalize = "normalize"
	stageDedup     = "dedup"
	stageScore     = "score"
	stagePersist   = "persist"
	stageDispatch  = "dispatch"
)

// ReviewFunc resolves a flagged probable duplicate. Returning true lets the
// posting proceed through the pipeline; false drops it. A nil ReviewFunc
// drops every flagged posting.
type ReviewFunc func(p *posting.Posting, verdict dedup.Verdict) bool

// CoverLetterWriter produces a tailored cover letter for a posting. Optional;
// without one the dispatcher sends a plain template.
type CoverLetterWriter interface {
	CoverLetter(ctx context.Context, p *profile.Profile, post *posting.Posting) (string, error)
}

// Deps aggregates the pipeline's collaborators. Store, Scorer, Detector and
// Machine are required; the rest degrade gracefully when absent.
type Deps struct {
	Store      store.Store
	Scorer     scoring.Scorer
	Detector   *dedup.Detector
	Machine    *application.Machine
	Dispatcher dispatch.Dispatcher
	Writer     CoverLetterWriter
	Review     ReviewFunc
	Logger     *zap.Logger
}

// Config tunes a pipeline run.
type Config struct {
	// DryRun stops the pipeline after persisting queued applications,
	// skipping dispatch entirely.
	DryRun bool
	// ResumePath is attached to every outgoing application email.
	ResumePath string
	// BackoffBase seeds the dispatch retry schedule.
	BackoffBase time.Duration
}

// Pipeline runs batches of raw postings for a single profile.
type Pipeline struct {
	deps Deps
	cfg  Config
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("pipeline: scorer is required")
	}
	if deps.Detector == nil {
		return nil, errors.New("pipeline: detector is required")
	}
	if deps.Machine == nil {
		return nil, errors.New("pipeline: machine is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, cfg: cfg}, nil
}

// Run pushes the batch through every stage and returns the run report. The
// report is returned even on error so partial progress stays visible. Only a
// storage failure aborts the run; per-posting failures are recorded in the
// report and the batch continues.
func (pl *Pipeline) Run(ctx context.Context, prof *profile.Profile, raws []posting.RawRecord) (*Report, error) {
	report := &Report{Scanned: len(raws)}

	history, err := pl.deps.Store.History(ctx, prof.ID)
	if err != nil {
		return report, fmt.Errorf("load application history: %w", err)
	}

	// Fingerprints already handled in this run. The store's uniqueness
	// constraint is the backstop; this avoids scoring obvious repeats.
	seen := make(map[string]bool, len(raws))

	for _, raw := range raws {
		post, normErr := posting.Normalize(raw)
		if normErr != nil {
			report.Errors = append(report.Errors, ItemError{
				SourceURL: raw.SourceURL,
				Stage:     stageNormalize,
				Reason:    normErr.Error(),
			})
			continue
		}

		if seen[post.Fingerprint] {
			report.Deduplicated++
			continue
		}
		seen[post.Fingerprint] = true

		verdict := pl.deps.Detector.Check(post, history)
		switch verdict.Kind {
		case dedup.ExactDuplicate:
			report.Deduplicated++
			continue
		case dedup.ProbableDuplicate:
			if pl.deps.Detector.OnProbablePolicy() == dedup.Drop {
				report.Deduplicated++
				continue
			}
			report.Flagged++
			if pl.deps.Review == nil || !pl.deps.Review(post, verdict) {
				pl.deps.Logger.Info("flagged posting dropped",
					zap.String("source_url", post.SourceURL),
					zap.Float64("similarity", verdict.Similarity),
				)
				continue
			}
		}

		app, runErr := pl.processPosting(ctx, prof, post, report)
		if runErr != nil {
			return report, runErr
		}
		if app != nil {
			history = append(history, app)
		}
	}

	pl.deps.Logger.Info("pipeline run completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("deduplicated", report.Deduplicated),
		zap.Int("queued", report.Queued),
		zap.Int("applied", report.Applied),
		zap.Int("errors", len(report.Errors)),
	)

	return report, nil
}

// processPosting scores, persists and dispatches a single posting. A non-nil
// error aborts the whole run; per-item failures are written to the report and
// return (nil, nil) or (app, nil).
func (pl *Pipeline) processPosting(ctx context.Context, prof *profile.Profile, post *posting.Posting, report *Report) (*application.Application, error) {
	now := time.Now().UTC()
	app := application.New(prof.ID, post, now)

	result, err := pl.deps.Scorer.Score(ctx, prof, post)
	if err != nil {
		report.Errors = append(report.Errors, ItemError{
			SourceURL: post.SourceURL,
			Stage:     stageScore,
			Reason:    err.Error(),
		})
		return nil, nil
	}

	if err := pl.deps.Machine.Apply(app, application.Event{
		Kind:      application.EventScored,
		Score:     result.Score,
		Breakdown: result.Breakdown,
		At:        now,
	}); err != nil {
		return nil, fmt.Errorf("apply scored event: %w", err)
	}
	report.Scored++

	approved := result.Score >= pl.deps.Machine.ScoreThreshold
	kind := application.EventThresholdRejected
	if approved {
		kind = application.EventQueueApproved
	}
	if err := pl.deps.Machine.Apply(app, application.Event{Kind: kind, At: now}); err != nil {
		return nil, fmt.Errorf("apply threshold event: %w", err)
	}
	if approved {
		report.Queued++
	} else {
		report.Rejected++
	}

	if err := pl.deps.Store.CreateIfAbsent(ctx, app); err != nil {
		if errors.Is(err, store.ErrDuplicateApplication) {
			// Lost a race with a concurrent run. Count it like any
			// other duplicate.
			report.Deduplicated++
			report.Scored--
			if approved {
				report.Queued--
			} else {
				report.Rejected--
			}
			return nil, nil
		}
		return nil, fmt.Errorf("persist application: %w", err)
	}

	pl.deps.Logger.Debug("posting processed",
		zap.String("fingerprint", post.Fingerprint),
		zap.Int("score", result.Score),
		zap.String("state", string(app.State)),
	)

	if !approved || pl.cfg.DryRun || pl.deps.Dispatcher == nil {
		return app, nil
	}

	if err := pl.dispatch(ctx, prof, app, report); err != nil {
		return app, err
	}
	return app, nil
}

// dispatch sends the application with exponential backoff. Transient failures
// are retried until the machine abandons the application; permanent failures
// abandon immediately.
func (pl *Pipeline) dispatch(ctx context.Context, prof *profile.Profile, app *application.Application, report *Report) error {
	docs := dispatch.Documents{
		CoverLetter: pl.coverLetter(ctx, prof, app),
		ResumePath:  pl.cfg.ResumePath,
	}

	operation := func() (*dispatch.Result, error) {
		res, err := pl.deps.Dispatcher.Send(ctx, app, docs)
		if err != nil {
			res = &dispatch.Result{Outcome: dispatch.PermanentFailure, Detail: err.Error()}
		}

		if res.Outcome == dispatch.Delivered {
			return res, nil
		}

		failure := application.FailureTransient
		if res.Outcome == dispatch.PermanentFailure {
			failure = application.FailurePermanent
		}
		if applyErr := pl.deps.Machine.Apply(app, application.Event{
			Kind:    application.EventDispatchFailed,
			Failure: failure,
			Detail:  res.Detail,
		}); applyErr != nil {
			return nil, backoff.Permanent(applyErr)
		}
		if persistErr := pl.deps.Store.Update(ctx, app); persistErr != nil {
			return nil, backoff.Permanent(persistErr)
		}

		sendErr := errors.New(res.Detail)
		if app.State == application.StateClosedAbandoned {
			// Retry budget exhausted or failure permanent.
			return nil, backoff.Permanent(sendErr)
		}
		return nil, sendErr
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(dispatch.NewBackOff(pl.cfg.BackoffBase)))
	if err != nil {
		report.Errors = append(report.Errors, ItemError{
			SourceURL: app.Posting.SourceURL,
			Stage:     stageDispatch,
			Reason:    err.Error(),
		})
		if app.State == application.StateClosedAbandoned {
			return nil
		}
		// Context cancelled mid-retry. The application stays queued and a
		// later run can cancel or re-dispatch it.
		return nil
	}

	if err := pl.deps.Machine.Apply(app, application.Event{Kind: application.EventDispatchSucceeded}); err != nil {
		return fmt.Errorf("apply dispatch-succeeded event: %w", err)
	}
	if err := pl.deps.Store.Update(ctx, app); err != nil {
		return fmt.Errorf("persist dispatched application: %w", err)
	}
	report.Applied++

	return nil
}

func (pl *Pipeline) coverLetter(ctx context.Context, prof *profile.Profile, app *application.Application) string {
	if pl.deps.Writer == nil {
		return fallbackCoverLetter(prof, app)
	}

	letter, err := pl.deps.Writer.CoverLetter(ctx, prof, &app.Posting)
	if err != nil {
		pl.deps.Logger.Warn("cover letter generation failed, using fallback",
			zap.String("fingerprint", app.Fingerprint),
			zap.Error(err),
		)
		return fallbackCoverLetter(prof, app)
	}
	return letter
}

func fallbackCoverLetter(prof *profile.Profile, app *application.Application) string {
	return fmt.Sprintf(
		"Dear Hiring Manager,\n\n"+
			"I am excited to apply for the %s position at %s. "+
			"My background matches the requirements of this role and I would "+
			"welcome the chance to discuss it further.\n\n"+
			"Best regards,\n%s\n",
		app.Posting.Title, app.Posting.Company, prof.Name,
	)
}
