// Package followup turns elapsed time and employer responses into state
// machine events. It holds no timers itself; the CLI (or a cron job) invokes
// Process periodically and the manager reacts to what the clock says.
package followup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/dispatch"
	"github.com/applyflow/applyflow/internal/store"
	"github.com/applyflow/applyflow/internal/utils"
)

const defaultWindow = 7 * 24 * time.Hour

// Config tunes the follow-up manager.
type Config struct {
	// Window is the elapsed duration after which a non-responded
	// application triggers a follow-up.
	Window time.Duration
	// SendPause spaces consecutive follow-up mails within one pass.
	SendPause time.Duration
}

// Deps aggregates the manager's collaborators.
type Deps struct {
	Store      store.Store
	Machine    *application.Machine
	Dispatcher dispatch.Dispatcher
	Logger     *zap.Logger
}

// Summary reports one Process invocation.
type Summary struct {
	Examined   int
	FollowedUp int
	Abandoned  int
	Errors     []string
}

// Manager drives applied/followed_up applications through the follow-up
// transitions.
type Manager struct {
	window    time.Duration
	sendPause time.Duration
	deps      Deps
}

func New(cfg Config, deps Deps) *Manager {
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Manager{window: window, sendPause: cfg.SendPause, deps: deps}
}

// Process scans for applications whose follow-up window elapsed, emits
// FollowUpDue events and sends follow-up mails. Applications that exhausted
// their budget are abandoned by the machine.
func (m *Manager) Process(ctx context.Context, profileID string, now time.Time) (*Summary, error) {
	apps, err := m.deps.Store.ListByState(ctx, profileID,
		application.StateApplied, application.StateFollowedUp)
	if err != nil {
		return nil, fmt.Errorf("list applications for follow-up: %w", err)
	}

	summary := &Summary{}
	for _, app := range apps {
		summary.Examined++

		if now.Sub(app.LastTransitionAt) < m.window {
			continue
		}

		if summary.FollowedUp > 0 {
			if err := utils.WaitFor(ctx, m.sendPause); err != nil {
				return summary, err
			}
		}

		if err := m.deps.Machine.Apply(app, application.Event{Kind: application.EventFollowUpDue, At: now}); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", app.ID, err))
			continue
		}

		if app.State == application.StateClosedAbandoned {
			summary.Abandoned++
			m.deps.Logger.Info("follow-up budget exhausted",
				zap.String("application_id", app.ID),
				zap.Int("follow_up_count", app.FollowUpCount),
			)
		} else {
			summary.FollowedUp++
			m.sendFollowUpMail(ctx, app)
		}

		if err := m.deps.Store.Update(ctx, app); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: persist: %v", app.ID, err))
		}
	}

	m.deps.Logger.Info("follow-up pass completed",
		zap.Int("examined", summary.Examined),
		zap.Int("followed_up", summary.FollowedUp),
		zap.Int("abandoned", summary.Abandoned),
		zap.Int("errors", len(summary.Errors)),
	)

	return summary, nil
}

// RecordResponse feeds a manual or parsed employer response into the machine,
// closing the application as success or rejection.
func (m *Manager) RecordResponse(ctx context.Context, appID string, response application.Response, detail string, now time.Time) (*application.Application, error) {
	app, err := m.deps.Store.Get(ctx, appID)
	if err != nil {
		return nil, err
	}

	ev := application.Event{
		Kind:     application.EventResponseRecorded,
		Response: response,
		Detail:   detail,
		At:       now,
	}
	if err := m.deps.Machine.Apply(app, ev); err != nil {
		return nil, err
	}

	if err := m.deps.Store.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("persist response: %w", err)
	}

	return app, nil
}

// Cancel aborts a pending retry, transitioning the application to
// closed_abandoned instead of leaving it silently pending.
func (m *Manager) Cancel(ctx context.Context, appID, reason string, now time.Time) (*application.Application, error) {
	app, err := m.deps.Store.Get(ctx, appID)
	if err != nil {
		return nil, err
	}

	ev := application.Event{Kind: application.EventCancelled, Detail: reason, At: now}
	if err := m.deps.Machine.Apply(app, ev); err != nil {
		return nil, err
	}

	if err := m.deps.Store.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}

	return app, nil
}

func (m *Manager) sendFollowUpMail(ctx context.Context, app *application.Application) {
	if m.deps.Dispatcher == nil {
		return
	}

	body := fmt.Sprintf(
		"Dear Hiring Manager,\n\n"+
			"I am writing to follow up on my application for the %s position at %s, "+
			"submitted on %s. I remain very interested in this opportunity.\n\n"+
			"Thank you for your time and consideration.\n",
		app.Posting.Title, app.Posting.Company, app.CreatedAt.Format("2006-01-02"),
	)

	if _, err := m.deps.Dispatcher.Send(ctx, app, dispatch.Documents{CoverLetter: body}); err != nil {
		m.deps.Logger.Warn("follow-up mail failed",
			zap.String("application_id", app.ID),
			zap.Error(err),
		)
	}
}
