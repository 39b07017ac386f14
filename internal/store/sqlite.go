package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/posting"
)

// SQLite is the file-backed Store used by the CLI.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the application database at path, creating
// parent directories and the schema as needed.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS applications (
		id                 TEXT PRIMARY KEY,
		profile_id         TEXT NOT NULL,
		fingerprint        TEXT NOT NULL,
		state              TEXT NOT NULL,
		relevance_score    INTEGER NOT NULL DEFAULT 0,
		attempt_count      INTEGER NOT NULL DEFAULT 0,
		follow_up_count    INTEGER NOT NULL DEFAULT 0,
		created_at         TEXT NOT NULL,
		last_transition_at TEXT NOT NULL,
		posting            TEXT NOT NULL,
		score_breakdown    TEXT,
		documents          TEXT,
		notes              TEXT,
		UNIQUE(profile_id, fingerprint)
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_applications_profile_state
		ON applications (profile_id, state)`)
	return err
}

func (s *SQLite) CreateIfAbsent(ctx context.Context, app *application.Application) error {
	postingJSON, breakdownJSON, documentsJSON, notesJSON, err := marshalBlobs(app)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO applications
			(id, profile_id, fingerprint, state, relevance_score, attempt_count,
			 follow_up_count, created_at, last_transition_at, posting,
			 score_breakdown, documents, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id, fingerprint) DO NOTHING`,
		app.ID, app.ProfileID, app.Fingerprint, string(app.State),
		app.RelevanceScore, app.AttemptCount, app.FollowUpCount,
		app.CreatedAt.UTC().Format(time.RFC3339Nano),
		app.LastTransitionAt.UTC().Format(time.RFC3339Nano),
		postingJSON, breakdownJSON, documentsJSON, notesJSON,
	)
	if err != nil {
		return fmt.Errorf("store: insert application: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert application: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateApplication
	}

	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*application.Application, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM applications WHERE id = ?`, id)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return app, err
}

func (s *SQLite) Update(ctx context.Context, app *application.Application) error {
	postingJSON, breakdownJSON, documentsJSON, notesJSON, err := marshalBlobs(app)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET
			state = ?, relevance_score = ?, attempt_count = ?, follow_up_count = ?,
			last_transition_at = ?, posting = ?, score_breakdown = ?, documents = ?, notes = ?
		 WHERE id = ?`,
		string(app.State), app.RelevanceScore, app.AttemptCount, app.FollowUpCount,
		app.LastTransitionAt.UTC().Format(time.RFC3339Nano),
		postingJSON, breakdownJSON, documentsJSON, notesJSON,
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update application %s: %w", app.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update application %s: %w", app.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLite) History(ctx context.Context, profileID string) ([]*application.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM applications WHERE profile_id = ? ORDER BY created_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

func (s *SQLite) ListByState(ctx context.Context, profileID string, states ...application.State) ([]*application.Application, error) {
	if len(states) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(states)), ",")
	args := make([]any, 0, len(states)+1)
	args = append(args, profileID)
	for _, st := range states {
		args = append(args, string(st))
	}

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM applications WHERE profile_id = ? AND state IN (`+placeholders+`) ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("store: query by state: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, profile_id, fingerprint, state, relevance_score,
	attempt_count, follow_up_count, created_at, last_transition_at,
	posting, score_breakdown, documents, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*application.Application, error) {
	var app application.Application
	var state, createdAt, lastTransitionAt string
	var postingJSON string
	var breakdownJSON, documentsJSON, notesJSON sql.NullString

	err := row.Scan(&app.ID, &app.ProfileID, &app.Fingerprint, &state,
		&app.RelevanceScore, &app.AttemptCount, &app.FollowUpCount,
		&createdAt, &lastTransitionAt,
		&postingJSON, &breakdownJSON, &documentsJSON, &notesJSON)
	if err != nil {
		return nil, err
	}

	app.State = application.State(state)

	if app.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("store: parse created_at for %s: %w", app.ID, err)
	}
	if app.LastTransitionAt, err = time.Parse(time.RFC3339Nano, lastTransitionAt); err != nil {
		return nil, fmt.Errorf("store: parse last_transition_at for %s: %w", app.ID, err)
	}

	var post posting.Posting
	if err := json.Unmarshal([]byte(postingJSON), &post); err != nil {
		return nil, fmt.Errorf("store: decode posting for %s: %w", app.ID, err)
	}
	app.Posting = post

	if breakdownJSON.Valid && breakdownJSON.String != "" {
		if err := json.Unmarshal([]byte(breakdownJSON.String), &app.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("store: decode score breakdown for %s: %w", app.ID, err)
		}
	}
	if documentsJSON.Valid && documentsJSON.String != "" {
		if err := json.Unmarshal([]byte(documentsJSON.String), &app.Documents); err != nil {
			return nil, fmt.Errorf("store: decode documents for %s: %w", app.ID, err)
		}
	}
	if notesJSON.Valid && notesJSON.String != "" {
		if err := json.Unmarshal([]byte(notesJSON.String), &app.Notes); err != nil {
			return nil, fmt.Errorf("store: decode notes for %s: %w", app.ID, err)
		}
	}

	return &app, nil
}

func collectApplications(rows *sql.Rows) ([]*application.Application, error) {
	var apps []*application.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func marshalBlobs(app *application.Application) (postingJSON, breakdownJSON, documentsJSON, notesJSON string, err error) {
	b, err := json.Marshal(app.Posting)
	if err != nil {
		return "", "", "", "", fmt.Errorf("store: encode posting: %w", err)
	}
	postingJSON = string(b)

	if app.ScoreBreakdown != nil {
		if b, err = json.Marshal(app.ScoreBreakdown); err != nil {
			return "", "", "", "", fmt.Errorf("store: encode score breakdown: %w", err)
		}
		breakdownJSON = string(b)
	}
	if app.Documents != nil {
		if b, err = json.Marshal(app.Documents); err != nil {
			return "", "", "", "", fmt.Errorf("store: encode documents: %w", err)
		}
		documentsJSON = string(b)
	}
	if app.Notes != nil {
		if b, err = json.Marshal(app.Notes); err != nil {
			return "", "", "", "", fmt.Errorf("store: encode notes: %w", err)
		}
		notesJSON = string(b)
	}

	return postingJSON, breakdownJSON, documentsJSON, notesJSON, nil
}
