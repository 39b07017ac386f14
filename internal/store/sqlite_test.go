package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow/internal/application"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "applyflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	ctx := context.Background()

	app := newApp("profile-1", "fp-1")
	app.RelevanceScore = 72
	app.ScoreBreakdown = map[string]float64{"skills": 1.44}
	app.AddNote(time.Now().UTC(), "first note")
	app.AttachDocument("cover_letter", "/tmp/letter.txt")

	require.NoError(t, s.CreateIfAbsent(ctx, app))

	got, err := s.Get(ctx, app.ID)
	require.NoError(t, err)

	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, app.ProfileID, got.ProfileID)
	assert.Equal(t, app.Fingerprint, got.Fingerprint)
	assert.Equal(t, app.State, got.State)
	assert.Equal(t, 72, got.RelevanceScore)
	assert.Equal(t, app.ScoreBreakdown, got.ScoreBreakdown)
	assert.Equal(t, app.Posting.Title, got.Posting.Title)
	require.Len(t, got.Notes, 1)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "cover_letter", got.Documents[0].Kind)
	assert.True(t, app.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteDuplicateInsert(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.CreateIfAbsent(ctx, newApp("profile-1", "fp-1")))
	require.ErrorIs(t, s.CreateIfAbsent(ctx, newApp("profile-1", "fp-1")), ErrDuplicateApplication)

	// Other profile or other fingerprint both insert fine.
	require.NoError(t, s.CreateIfAbsent(ctx, newApp("profile-2", "fp-1")))
	require.NoError(t, s.CreateIfAbsent(ctx, newApp("profile-1", "fp-2")))
}

func TestSQLiteUpdate(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	ctx := context.Background()

	app := newApp("profile-1", "fp-1")
	require.NoError(t, s.CreateIfAbsent(ctx, app))

	app.State = application.StateQueued
	app.AttemptCount = 2
	require.NoError(t, s.Update(ctx, app))

	got, err := s.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StateQueued, got.State)
	assert.Equal(t, 2, got.AttemptCount)

	missing := newApp("profile-1", "fp-ghost")
	require.ErrorIs(t, s.Update(ctx, missing), ErrNotFound)
}

func TestSQLiteListByState(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	ctx := context.Background()

	applied := newApp("profile-1", "fp-1")
	applied.State = application.StateApplied
	require.NoError(t, s.CreateIfAbsent(ctx, applied))

	followedUp := newApp("profile-1", "fp-2")
	followedUp.State = application.StateFollowedUp
	require.NoError(t, s.CreateIfAbsent(ctx, followedUp))

	require.NoError(t, s.CreateIfAbsent(ctx, newApp("profile-1", "fp-3")))

	apps, err := s.ListByState(ctx, "profile-1", application.StateApplied, application.StateFollowedUp)
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	none, err := s.ListByState(ctx, "profile-1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "applyflow.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)

	app := newApp("profile-1", "fp-1")
	require.NoError(t, s.CreateIfAbsent(context.Background(), app))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.History(context.Background(), "profile-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, app.ID, history[0].ID)
}
