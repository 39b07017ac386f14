package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applyflow/applyflow/internal/application"
	"github.com/applyflow/applyflow/internal/posting"
)

func newApp(profileID, fingerprint string) *application.Application {
	p := &posting.Posting{
		SourceURL:   "https://jobs.example.com/1",
		Title:       "Go Developer",
		Company:     "Acme",
		Fingerprint: fingerprint,
	}
	return application.New(profileID, p, time.Now().UTC())
}

func TestMemoryCreateIfAbsent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	first := newApp("profile-1", "fp-1")
	require.NoError(t, m.CreateIfAbsent(ctx, first))

	// Same profile and fingerprint, different application ID.
	second := newApp("profile-1", "fp-1")
	require.ErrorIs(t, m.CreateIfAbsent(ctx, second), ErrDuplicateApplication)

	// Same fingerprint under another profile is a distinct application.
	other := newApp("profile-2", "fp-1")
	require.NoError(t, m.CreateIfAbsent(ctx, other))
}

func TestMemoryCreateRace(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	const workers = 32

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.CreateIfAbsent(ctx, newApp("profile-1", "fp-race"))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrDuplicateApplication)
		}
	}

	assert.Equal(t, 1, winners, "exactly one concurrent create must win")
}

func TestMemoryGetAndUpdate(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	app := newApp("profile-1", "fp-1")
	require.NoError(t, m.CreateIfAbsent(ctx, app))

	got, err := m.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	// Mutating the returned copy must not leak into the store.
	got.State = application.StateApplied
	again, err := m.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StateDiscovered, again.State)

	app.State = application.StateQueued
	require.NoError(t, m.Update(ctx, app))
	updated, err := m.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StateQueued, updated.State)

	_, err = m.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.Update(ctx, newApp("profile-1", "fp-ghost")), ErrNotFound)
}

func TestMemoryHistoryAndListByState(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		app := newApp("profile-1", fmt.Sprintf("fp-%d", i))
		app.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if i%2 == 0 {
			app.State = application.StateApplied
		}
		require.NoError(t, m.CreateIfAbsent(ctx, app))
	}
	require.NoError(t, m.CreateIfAbsent(ctx, newApp("profile-2", "fp-other")))

	history, err := m.History(ctx, "profile-1")
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i := 1; i < len(history); i++ {
		assert.True(t, !history[i].CreatedAt.Before(history[i-1].CreatedAt),
			"history must be ordered by creation time")
	}

	applied, err := m.ListByState(ctx, "profile-1", application.StateApplied)
	require.NoError(t, err)
	assert.Len(t, applied, 3)

	both, err := m.ListByState(ctx, "profile-1", application.StateApplied, application.StateDiscovered)
	require.NoError(t, err)
	assert.Len(t, both, 5)
}
