package store

import (
	"context"
	"sort"
	"sync"

	"github.com/applyflow/applyflow/internal/application"
)

// Memory is an in-process Store used by tests and dry runs. The mutex makes
// CreateIfAbsent a true compare-and-insert under concurrent callers.
type Memory struct {
	mu     sync.Mutex
	byID   map[string]*application.Application
	byPair map[string]string // profile_id+"\x00"+fingerprint -> id
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]*application.Application),
		byPair: make(map[string]string),
	}
}

func pairKey(profileID, fingerprint string) string {
	return profileID + "\x00" + fingerprint
}

func (m *Memory) CreateIfAbsent(_ context.Context, app *application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(app.ProfileID, app.Fingerprint)
	if _, exists := m.byPair[key]; exists {
		return ErrDuplicateApplication
	}

	clone := *app
	m.byID[app.ID] = &clone
	m.byPair[key] = app.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	app, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *app
	return &clone, nil
}

func (m *Memory) Update(_ context.Context, app *application.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[app.ID]; !ok {
		return ErrNotFound
	}
	clone := *app
	m.byID[app.ID] = &clone
	return nil
}

func (m *Memory) History(_ context.Context, profileID string) ([]*application.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var apps []*application.Application
	for _, app := range m.byID {
		if app.ProfileID == profileID {
			clone := *app
			apps = append(apps, &clone)
		}
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.Before(apps[j].CreatedAt) })
	return apps, nil
}

func (m *Memory) ListByState(_ context.Context, profileID string, states ...application.State) ([]*application.Application, error) {
	wanted := make(map[application.State]bool, len(states))
	for _, st := range states {
		wanted[st] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var apps []*application.Application
	for _, app := range m.byID {
		if app.ProfileID == profileID && wanted[app.State] {
			clone := *app
			apps = append(apps, &clone)
		}
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].CreatedAt.Before(apps[j].CreatedAt) })
	return apps, nil
}

func (m *Memory) Close() error { return nil }
