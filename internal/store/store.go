// Package store persists application records. It is the only component with
// cross-run memory; everything else in the pipeline is a stateless transform.
package store

import (
	"context"
	"errors"

	"github.com/applyflow/applyflow/internal/application"
)

// ErrDuplicateApplication is returned by CreateIfAbsent when an application
// for the same (profile_id, fingerprint) already exists. Concurrent creation
// races resolve to a single winner; the losers see this error.
var ErrDuplicateApplication = errors.New("application already exists for this posting")

// ErrNotFound is returned when no application matches the given id.
var ErrNotFound = errors.New("application not found")

// Store is the storage collaborator contract. Implementations must provide an
// atomic insert-if-absent keyed by (profile_id, fingerprint). Records are
// never deleted; terminal states are retained for audit and dedup.
type Store interface {
	// CreateIfAbsent inserts the application unless one already exists for
	// its (profile_id, fingerprint), in which case ErrDuplicateApplication
	// is returned and the stored record is left untouched.
	CreateIfAbsent(ctx context.Context, app *application.Application) error

	// Get returns the application with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*application.Application, error)

	// Update persists the mutated application record, or ErrNotFound.
	Update(ctx context.Context, app *application.Application) error

	// History returns every application for the profile, terminal states
	// included, for dedup lookups.
	History(ctx context.Context, profileID string) ([]*application.Application, error)

	// ListByState returns the profile's applications in any of the given
	// states.
	ListByState(ctx context.Context, profileID string, states ...application.State) ([]*application.Application, error)

	Close() error
}
