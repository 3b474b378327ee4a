// Package history holds the per-name record of image conversions.
package history

import (
	"context"
	"errors"
	"time"
)

// Record is a single completed image conversion.
// OriginalPath and ResultPath are storage keys relative to the artifact
// root, e.g. "uploads/cat_0a1b2c3d.jpg".
type Record struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	OriginalPath string    `json:"original_path" db:"original_path"`
	ResultPath   string    `json:"result_path" db:"result_path"`
	Method       string    `json:"method" db:"method"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Provider is an interface for persisting and retrieving conversion records.
// Records are immutable once inserted; the only mutation is deletion.
// Implementations must never reuse an id, even after deletes.
type Provider interface {
	// Insert persists a new record, assigning its ID and CreatedAt
	Insert(ctx context.Context, record *Record) (int64, error)

	// ListByName returns all records owned by name, newest first
	ListByName(ctx context.Context, name string) ([]Record, error)

	// List returns records owned by name, newest first, with an offset/limit
	List(ctx context.Context, name string, offset, limit int) ([]Record, error)

	// DeleteByName removes all records owned by name and returns how many
	// were removed. Calling it again once the name is empty returns 0.
	DeleteByName(ctx context.Context, name string) (int64, error)

	// DeleteByID removes the record only if it exists and is owned by
	// expectedName, reporting whether a deletion happened. The owner check
	// is what keeps one name from deleting another's records by guessing ids.
	DeleteByID(ctx context.Context, id int64, expectedName string) (bool, error)

	// Get returns the record with the given id, or ErrNotFound
	Get(ctx context.Context, id int64) (*Record, error)

	// Ping verifies that the store is reachable
	Ping(ctx context.Context) error

	Wait(ctx context.Context) error
	Migrate(migrationsURL string) error
	Shutdown()
}

// Errors
var (
	ErrNotFound = errors.New("record does not exist")
)
