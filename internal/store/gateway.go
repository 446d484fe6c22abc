// Package store implements the persistent gateway for concept records.
package store

import (
	"context"

	"github.com/kimhsiao/conceptdeck/internal/models"
)

// Gateway abstracts the backing store. It is the only component that
// performs I/O beyond the local snapshot file.
type Gateway interface {
	// FetchAll returns every record, newest creation time first.
	FetchAll(ctx context.Context) ([]models.Concept, error)

	// Create persists a draft, assigning id and missing timestamps.
	Create(ctx context.Context, draft models.Concept) (models.Concept, error)

	// Update applies a partial patch to an existing record.
	Update(ctx context.Context, id string, patch models.Patch) (models.Concept, error)

	// DeleteByID removes a record and returns it.
	DeleteByID(ctx context.Context, id string) (models.Concept, error)

	// ReplaceAll atomically clears the store and inserts the given
	// records, returning the number persisted. Nothing is written
	// unless every record passes validation.
	ReplaceAll(ctx context.Context, drafts []models.Concept) (int, error)

	// Close releases the underlying resources.
	Close() error
}
