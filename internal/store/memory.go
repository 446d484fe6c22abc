package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

// MemoryStore is an in-memory Gateway. It mirrors the SQLite gateway's
// semantics and is used by controller and handler tests; errors can be
// injected per operation to exercise failure paths.
type MemoryStore struct {
	mu       sync.RWMutex
	concepts []models.Concept // insertion order, oldest first
	now      func() time.Time

	FetchAllErr   error
	CreateErr     error
	UpdateErr     error
	DeleteErr     error
	ReplaceAllErr error

	ReplaceAllCalls int
}

// NewMemoryStore creates an empty in-memory gateway.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// NewMemoryStoreWithClock creates an in-memory gateway with a fixed
// clock for deterministic timestamps.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{now: now}
}

// Close implements Gateway.
func (m *MemoryStore) Close() error {
	return nil
}

// FetchAll returns records ordered by creation time descending, ties
// newest insert first.
func (m *MemoryStore) FetchAll(ctx context.Context) ([]models.Concept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FetchAllErr != nil {
		return nil, m.FetchAllErr
	}

	out := make([]models.Concept, len(m.concepts))
	for i := range m.concepts {
		out[i] = m.concepts[len(m.concepts)-1-i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Create persists a draft, assigning an id and any missing timestamps.
func (m *MemoryStore) Create(ctx context.Context, draft models.Concept) (models.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return models.Concept{}, m.CreateErr
	}
	if err := draft.Validate(); err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrValidation, "concept failed validation", err)
	}

	now := m.now()
	if draft.ID == "" {
		draft.ID = models.NewID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}
	draft.CreatedAt = storedTime(draft.CreatedAt)
	draft.UpdatedAt = storedTime(draft.UpdatedAt)

	m.concepts = append(m.concepts, draft)
	return draft, nil
}

// Update applies a partial patch to an existing record.
func (m *MemoryStore) Update(ctx context.Context, id string, patch models.Patch) (models.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return models.Concept{}, m.UpdateErr
	}

	for i := range m.concepts {
		if m.concepts[i].ID != id {
			continue
		}
		updated := m.concepts[i]
		patch.Apply(&updated)
		updated.Touch(storedTime(m.now()))
		if err := updated.Validate(); err != nil {
			return models.Concept{}, apperrors.Wrap(apperrors.ErrValidation, "concept failed validation", err)
		}
		m.concepts[i] = updated
		return updated, nil
	}
	return models.Concept{}, apperrors.Newf(apperrors.ErrNotFound, "concept not found: %s", id)
}

// DeleteByID removes a record and returns the deleted value.
func (m *MemoryStore) DeleteByID(ctx context.Context, id string) (models.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return models.Concept{}, m.DeleteErr
	}

	for i := range m.concepts {
		if m.concepts[i].ID != id {
			continue
		}
		deleted := m.concepts[i]
		m.concepts = append(m.concepts[:i], m.concepts[i+1:]...)
		return deleted, nil
	}
	return models.Concept{}, apperrors.Newf(apperrors.ErrNotFound, "concept not found: %s", id)
}

// ReplaceAll validates every record, then swaps the stored set.
func (m *MemoryStore) ReplaceAll(ctx context.Context, drafts []models.Concept) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReplaceAllCalls++
	if m.ReplaceAllErr != nil {
		return 0, m.ReplaceAllErr
	}

	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrValidation,
				fmt.Sprintf("record %d failed validation", i), err)
		}
	}

	now := m.now()
	seenIDs := make(map[string]struct{}, len(drafts))
	replacement := make([]models.Concept, 0, len(drafts))

	// store in reverse so FetchAll's newest-insert-first tiebreak
	// preserves the batch order for equal creation times
	for i := len(drafts) - 1; i >= 0; i-- {
		draft := drafts[i]
		if _, taken := seenIDs[draft.ID]; draft.ID == "" || taken {
			draft.ID = models.NewID()
		}
		seenIDs[draft.ID] = struct{}{}
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = now
		}
		if draft.UpdatedAt.IsZero() {
			draft.UpdatedAt = now
		}
		draft.CreatedAt = storedTime(draft.CreatedAt)
		draft.UpdatedAt = storedTime(draft.UpdatedAt)
		replacement = append(replacement, draft)
	}

	m.concepts = replacement
	return len(drafts), nil
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.concepts)
}
