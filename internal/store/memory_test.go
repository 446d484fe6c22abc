package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

func TestMemoryStore_injectedErrors(t *testing.T) {
	m := NewMemoryStore()
	boom := apperrors.New(apperrors.ErrDatabase, "boom")

	m.FetchAllErr = boom
	_, err := m.FetchAll(context.Background())
	assert.Equal(t, boom, err)
	m.FetchAllErr = nil

	m.CreateErr = boom
	_, err = m.Create(context.Background(), draft("X", baseTime))
	assert.Equal(t, boom, err)
	m.CreateErr = nil

	m.ReplaceAllErr = boom
	_, err = m.ReplaceAll(context.Background(), []models.Concept{draft("X", baseTime)})
	assert.Equal(t, boom, err)
}

func TestMemoryStore_countsReplaceAllCalls(t *testing.T) {
	m := NewMemoryStore()

	assert.Equal(t, 0, m.ReplaceAllCalls)

	_, err := m.ReplaceAll(context.Background(), []models.Concept{draft("A", baseTime)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.ReplaceAllCalls)

	// failed calls count too; the counter tracks invocations
	m.ReplaceAllErr = apperrors.New(apperrors.ErrDatabase, "down")
	_, _ = m.ReplaceAll(context.Background(), nil)
	assert.Equal(t, 2, m.ReplaceAllCalls)
}

func TestMemoryStore_clockInjection(t *testing.T) {
	fixed := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)
	m := NewMemoryStoreWithClock(func() time.Time { return fixed })

	created, err := m.Create(context.Background(), models.NewDraft(models.DraftParams{
		Topic: "Go", Title: "Interface", Definition: "A method set contract.", Keyword: "types",
	}, time.Time{}))
	require.NoError(t, err)

	assert.True(t, created.CreatedAt.Equal(fixed))
	assert.True(t, created.UpdatedAt.Equal(fixed))
	assert.Equal(t, 1, m.Len())
}
