package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

func TestAnchorStore_InsertBulkAndGetByCalendar(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnchorStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.AnchorDate{
		{Calendar: "FOMC", Date: domain.Date(2022, 6, 15)},
		{Calendar: "FOMC", Date: domain.Date(2022, 3, 16), Note: "first hike of the cycle"},
		{Calendar: "ECB", Date: domain.Date(2022, 7, 21)},
	})
	require.NoError(t, err)

	anchors, err := store.GetByCalendar(ctx, "FOMC")
	require.NoError(t, err)
	require.Len(t, anchors, 2)

	assert.True(t, anchors[0].Date.Equal(domain.Date(2022, 3, 16)))
	assert.Equal(t, "first hike of the cycle", anchors[0].Note)
	assert.True(t, anchors[1].Date.Equal(domain.Date(2022, 6, 15)))
}

func TestAnchorStore_GetByDateRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnchorStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.AnchorDate{
		{Calendar: "FOMC", Date: domain.Date(2022, 3, 16)},
		{Calendar: "FOMC", Date: domain.Date(2022, 6, 15)},
		{Calendar: "FOMC", Date: domain.Date(2023, 2, 1)},
	})
	require.NoError(t, err)

	// Inclusive on both ends.
	anchors, err := store.GetByDateRange(ctx, "FOMC", domain.Date(2022, 3, 16), domain.Date(2022, 6, 15))
	require.NoError(t, err)
	assert.Len(t, anchors, 2)
}

func TestAnchorStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAnchorStore(pool)
	ctx := context.Background()

	a := &domain.AnchorDate{Calendar: "FOMC", Date: domain.Date(2022, 3, 16)}
	require.NoError(t, store.Insert(ctx, a))

	err := store.Insert(ctx, a)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Bulk with a duplicate rolls back entirely.
	err = store.InsertBulk(ctx, []*domain.AnchorDate{
		{Calendar: "FOMC", Date: domain.Date(2022, 6, 15)},
		{Calendar: "FOMC", Date: domain.Date(2022, 3, 16)},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	anchors, err := store.GetByCalendar(ctx, "FOMC")
	require.NoError(t, err)
	assert.Len(t, anchors, 1)
}
