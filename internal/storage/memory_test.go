package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/storage"
)

func TestMemoryStore_Contract(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemoryStore()

	n, err := m.UpsertNew(ctx, "jobs", []model.JobRecord{
		sample("A", "a", "2024-05-01", "ua"),
		sample("B", "b", "2024-05-02", "ub"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap, err := m.Snapshot(ctx, "jobs", "jobs_filtered")
	require.NoError(t, err)
	assert.True(t, snap.Accepted.Known(sample("", "", "", "ub")))
	assert.Zero(t, snap.Filtered.Len())

	rows, err := m.List(ctx, "jobs", false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Title)
	assert.False(t, rows[0].LoadedAt.IsZero())

	require.NoError(t, m.SetFlag(ctx, "jobs", rows[0].ID, "hidden", true))
	rows, err = m.List(ctx, "jobs", false)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = m.Get(ctx, "jobs", 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
