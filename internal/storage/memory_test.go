package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoci/internal/core"
)

func newRepo(id, fullName string) *core.Repository {
	return &core.Repository{
		ID:       id,
		Name:     fullName,
		FullName: fullName,
		Status:   core.StatusIdle,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "org/a")))

	err := store.CreateRepository(ctx, newRepo("b", "org/a"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := store.GetRepository(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "org/a", got.FullName)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := store.FindRepositoryByFullName(ctx, "org/a")
	require.NoError(t, err)
	assert.Equal(t, "a", byName.ID)

	_, err = store.GetRepository(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FullNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "Foo/Bar")))

	got, err := store.FindRepositoryByFullName(ctx, "foo/bar")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "Foo/Bar", got.FullName)

	err = store.CreateRepository(ctx, newRepo("b", "FOO/bar"))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "org/a")))

	got, err := store.GetRepository(ctx, "a")
	require.NoError(t, err)
	got.Status = core.StatusFailed
	got.PipelineRuns = append(got.PipelineRuns, core.PipelineRun{ID: "x"})

	again, err := store.GetRepository(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, again.Status)
	assert.Empty(t, again.PipelineRuns)
}

func TestMemoryStore_UpdateRepository(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "org/a")))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := store.UpdateRepository(ctx, "a", func(r *core.Repository) error {
		r.Status = core.StatusCompleted
		r.PipelineRuns = append(r.PipelineRuns,
			core.PipelineRun{ID: "old", Timestamp: base},
			core.PipelineRun{ID: "new", Timestamp: base.Add(time.Minute)},
		)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, updated.Status)
	require.Len(t, updated.PipelineRuns, 2)
	assert.Equal(t, "new", updated.PipelineRuns[0].ID)

	boom := errors.New("boom")
	_, err = store.UpdateRepository(ctx, "a", func(r *core.Repository) error {
		r.Status = core.StatusFailed
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetRepository(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)

	_, err = store.UpdateRepository(ctx, "missing", func(*core.Repository) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Events(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "org/a")))

	for _, msg := range []string{"one", "two", "three"} {
		_, err := store.AppendEvent(ctx, "a", msg)
		require.NoError(t, err)
	}

	events, err := store.ListEvents(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, "three", events[1].Message)
	assert.Less(t, events[0].ID, events[1].ID)

	_, err = store.AppendEvent(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateRepository(ctx, newRepo("a", "org/a")))
	require.NoError(t, store.CreateRepository(ctx, newRepo("b", "org/b")))

	require.NoError(t, store.DeleteRepository(ctx, "a"))
	assert.ErrorIs(t, store.DeleteRepository(ctx, "a"), ErrNotFound)

	repos, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "b", repos[0].ID)
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := SeedDemoData(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = SeedDemoData(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)

	repos, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	stats := core.ComputeStats(repos)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Security)
	assert.Equal(t, 120, stats.TimeSavedMinutes)
	assert.InDelta(t, 0.5, stats.FixRate, 1e-9)

	nexus, err := store.GetRepository(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", nexus.PipelineRuns[0].ID)
}
