package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/mocks"
)

func TestRunRecorder_Record(t *testing.T) {
	store := newStore(t, idleRepo())
	rec := pipeline.NewRunRecorder(store, nil, pipeline.Options{}, discardLogger())

	run, err := rec.Record(context.Background(), "repo-1", core.PipelineRun{Status: core.RunSuccess, Duration: "30s"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.Timestamp.IsZero())
	assert.NotNil(t, run.Stages)

	repo, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	require.Len(t, repo.PipelineRuns, 1)
	assert.Equal(t, run.ID, repo.PipelineRuns[0].ID)
	assert.Equal(t, []string{"CI run " + run.ID + " recorded: success"}, eventMessages(t, store, "repo-1"))
}

func TestRunRecorder_Record_InvalidStatus(t *testing.T) {
	rec := pipeline.NewRunRecorder(newStore(t, idleRepo()), nil, pipeline.Options{}, discardLogger())
	_, err := rec.Record(context.Background(), "repo-1", core.PipelineRun{Status: "cancelled"})
	assert.ErrorIs(t, err, pipeline.ErrInvalidRun)
}

func TestRunRecorder_Record_ResolvesHealing(t *testing.T) {
	base := time.Now().UTC()
	repo := failedRepo(base)
	repo.PipelineRuns[1].Healing = requestsFix()
	repo.Metrics = core.Metrics{AIFixAttempts: 1}
	store := newStore(t, repo)
	rec := pipeline.NewRunRecorder(store, nil, pipeline.Options{TimeSavedPerFix: 30}, discardLogger())
	ctx := context.Background()

	_, err := rec.Record(ctx, "repo-1", core.PipelineRun{ID: "run-fixed", Timestamp: base.Add(time.Minute), Status: core.RunSuccess})
	require.NoError(t, err)

	got, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", got.PipelineRuns[0].ID)
	assert.True(t, got.FindRun("run-bad").HealingResolved)
	assert.Equal(t, core.Metrics{TimeSavedMinutes: 30, AIFixSuccesses: 1, AIFixAttempts: 1}, got.Metrics)

	// A second success must not resolve the same analysis again.
	_, err = rec.Record(ctx, "repo-1", core.PipelineRun{ID: "run-again", Timestamp: base.Add(2 * time.Minute), Status: core.RunSuccess})
	require.NoError(t, err)
	got, err = store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Metrics.AIFixSuccesses)
}

func TestRunRecorder_Record_OnlyLatestFailureCounts(t *testing.T) {
	base := time.Now().UTC()
	repo := failedRepo(base)
	repo.PipelineRuns[1].Healing = requestsFix()
	repo.PipelineRuns = append(repo.PipelineRuns, core.PipelineRun{
		ID: "run-worse", Timestamp: base.Add(time.Minute), Status: core.RunFailure, Log: "segfault",
	})
	store := newStore(t, repo)
	rec := pipeline.NewRunRecorder(store, nil, pipeline.Options{TimeSavedPerFix: 30}, discardLogger())

	_, err := rec.Record(context.Background(), "repo-1", core.PipelineRun{Timestamp: base.Add(2 * time.Minute), Status: core.RunSuccess})
	require.NoError(t, err)

	got, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.False(t, got.FindRun("run-bad").HealingResolved)
	assert.Zero(t, got.Metrics.AIFixSuccesses)
}

func TestRunRecorder_Record_ReplacesByExternalID(t *testing.T) {
	base := time.Now().UTC()
	repo := failedRepo(base)
	repo.PipelineRuns[1].ExternalID = 9001
	repo.PipelineRuns[1].Healing = requestsFix()
	store := newStore(t, repo)
	rec := pipeline.NewRunRecorder(store, nil, pipeline.Options{}, discardLogger())

	run, err := rec.Record(context.Background(), "repo-1", core.PipelineRun{
		ExternalID: 9001, Timestamp: base, Status: core.RunFailure, Log: "redelivered",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-bad", run.ID)

	got, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Len(t, got.PipelineRuns, 2)
	stored := got.FindRun("run-bad")
	assert.Equal(t, "redelivered", stored.Log)
	assert.NotNil(t, stored.Healing, "healing survives a redelivered failure")
}

func TestRunRecorder_Record_RerunOfHealedFailure(t *testing.T) {
	base := time.Now().UTC()
	repo := failedRepo(base)
	repo.PipelineRuns[1].ExternalID = 77
	repo.PipelineRuns[1].Healing = requestsFix()
	repo.Metrics = core.Metrics{AIFixAttempts: 1}
	store := newStore(t, repo)
	rec := pipeline.NewRunRecorder(store, nil, pipeline.Options{TimeSavedPerFix: 30}, discardLogger())
	ctx := context.Background()

	run, err := rec.Record(ctx, "repo-1", core.PipelineRun{
		ExternalID: 77, Timestamp: base.Add(time.Minute), Status: core.RunSuccess,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "run-bad", run.ID)

	got, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Len(t, got.PipelineRuns, 3)
	failed := got.FindRun("run-bad")
	require.NotNil(t, failed)
	assert.Equal(t, core.RunFailure, failed.Status)
	assert.NotNil(t, failed.Healing)
	assert.True(t, failed.HealingResolved)
	assert.Equal(t, core.Metrics{TimeSavedMinutes: 30, AIFixSuccesses: 1, AIFixAttempts: 1}, got.Metrics)

	// A redelivered success updates the re-run, not the failure.
	_, err = rec.Record(ctx, "repo-1", core.PipelineRun{
		ExternalID: 77, Timestamp: base.Add(time.Minute), Status: core.RunSuccess, Duration: "40s",
	})
	require.NoError(t, err)
	got, err = store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Len(t, got.PipelineRuns, 3)
	assert.Equal(t, run.ID, got.FindRun(run.ID).ID)
	assert.Equal(t, "40s", got.FindRun(run.ID).Duration)
	assert.Equal(t, 1, got.Metrics.AIFixSuccesses)
}

func TestRunRecorder_Record_AutoHeal(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockJobDispatcher(ctrl)
	store := newStore(t, idleRepo())
	rec := pipeline.NewRunRecorder(store, dispatcher, pipeline.Options{AutoHeal: true}, discardLogger())

	dispatcher.EXPECT().Dispatch(gomock.Any(), &core.Task{Kind: core.TaskHealing, RepositoryID: "repo-1", RunID: "r1"}).
		Return(errors.New("job queue is full"))

	_, err := rec.Record(context.Background(), "repo-1", core.PipelineRun{ID: "r1", Status: core.RunFailure, Log: "boom"})
	require.NoError(t, err, "a full queue does not fail recording")

	// No log, no healing.
	_, err = rec.Record(context.Background(), "repo-1", core.PipelineRun{ID: "r2", Status: core.RunFailure})
	require.NoError(t, err)
}

func TestRunRecorder_Record_UnknownRepository(t *testing.T) {
	rec := pipeline.NewRunRecorder(newStore(t), nil, pipeline.Options{}, discardLogger())
	_, err := rec.Record(context.Background(), "missing", core.PipelineRun{Status: core.RunSuccess})
	assert.Error(t, err)
}
