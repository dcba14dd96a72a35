package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/storage"
)

// RunRecorder stores CI runs and closes the healing loop.
type RunRecorder struct {
	store      storage.Store
	dispatcher core.JobDispatcher
	opts       Options
	events     eventLog
	logger     *slog.Logger
}

// NewRunRecorder creates a RunRecorder. dispatcher may be nil, which disables auto-heal.
func NewRunRecorder(store storage.Store, dispatcher core.JobDispatcher, opts Options, logger *slog.Logger) *RunRecorder {
	return &RunRecorder{
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		events:     eventLog{store: store, logger: logger},
		logger:     logger,
	}
}

// Record stores run on the repository. A run with the same ID or external ID
// replaces the stored one. A successful run resolves the healing analysis of
// the most recent earlier failed run, if it is still open.
func (r *RunRecorder) Record(ctx context.Context, repoID string, run core.PipelineRun) (*core.PipelineRun, error) {
	if !run.Status.Valid() {
		return nil, fmt.Errorf("status %q: %w", run.Status, ErrInvalidRun)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.Stages == nil {
		run.Stages = []core.PipelineStage{}
	}

	resolved := false
	_, err := r.store.UpdateRepository(ctx, repoID, func(repo *core.Repository) error {
		resolved = false
		repo.PipelineRuns = replaceRun(repo.PipelineRuns, &run)
		if run.Status == core.RunSuccess {
			if prev := lastFailureBefore(repo.PipelineRuns, &run); prev != nil && prev.Healing != nil && !prev.HealingResolved {
				prev.HealingResolved = true
				repo.Metrics.AIFixSuccesses++
				repo.Metrics.TimeSavedMinutes += r.opts.TimeSavedPerFix
				resolved = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.events.write(ctx, repoID, fmt.Sprintf("CI run %s recorded: %s", run.ID, run.Status))
	if resolved {
		r.events.write(ctx, repoID, "Suggested fix verified by a passing build.")
	}
	r.logger.Info("pipeline run recorded", "repo_id", repoID, "run_id", run.ID, "status", run.Status)

	if run.Status == core.RunFailure && run.Log != "" && r.opts.AutoHeal && r.dispatcher != nil {
		task := &core.Task{Kind: core.TaskHealing, RepositoryID: repoID, RunID: run.ID}
		if err := r.dispatcher.Dispatch(ctx, task); err != nil {
			r.logger.Warn("failed to queue auto-heal", "repo_id", repoID, "run_id", run.ID, "error", err)
		}
	}
	return &run, nil
}

// replaceRun stores run, taking over the ID and healing of a stored run it
// replaces. A passing re-run of a failed workflow run (same external ID) is
// kept as a separate run so the failure and its healing stay on record.
func replaceRun(runs []core.PipelineRun, run *core.PipelineRun) []core.PipelineRun {
	idx := matchRun(runs, run)
	if idx < 0 {
		return append(runs, run.Clone())
	}
	old := runs[idx]
	if old.ID != run.ID && old.Status == core.RunFailure && run.Status == core.RunSuccess {
		return append(runs, run.Clone())
	}
	run.ID = old.ID
	if run.Healing == nil && run.Status == old.Status {
		run.Healing = old.Healing
		run.HealingResolved = old.HealingResolved
	}
	runs[idx] = run.Clone()
	return runs
}

// matchRun returns the index of the stored run with run's ID or, failing
// that, the newest stored run with its external ID. It returns -1 when none match.
func matchRun(runs []core.PipelineRun, run *core.PipelineRun) int {
	idx := -1
	for i := range runs {
		if runs[i].ID == run.ID {
			return i
		}
		if run.ExternalID == 0 || runs[i].ExternalID != run.ExternalID {
			continue
		}
		if idx < 0 || runs[i].Timestamp.After(runs[idx].Timestamp) {
			idx = i
		}
	}
	return idx
}

// lastFailureBefore returns the most recent failed run older than run.
func lastFailureBefore(runs []core.PipelineRun, run *core.PipelineRun) *core.PipelineRun {
	var latest *core.PipelineRun
	for i := range runs {
		c := &runs[i]
		if c.ID == run.ID || c.Status != core.RunFailure || c.Timestamp.After(run.Timestamp) {
			continue
		}
		if latest == nil || c.Timestamp.After(latest.Timestamp) {
			latest = c
		}
	}
	return latest
}
