package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/llm"
	"github.com/sevigo/autoci/internal/storage"
)

// HealingNotifier publishes a finished healing analysis back to the CI host.
type HealingNotifier interface {
	NotifyHealing(ctx context.Context, repo *core.Repository, run *core.PipelineRun) error
}

// Healer diagnoses failed CI runs.
type Healer struct {
	store    storage.Store
	analyzer llm.Analyzer
	notifier HealingNotifier
	events   eventLog
	logger   *slog.Logger
}

// NewHealer creates a Healer. notifier may be nil.
func NewHealer(store storage.Store, analyzer llm.Analyzer, notifier HealingNotifier, logger *slog.Logger) *Healer {
	return &Healer{
		store:    store,
		analyzer: analyzer,
		notifier: notifier,
		events:   eventLog{store: store, logger: logger},
		logger:   logger,
	}
}

// Validate checks that runID of repoID can be healed and returns the log to analyze.
func (h *Healer) Validate(ctx context.Context, repoID, runID, logOverride string) (string, error) {
	repo, err := h.store.GetRepository(ctx, repoID)
	if err != nil {
		return "", err
	}
	_, log, err := healable(repo, runID, logOverride)
	return log, err
}

func healable(repo *core.Repository, runID, logOverride string) (*core.PipelineRun, string, error) {
	if repo.Stack == nil {
		return nil, "", fmt.Errorf("repository %s: %w", repo.FullName, ErrStackNotDetected)
	}
	run := repo.FindRun(runID)
	if run == nil {
		return nil, "", fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
	}
	if run.Status != core.RunFailure {
		return nil, "", fmt.Errorf("run %s: %w", runID, ErrRunNotFailed)
	}
	log := logOverride
	if log == "" {
		log = run.Log
	}
	if log == "" {
		return nil, "", fmt.Errorf("run %s: %w", runID, ErrEmptyLog)
	}
	return run, log, nil
}

// Heal asks the AI for the root cause of a failed run and stores the analysis
// on the run. logOverride replaces the stored log when non-empty.
func (h *Healer) Heal(ctx context.Context, repoID, runID, logOverride string) (*core.HealingAnalysis, error) {
	repo, err := h.store.GetRepository(ctx, repoID)
	if err != nil {
		return nil, err
	}
	_, log, err := healable(repo, runID, logOverride)
	if err != nil {
		return nil, err
	}

	h.events.write(ctx, repoID, "Self-healing sequence initiated...")
	h.logger.Info("healing run", "repo", repo.FullName, "run_id", runID)

	analysis, err := h.analyzer.AnalyzeBuildFailure(ctx, log, repo.Stack)
	if err != nil {
		h.events.write(context.WithoutCancel(ctx), repoID, fmt.Sprintf("Healing analysis failed: %v", err))
		return nil, fmt.Errorf("healing analysis failed: %w", err)
	}
	analysis.SuggestedFix.Before = readHead(repo.ClonePath, analysis.SuggestedFix.Target, beforeLines)

	var healed core.PipelineRun
	updated, err := h.store.UpdateRepository(ctx, repoID, func(r *core.Repository) error {
		run := r.FindRun(runID)
		if run == nil {
			return fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
		}
		run.Healing = analysis
		run.HealingResolved = false
		if run.Log == "" {
			run.Log = log
		}
		r.Metrics.AIFixAttempts++
		healed = run.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store healing analysis: %w", err)
	}
	h.events.write(ctx, repoID, fmt.Sprintf("Root cause identified: %s", analysis.RootCause))

	if h.notifier != nil && healed.HeadSHA != "" && healed.InstallationID != 0 {
		if err := h.notifier.NotifyHealing(ctx, updated, &healed); err != nil {
			h.logger.Warn("failed to publish healing analysis", "repo", repo.FullName, "run_id", runID, "error", err)
		}
	}
	return analysis, nil
}
