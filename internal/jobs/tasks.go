package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/pipeline"
)

// OnboardingJob executes an onboarding claimed by pipeline.Onboarder.Begin.
type OnboardingJob struct {
	onboarder *pipeline.Onboarder
	logger    *slog.Logger
}

func NewOnboardingJob(onboarder *pipeline.Onboarder, logger *slog.Logger) *OnboardingJob {
	if onboarder == nil {
		panic("onboarder cannot be nil")
	}
	return &OnboardingJob{onboarder: onboarder, logger: logger}
}

// Run executes the onboarding sequence for task.RepositoryID.
func (j *OnboardingJob) Run(ctx context.Context, task *core.Task) error {
	if err := validateTask(task); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	j.logger.Info("starting onboarding job", "repo_id", task.RepositoryID)
	return j.onboarder.Execute(ctx, task.RepositoryID)
}

// HealingJob analyzes a failed run.
type HealingJob struct {
	healer *pipeline.Healer
	logger *slog.Logger
}

func NewHealingJob(healer *pipeline.Healer, logger *slog.Logger) *HealingJob {
	if healer == nil {
		panic("healer cannot be nil")
	}
	return &HealingJob{healer: healer, logger: logger}
}

// Run diagnoses task.RunID, using task.Log instead of the stored log when set.
func (j *HealingJob) Run(ctx context.Context, task *core.Task) error {
	if err := validateTask(task); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	j.logger.Info("starting healing job", "repo_id", task.RepositoryID, "run_id", task.RunID)
	_, err := j.healer.Heal(ctx, task.RepositoryID, task.RunID, task.Log)
	return err
}
