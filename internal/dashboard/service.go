// Package dashboard is the service layer shared by the HTTP API, the CLI and
// the terminal dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/gitutil"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/storage"
)

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Service manages repositories, their onboarding and their CI runs.
type Service interface {
	AddRepository(ctx context.Context, name, url string) (*core.Repository, error)
	ListRepositories(ctx context.Context) ([]*core.Repository, error)
	GetRepository(ctx context.Context, id string) (*core.Repository, error)
	FindRepository(ctx context.Context, fullName string) (*core.Repository, error)
	DeleteRepository(ctx context.Context, id string) error
	// StartOnboarding claims the repository and queues its onboarding.
	StartOnboarding(ctx context.Context, id string) error
	// Onboard runs the onboarding sequence and returns when it finishes.
	Onboard(ctx context.Context, id string) error
	RecordRun(ctx context.Context, id string, run core.PipelineRun) (*core.PipelineRun, error)
	// RequestHealing diagnoses a failed run. With wait unset the analysis is
	// queued and the returned analysis is nil.
	RequestHealing(ctx context.Context, id, runID, log string, wait bool) (*core.HealingAnalysis, error)
	Events(ctx context.Context, id string, limit int) ([]core.LogEntry, error)
	Stats(ctx context.Context) (core.DashboardStats, error)
}

type service struct {
	store      storage.Store
	onboarder  *pipeline.Onboarder
	healer     *pipeline.Healer
	runs       *pipeline.RunRecorder
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewService creates the dashboard service.
func NewService(
	store storage.Store,
	onboarder *pipeline.Onboarder,
	healer *pipeline.Healer,
	runs *pipeline.RunRecorder,
	dispatcher core.JobDispatcher,
	logger *slog.Logger,
) Service {
	return &service{
		store:      store,
		onboarder:  onboarder,
		healer:     healer,
		runs:       runs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (s *service) AddRepository(ctx context.Context, name, url string) (*core.Repository, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: repository url is required", ErrInvalidInput)
	}
	owner, repoName, err := gitutil.ParseRepositoryURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = repoName
	}

	repo := &core.Repository{
		ID:               uuid.NewString(),
		Name:             name,
		FullName:         owner + "/" + repoName,
		Owner:            owner,
		URL:              url,
		Status:           core.StatusIdle,
		SecurityFindings: []core.SecurityFinding{},
		PipelineRuns:     []core.PipelineRun{},
		OnboardingStages: []core.PipelineStage{},
	}
	if err := s.store.CreateRepository(ctx, repo); err != nil {
		return nil, fmt.Errorf("failed to add repository: %w", err)
	}
	s.logger.Info("repository added", "repo", repo.FullName, "id", repo.ID)
	if _, err := s.store.AppendEvent(ctx, repo.ID, fmt.Sprintf("Repository %s connected.", repo.FullName)); err != nil {
		s.logger.Warn("failed to append event", "repo_id", repo.ID, "error", err)
	}
	return repo, nil
}

func (s *service) ListRepositories(ctx context.Context) ([]*core.Repository, error) {
	return s.store.ListRepositories(ctx)
}

func (s *service) GetRepository(ctx context.Context, id string) (*core.Repository, error) {
	return s.store.GetRepository(ctx, id)
}

func (s *service) FindRepository(ctx context.Context, fullName string) (*core.Repository, error) {
	return s.store.FindRepositoryByFullName(ctx, fullName)
}

func (s *service) DeleteRepository(ctx context.Context, id string) error {
	repo, err := s.store.GetRepository(ctx, id)
	if err != nil {
		return err
	}
	if repo.Status.IsBusy() {
		return fmt.Errorf("repository %s is %s: %w", repo.FullName, repo.Status, pipeline.ErrBusy)
	}
	if err := s.store.DeleteRepository(ctx, id); err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	s.logger.Info("repository deleted", "repo", repo.FullName)
	return nil
}

func (s *service) StartOnboarding(ctx context.Context, id string) error {
	if s.dispatcher == nil {
		return s.Onboard(ctx, id)
	}
	if err := s.onboarder.Begin(ctx, id); err != nil {
		return err
	}
	task := &core.Task{Kind: core.TaskOnboarding, RepositoryID: id}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		s.onboarder.Abort(context.WithoutCancel(ctx), id, err)
		return fmt.Errorf("failed to queue onboarding: %w", err)
	}
	return nil
}

func (s *service) Onboard(ctx context.Context, id string) error {
	return s.onboarder.Run(ctx, id)
}

func (s *service) RecordRun(ctx context.Context, id string, run core.PipelineRun) (*core.PipelineRun, error) {
	if !run.Status.Valid() {
		return nil, fmt.Errorf("%w: run status must be success or failure", ErrInvalidInput)
	}
	if _, err := time.ParseDuration(run.Duration); run.Duration != "" && err != nil {
		return nil, fmt.Errorf("%w: invalid duration %q", ErrInvalidInput, run.Duration)
	}
	return s.runs.Record(ctx, id, run)
}

func (s *service) RequestHealing(ctx context.Context, id, runID, log string, wait bool) (*core.HealingAnalysis, error) {
	if wait || s.dispatcher == nil {
		return s.healer.Heal(ctx, id, runID, log)
	}
	if _, err := s.healer.Validate(ctx, id, runID, log); err != nil {
		return nil, err
	}
	task := &core.Task{Kind: core.TaskHealing, RepositoryID: id, RunID: runID, Log: log}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to queue healing: %w", err)
	}
	return nil, nil
}

func (s *service) Events(ctx context.Context, id string, limit int) ([]core.LogEntry, error) {
	return s.store.ListEvents(ctx, id, limit)
}

func (s *service) Stats(ctx context.Context) (core.DashboardStats, error) {
	repos, err := s.store.ListRepositories(ctx)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("failed to list repositories: %w", err)
	}
	return core.ComputeStats(repos), nil
}
