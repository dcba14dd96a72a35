package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/autoci/internal/core"
)

// ErrIgnored is returned for webhook events that do not produce a run.
var ErrIgnored = errors.New("event ignored")

// RunSink receives the runs built from workflow events.
type RunSink interface {
	FindRepository(ctx context.Context, fullName string) (*core.Repository, error)
	RecordRun(ctx context.Context, id string, run core.PipelineRun) (*core.PipelineRun, error)
}

// WorkflowIngestor turns completed workflow_run events into recorded pipeline runs.
type WorkflowIngestor struct {
	clients ClientFactory
	sink    RunSink
	logger  *slog.Logger
}

// NewWorkflowIngestor creates a WorkflowIngestor.
func NewWorkflowIngestor(clients ClientFactory, sink RunSink, logger *slog.Logger) *WorkflowIngestor {
	return &WorkflowIngestor{clients: clients, sink: sink, logger: logger}
}

// HandleWorkflowRun records a completed workflow run for a tracked repository.
// Events for other actions, untracked repositories and inconclusive runs
// return ErrIgnored.
func (w *WorkflowIngestor) HandleWorkflowRun(ctx context.Context, event *github.WorkflowRunEvent) (*core.PipelineRun, error) {
	if event.GetAction() != "completed" || event.GetWorkflowRun() == nil {
		return nil, fmt.Errorf("action %q: %w", event.GetAction(), ErrIgnored)
	}
	wr := event.GetWorkflowRun()
	fullName := event.GetRepo().GetFullName()

	status, ok := RunStatusFromConclusion(wr.GetConclusion())
	if !ok {
		return nil, fmt.Errorf("conclusion %q: %w", wr.GetConclusion(), ErrIgnored)
	}

	repo, err := w.sink.FindRepository(ctx, fullName)
	if err != nil {
		w.logger.Debug("workflow run for untracked repository", "repo", fullName, "error", err)
		return nil, fmt.Errorf("repository %s: %w", fullName, ErrIgnored)
	}

	started := wr.GetRunStartedAt()
	if wr.RunStartedAt == nil {
		started = wr.GetCreatedAt()
	}
	run := core.PipelineRun{
		ID:             strconv.FormatInt(wr.GetID(), 10),
		Timestamp:      wr.GetUpdatedAt().Time.UTC(),
		Status:         status,
		Duration:       core.FormatDuration(wr.GetUpdatedAt().Sub(started.Time)),
		Stages:         []core.PipelineStage{},
		HeadSHA:        wr.GetHeadSHA(),
		InstallationID: event.GetInstallation().GetID(),
		ExternalID:     wr.GetID(),
	}

	owner, name := event.GetRepo().GetOwner().GetLogin(), event.GetRepo().GetName()
	client, err := w.clients.ForInstallation(ctx, run.InstallationID)
	if err != nil {
		w.logger.Warn("recording workflow run without job details", "repo", fullName, "error", err)
	} else {
		w.attachJobs(ctx, client, owner, name, wr.GetID(), &run)
	}

	recorded, err := w.sink.RecordRun(ctx, repo.ID, run)
	if err != nil {
		return nil, fmt.Errorf("failed to record workflow run: %w", err)
	}
	w.logger.Info("workflow run recorded", "repo", fullName, "run_id", recorded.ID, "status", recorded.Status)
	return recorded, nil
}

// attachJobs fills stages from the run's jobs and the log from the first failed job.
func (w *WorkflowIngestor) attachJobs(ctx context.Context, client Client, owner, repo string, runID int64, run *core.PipelineRun) {
	jobs, err := client.ListWorkflowJobs(ctx, owner, repo, runID)
	if err != nil {
		w.logger.Warn("failed to list workflow jobs", "repo", owner+"/"+repo, "run_id", runID, "error", err)
		return
	}
	run.Stages = StagesFromJobs(jobs)

	if run.Status != core.RunFailure {
		return
	}
	for _, job := range jobs {
		if stageStatus(job) != core.StageFailure {
			continue
		}
		raw, err := client.GetJobLogs(ctx, owner, repo, job.GetID())
		if err != nil {
			w.logger.Warn("failed to download job log", "repo", owner+"/"+repo, "job_id", job.GetID(), "error", err)
			return
		}
		run.Log = LogTail(raw, DefaultLogTailLines)
		return
	}
}

// RunStatusFromConclusion maps a workflow conclusion onto a run status.
// Cancelled, skipped and neutral runs are not recorded.
func RunStatusFromConclusion(conclusion string) (core.RunStatus, bool) {
	switch conclusion {
	case "success":
		return core.RunSuccess, true
	case "failure", "timed_out", "startup_failure":
		return core.RunFailure, true
	default:
		return "", false
	}
}

// StagesFromJobs renders workflow jobs as pipeline stages.
func StagesFromJobs(jobs []*github.WorkflowJob) []core.PipelineStage {
	stages := make([]core.PipelineStage, 0, len(jobs))
	for _, job := range jobs {
		stage := core.PipelineStage{
			ID:     strconv.FormatInt(job.GetID(), 10),
			Name:   job.GetName(),
			Status: stageStatus(job),
		}
		if job.StartedAt != nil && job.CompletedAt != nil {
			stage.Duration = core.FormatDuration(job.GetCompletedAt().Sub(job.GetStartedAt().Time))
		}
		stages = append(stages, stage)
	}
	return stages
}

func stageStatus(job *github.WorkflowJob) core.StageStatus {
	if job.GetStatus() != "completed" {
		return core.StageRunning
	}
	switch job.GetConclusion() {
	case "success":
		return core.StageSuccess
	case "failure", "timed_out":
		return core.StageFailure
	default:
		return core.StagePending
	}
}
