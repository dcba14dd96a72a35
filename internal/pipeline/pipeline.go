// Package pipeline runs repository onboarding, build-failure healing and CI
// run bookkeeping on top of the store and the AI analyzer.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sevigo/autoci/internal/storage"
)

var (
	// ErrBusy is returned when an onboarding run already owns the repository.
	ErrBusy = errors.New("repository is busy")
	// ErrStackNotDetected is returned when healing is requested before onboarding detected a stack.
	ErrStackNotDetected = errors.New("stack not detected, onboard the repository first")
	// ErrRunNotFailed is returned when healing is requested for a run that did not fail.
	ErrRunNotFailed = errors.New("run did not fail")
	// ErrEmptyLog is returned when a failed run has no log to analyze.
	ErrEmptyLog = errors.New("run has no log to analyze")
	// ErrInvalidRun is returned for runs with an unknown status.
	ErrInvalidRun = errors.New("invalid run")
	// ErrInterrupted is recorded for onboardings cut short by a process exit.
	ErrInterrupted = errors.New("onboarding interrupted by a restart")
)

// Options tune the pipeline.
type Options struct {
	// StageDelay paces the onboarding sequence so the console stays readable.
	StageDelay   time.Duration
	CloneEnabled bool
	RepoPath     string
	AutoHeal     bool
	// Minutes credited per completed onboarding and per resolved fix.
	TimeSavedPerOnboarding int
	TimeSavedPerFix        int
}

// TokenSource provides a token for checking out owner/repo. Implementations may
// return an empty token for public repositories.
type TokenSource interface {
	Token(ctx context.Context, owner, repo string) (string, error)
}

// eventLog writes activity console lines. Write failures are only logged.
type eventLog struct {
	store  storage.Store
	logger *slog.Logger
}

func (e eventLog) write(ctx context.Context, repoID, message string) {
	if _, err := e.store.AppendEvent(ctx, repoID, message); err != nil {
		e.logger.Warn("failed to append event", "repo_id", repoID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
