// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These types are shared by the storage, pipeline,
// transport and presentation layers.
package core

import (
	"errors"
	"fmt"
	"time"
)

// RepositoryStatus tracks where a repository is in the onboarding sequence.
type RepositoryStatus string

const (
	StatusIdle        RepositoryStatus = "idle"
	StatusScanning    RepositoryStatus = "scanning"
	StatusClassifying RepositoryStatus = "classifying"
	StatusGenerating  RepositoryStatus = "generating"
	StatusCompleted   RepositoryStatus = "completed"
	StatusFailed      RepositoryStatus = "failed"
)

// IsBusy reports whether an onboarding run currently owns the repository.
func (s RepositoryStatus) IsBusy() bool {
	switch s {
	case StatusScanning, StatusClassifying, StatusGenerating:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s RepositoryStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusScanning, StatusClassifying, StatusGenerating, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// DetectedStack is the AI's classification of a project.
type DetectedStack struct {
	Language   string  `json:"language"`
	Framework  string  `json:"framework"`
	Database   string  `json:"database"`
	EntryPoint string  `json:"entry_point"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Configs holds the generated build configuration for a repository.
type Configs struct {
	Dockerfile string `json:"dockerfile"`
	Workflow   string `json:"workflow"`
}

// Metrics are the per-repository automation counters shown on the dashboard.
type Metrics struct {
	TimeSavedMinutes int `json:"timeSavedMinutes" db:"time_saved_minutes"`
	AIFixSuccesses   int `json:"aiFixSuccesses" db:"ai_fix_successes"`
	AIFixAttempts    int `json:"aiFixAttempts" db:"ai_fix_attempts"`
}

// FixRate returns successes/attempts, or 0 when nothing was attempted.
func (m Metrics) FixRate() float64 {
	if m.AIFixAttempts <= 0 {
		return 0
	}
	return float64(m.AIFixSuccesses) / float64(m.AIFixAttempts)
}

// Repository is a connected source repository and everything AutoCI knows about it.
type Repository struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	FullName         string            `json:"fullName"`
	Owner            string            `json:"owner"`
	URL              string            `json:"url"`
	LastScanned      *time.Time        `json:"lastScanned,omitempty"`
	Status           RepositoryStatus  `json:"status"`
	Stack            *DetectedStack    `json:"stack,omitempty"`
	Configs          *Configs          `json:"configs,omitempty"`
	SecurityFindings []SecurityFinding `json:"securityFindings"`
	PipelineRuns     []PipelineRun     `json:"pipelineRuns"`
	Metrics          Metrics           `json:"metrics"`
	OnboardingStages []PipelineStage   `json:"onboardingStages,omitempty"`
	ClonePath        string            `json:"clonePath,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// FailedRuns counts the repository's runs that ended in failure.
func (r *Repository) FailedRuns() int {
	n := 0
	for _, run := range r.PipelineRuns {
		if run.Status == RunFailure {
			n++
		}
	}
	return n
}

// Validate checks the fields every stored repository must carry.
func (r *Repository) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("repository id is required")
	case r.FullName == "":
		return errors.New("repository full name is required")
	case !r.Status.Valid():
		return fmt.Errorf("unknown repository status %q", r.Status)
	}
	for _, run := range r.PipelineRuns {
		if !run.Status.Valid() {
			return fmt.Errorf("run %s has unknown status %q", run.ID, run.Status)
		}
	}
	return nil
}

// FindRun returns the run with the given ID, or nil.
func (r *Repository) FindRun(runID string) *PipelineRun {
	for i := range r.PipelineRuns {
		if r.PipelineRuns[i].ID == runID {
			return &r.PipelineRuns[i]
		}
	}
	return nil
}

// LogEntry is a single line of a repository's activity console.
type LogEntry struct {
	ID           int64     `json:"id" db:"id"`
	RepositoryID string    `json:"repositoryId" db:"repository_id"`
	Message      string    `json:"message" db:"message"`
	CreatedAt    time.Time `json:"time" db:"created_at"`
}

// Clone returns a deep copy of r so callers can mutate it without sharing state.
func (r *Repository) Clone() *Repository {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastScanned != nil {
		t := *r.LastScanned
		c.LastScanned = &t
	}
	if r.Stack != nil {
		s := *r.Stack
		c.Stack = &s
	}
	if r.Configs != nil {
		cfg := *r.Configs
		c.Configs = &cfg
	}
	c.SecurityFindings = append([]SecurityFinding{}, r.SecurityFindings...)
	c.OnboardingStages = append([]PipelineStage(nil), r.OnboardingStages...)
	c.PipelineRuns = make([]PipelineRun, len(r.PipelineRuns))
	for i, run := range r.PipelineRuns {
		c.PipelineRuns[i] = run.Clone()
	}
	return &c
}
