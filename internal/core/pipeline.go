package core

import (
	"fmt"
	"time"
)

// StageStatus is the state of a single pipeline stage.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageSuccess StageStatus = "success"
	StageFailure StageStatus = "failure"
)

// PipelineStage is one step of an onboarding run or a CI run.
type PipelineStage struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Duration string      `json:"duration,omitempty"`
}

// RunStatus is the outcome of a CI run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
)

// Valid reports whether s is a known run outcome.
func (s RunStatus) Valid() bool {
	return s == RunSuccess || s == RunFailure
}

// PipelineRun is a CI run recorded for a repository.
type PipelineRun struct {
	ID              string           `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	Status          RunStatus        `json:"status"`
	Duration        string           `json:"duration"`
	Log             string           `json:"log,omitempty"`
	Stages          []PipelineStage  `json:"stages"`
	Healing         *HealingAnalysis `json:"healing,omitempty"`
	HealingResolved bool             `json:"healingResolved"`
	HeadSHA         string           `json:"headSha,omitempty"`
	InstallationID  int64            `json:"installationId,omitempty"`
	ExternalID      int64            `json:"externalId,omitempty"`
}

// FormatDuration renders a duration the way run and stage durations are displayed ("45s", "2m5s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Second).String()
}

// Clone returns a deep copy of the run.
func (r PipelineRun) Clone() PipelineRun {
	c := r
	c.Stages = append([]PipelineStage{}, r.Stages...)
	if r.Healing != nil {
		h := *r.Healing
		c.Healing = &h
	}
	return c
}
