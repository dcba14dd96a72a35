package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	repos := []*Repository{
		{
			Status:           StatusCompleted,
			SecurityFindings: []SecurityFinding{{Title: "a"}},
			PipelineRuns: []PipelineRun{
				{ID: "run-1", Status: RunSuccess},
				{ID: "run-2", Status: RunFailure},
			},
			Metrics: Metrics{TimeSavedMinutes: 120, AIFixSuccesses: 1, AIFixAttempts: 2},
		},
		{
			Status:  StatusIdle,
			Metrics: Metrics{},
		},
		{
			Status:           StatusCompleted,
			SecurityFindings: []SecurityFinding{{Title: "b"}, {Title: "c"}},
			PipelineRuns:     []PipelineRun{{ID: "run-3", Status: RunFailure}},
			Metrics:          Metrics{TimeSavedMinutes: 30, AIFixSuccesses: 1, AIFixAttempts: 1},
		},
		nil,
	}

	stats := ComputeStats(repos)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 2, stats.Failures)
	assert.Equal(t, 3, stats.Security)
	assert.Equal(t, 150, stats.TimeSavedMinutes)
	assert.InDelta(t, 0.75, stats.FixRate, 1e-9)
}

func TestComputeStats_NoAttempts(t *testing.T) {
	stats := ComputeStats([]*Repository{{Status: StatusIdle}})
	assert.Equal(t, 1, stats.Total)
	assert.Zero(t, stats.FixRate)

	empty := ComputeStats(nil)
	assert.Equal(t, DashboardStats{}, empty)
}

func TestRepositoryStatus_IsBusy(t *testing.T) {
	tests := []struct {
		status RepositoryStatus
		busy   bool
	}{
		{StatusIdle, false},
		{StatusScanning, true},
		{StatusClassifying, true},
		{StatusGenerating, true},
		{StatusCompleted, false},
		{StatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.busy, tt.status.IsBusy())
			assert.True(t, tt.status.Valid())
		})
	}
	assert.False(t, RepositoryStatus("paused").Valid())
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 4, Severity("unknown").Rank())
}
