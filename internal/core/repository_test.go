package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepositoryValidate(t *testing.T) {
	valid := func() *Repository {
		return &Repository{ID: "1", FullName: "nexus-ai/nexus-backend", Status: StatusIdle}
	}

	tests := []struct {
		name    string
		mutate  func(r *Repository)
		wantErr string
	}{
		{name: "valid", mutate: func(*Repository) {}},
		{name: "missing id", mutate: func(r *Repository) { r.ID = "" }, wantErr: "id is required"},
		{name: "missing full name", mutate: func(r *Repository) { r.FullName = "" }, wantErr: "full name is required"},
		{name: "unknown status", mutate: func(r *Repository) { r.Status = "paused" }, wantErr: `unknown repository status "paused"`},
		{
			name:    "unknown run status",
			mutate:  func(r *Repository) { r.PipelineRuns = []PipelineRun{{ID: "run-1", Status: "cancelled"}} },
			wantErr: "run run-1 has unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIsBusy(t *testing.T) {
	for _, s := range []RepositoryStatus{StatusScanning, StatusClassifying, StatusGenerating} {
		assert.True(t, s.IsBusy(), s)
	}
	for _, s := range []RepositoryStatus{StatusIdle, StatusCompleted, StatusFailed} {
		assert.False(t, s.IsBusy(), s)
	}
}
