package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/storage"
	"github.com/sevigo/autoci/mocks"
)

func requestsFix() *core.HealingAnalysis {
	return &core.HealingAnalysis{
		RootCause:   "Missing requests dependency",
		FixType:     core.FixDependency,
		Confidence:  95,
		Explanation: "requests is imported but not declared.",
		SuggestedFix: core.SuggestedFix{
			Type:   "add_line",
			Target: "requirements.txt",
			Change: "requests==2.32.3",
		},
	}
}

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) NotifyHealing(_ context.Context, _ *core.Repository, run *core.PipelineRun) error {
	n.calls = append(n.calls, run.ID)
	return nil
}

func TestHealer_Heal(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := failedRepo(time.Now())
	repo.ClonePath = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo.ClonePath, "requirements.txt"), []byte("fastapi==0.95.0\nuvicorn\n"), 0o600))
	store := newStore(t, repo)
	ctx := context.Background()

	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), `ModuleNotFoundError: No module named "requests"`, pythonStack()).
		Return(requestsFix(), nil)

	notifier := &recordingNotifier{}
	h := pipeline.NewHealer(store, analyzer, notifier, discardLogger())
	analysis, err := h.Heal(ctx, "repo-1", "run-bad", "")
	require.NoError(t, err)
	assert.Equal(t, "fastapi==0.95.0\nuvicorn", analysis.SuggestedFix.Before)

	got, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	run := got.FindRun("run-bad")
	require.NotNil(t, run)
	require.NotNil(t, run.Healing)
	assert.Equal(t, "Missing requests dependency", run.Healing.RootCause)
	assert.False(t, run.HealingResolved)
	assert.Equal(t, 1, got.Metrics.AIFixAttempts)

	assert.Equal(t, []string{
		"Self-healing sequence initiated...",
		"Root cause identified: Missing requests dependency",
	}, eventMessages(t, store, "repo-1"))
	assert.Empty(t, notifier.calls, "runs without a head SHA are not published")
}

func TestHealer_Heal_LogOverrideAndNotify(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := failedRepo(time.Now())
	repo.PipelineRuns[1].Log = ""
	repo.PipelineRuns[1].HeadSHA = "deadbeef"
	repo.PipelineRuns[1].InstallationID = 42
	store := newStore(t, repo)

	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), "custom log", gomock.Any()).Return(requestsFix(), nil)

	notifier := &recordingNotifier{}
	h := pipeline.NewHealer(store, analyzer, notifier, discardLogger())
	analysis, err := h.Heal(context.Background(), "repo-1", "run-bad", "custom log")
	require.NoError(t, err)
	assert.Empty(t, analysis.SuggestedFix.Before)
	assert.Equal(t, []string{"run-bad"}, notifier.calls)

	got, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, "custom log", got.FindRun("run-bad").Log)
}

func TestHealer_Heal_Preconditions(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name    string
		mutate  func(r *core.Repository)
		runID   string
		wantErr error
	}{
		{
			name:    "no stack",
			mutate:  func(r *core.Repository) { r.Stack = nil },
			runID:   "run-bad",
			wantErr: pipeline.ErrStackNotDetected,
		},
		{
			name:    "unknown run",
			runID:   "run-404",
			wantErr: storage.ErrNotFound,
		},
		{
			name:    "successful run",
			runID:   "run-ok",
			wantErr: pipeline.ErrRunNotFailed,
		},
		{
			name:    "empty log",
			mutate:  func(r *core.Repository) { r.PipelineRuns[1].Log = "" },
			runID:   "run-bad",
			wantErr: pipeline.ErrEmptyLog,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := failedRepo(base)
			if tc.mutate != nil {
				tc.mutate(repo)
			}
			store := newStore(t, repo)
			h := pipeline.NewHealer(store, mocks.NewMockAnalyzer(ctrl), nil, discardLogger())

			_, err := h.Heal(context.Background(), "repo-1", tc.runID, "")
			assert.ErrorIs(t, err, tc.wantErr)

			_, err = h.Validate(context.Background(), "repo-1", tc.runID, "")
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, eventMessages(t, store, "repo-1"))
		})
	}
}

func TestHealer_Heal_AnalysisFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	store := newStore(t, failedRepo(time.Now()))

	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("model overloaded"))

	h := pipeline.NewHealer(store, analyzer, nil, discardLogger())
	_, err := h.Heal(context.Background(), "repo-1", "run-bad", "")
	require.Error(t, err)

	assert.Equal(t, []string{
		"Self-healing sequence initiated...",
		"Healing analysis failed: model overloaded",
	}, eventMessages(t, store, "repo-1"))

	got, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Nil(t, got.FindRun("run-bad").Healing)
	assert.Zero(t, got.Metrics.AIFixAttempts)
}

func TestHealer_Heal_TargetOutsideWorkspace(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := failedRepo(time.Now())
	repo.ClonePath = t.TempDir()
	store := newStore(t, repo)

	fix := requestsFix()
	fix.SuggestedFix.Target = "../../etc/passwd"
	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), gomock.Any(), gomock.Any()).Return(fix, nil)

	h := pipeline.NewHealer(store, analyzer, nil, discardLogger())
	analysis, err := h.Heal(context.Background(), "repo-1", "run-bad", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.SuggestedFix.Before)
}

func TestHealer_Heal_SymlinkedTargetOutsideWorkspace(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := failedRepo(time.Now())
	repo.ClonePath = t.TempDir()
	secret := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(secret, []byte("AWS_SECRET=hunter2\n"), 0o600))
	if err := os.Symlink(secret, filepath.Join(repo.ClonePath, "requirements.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	store := newStore(t, repo)

	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), gomock.Any(), gomock.Any()).Return(requestsFix(), nil)

	h := pipeline.NewHealer(store, analyzer, nil, discardLogger())
	analysis, err := h.Heal(context.Background(), "repo-1", "run-bad", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.SuggestedFix.Before)
}

func TestHealer_Heal_SymlinkInsideWorkspace(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := failedRepo(time.Now())
	repo.ClonePath = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo.ClonePath, "requirements.in"), []byte("fastapi\n"), 0o600))
	if err := os.Symlink("requirements.in", filepath.Join(repo.ClonePath, "requirements.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	store := newStore(t, repo)

	analyzer.EXPECT().AnalyzeBuildFailure(gomock.Any(), gomock.Any(), gomock.Any()).Return(requestsFix(), nil)

	h := pipeline.NewHealer(store, analyzer, nil, discardLogger())
	analysis, err := h.Heal(context.Background(), "repo-1", "run-bad", "")
	require.NoError(t, err)
	assert.Equal(t, "fastapi", analysis.SuggestedFix.Before)
}
