package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/scanner"
	"github.com/sevigo/autoci/mocks"
)

func TestOnboarder_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	store := newStore(t, idleRepo())
	ctx := context.Background()

	fp := scanner.DemoFingerprint()
	stack := pythonStack()
	configs := &core.Configs{Dockerfile: "FROM python:3.12", Workflow: "name: CI"}
	findings := []core.SecurityFinding{
		{Type: core.FindingSecret, Severity: core.SeverityHigh, Title: "AWS key", File: ".env"},
		{Type: core.FindingVulnerability, Severity: core.SeverityLow, Title: "Old express", File: "package.json"},
	}

	gomock.InOrder(
		analyzer.EXPECT().ClassifyStack(gomock.Any(), fp.Files, fp.Readme).Return(stack, nil),
		analyzer.EXPECT().GenerateConfigs(gomock.Any(), stack, gomock.Any()).Return(configs, nil),
		analyzer.EXPECT().ScanSecurity(gomock.Any(), fp.Manifests).Return(findings, nil),
	)

	o := pipeline.NewOnboarder(store, analyzer, scanner.New(), nil, nil,
		pipeline.Options{TimeSavedPerOnboarding: 90}, discardLogger())
	require.NoError(t, o.Run(ctx, "repo-1"))

	repo, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, repo.Status)
	assert.Equal(t, stack, repo.Stack)
	assert.Equal(t, configs, repo.Configs)
	assert.Equal(t, findings, repo.SecurityFindings)
	assert.NotNil(t, repo.LastScanned)
	assert.Equal(t, 90, repo.Metrics.TimeSavedMinutes)

	require.Len(t, repo.OnboardingStages, 4)
	for _, st := range repo.OnboardingStages {
		assert.Equal(t, core.StageSuccess, st.Status, st.ID)
		assert.NotEmpty(t, st.Duration, st.ID)
	}

	assert.Equal(t, []string{
		"Initializing autonomous scanning engine...",
		"Scanning file manifest...",
		"Found 4 critical project files.",
		"AI engine analyzing stack fingerprint...",
		"Identified Python/FastAPI with 98% confidence.",
		"Architecting production configurations...",
		"Dockerfile and CI workflows successfully generated.",
		"Executing security gate scan...",
		"Security scan complete: 2 warnings detected.",
		"Onboarding complete. Autonomy active.",
	}, eventMessages(t, store, "repo-1"))
}

func TestOnboarder_Run_Busy(t *testing.T) {
	for _, status := range []core.RepositoryStatus{core.StatusScanning, core.StatusClassifying, core.StatusGenerating} {
		t.Run(string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := idleRepo()
			repo.Status = status
			store := newStore(t, repo)

			o := pipeline.NewOnboarder(store, mocks.NewMockAnalyzer(ctrl), scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
			err := o.Run(context.Background(), "repo-1")
			assert.ErrorIs(t, err, pipeline.ErrBusy)

			got, err := store.GetRepository(context.Background(), "repo-1")
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
		})
	}
}

func TestOnboarder_Run_RerunsCompletedRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	repo := idleRepo()
	repo.Status = core.StatusFailed
	store := newStore(t, repo)

	analyzer.EXPECT().ClassifyStack(gomock.Any(), gomock.Any(), gomock.Any()).Return(pythonStack(), nil)
	analyzer.EXPECT().GenerateConfigs(gomock.Any(), gomock.Any(), gomock.Any()).Return(&core.Configs{}, nil)
	analyzer.EXPECT().ScanSecurity(gomock.Any(), gomock.Any()).Return([]core.SecurityFinding{}, nil)

	o := pipeline.NewOnboarder(store, analyzer, scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
	require.NoError(t, o.Run(context.Background(), "repo-1"))

	got, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
	assert.Empty(t, got.SecurityFindings)
}

func TestOnboarder_Run_ClassificationFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	store := newStore(t, idleRepo())
	ctx := context.Background()

	analyzer.EXPECT().ClassifyStack(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("quota exceeded"))

	o := pipeline.NewOnboarder(store, analyzer, scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
	err := o.Run(ctx, "repo-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	repo, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, repo.Status)
	assert.Nil(t, repo.Stack)

	statuses := map[string]core.StageStatus{}
	for _, st := range repo.OnboardingStages {
		statuses[st.ID] = st.Status
	}
	assert.Equal(t, map[string]core.StageStatus{
		pipeline.StageScan:     core.StageSuccess,
		pipeline.StageClassify: core.StageFailure,
		pipeline.StageGenerate: core.StagePending,
		pipeline.StageSecurity: core.StagePending,
	}, statuses)

	msgs := eventMessages(t, store, "repo-1")
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Onboarding failed: stack classification failed: quota exceeded", msgs[len(msgs)-1])
}

func TestOnboarder_Run_Checkout(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	store := newStore(t, idleRepo())
	ctx := context.Background()

	cloner := &fakeCloner{files: map[string]string{
		"requirements.txt": "fastapi==0.95.0\n",
		"main.py":          "from fastapi import FastAPI\n",
		"README.md":        "# Nexus\n",
		".autoci.yml":      "custom_instructions:\n  - Use gunicorn\n",
	}}

	analyzer.EXPECT().ClassifyStack(gomock.Any(), []string{".autoci.yml", "README.md", "main.py", "requirements.txt"}, "# Nexus\n").
		Return(pythonStack(), nil)
	analyzer.EXPECT().GenerateConfigs(gomock.Any(), gomock.Any(), []string{"Use gunicorn"}).
		Return(&core.Configs{Dockerfile: "FROM python", Workflow: "name: CI"}, nil)
	analyzer.EXPECT().ScanSecurity(gomock.Any(), []core.FileContent{{Path: "requirements.txt", Content: "fastapi==0.95.0\n"}}).
		Return(nil, nil)

	base := t.TempDir()
	o := pipeline.NewOnboarder(store, analyzer, scanner.New(), cloner, staticTokens("tok"),
		pipeline.Options{CloneEnabled: true, RepoPath: base}, discardLogger())
	require.NoError(t, o.Run(ctx, "repo-1"))

	assert.Equal(t, []string{"https://github.com/nexus-ai/nexus-backend.git"}, cloner.synced)
	assert.Equal(t, "tok", cloner.token)

	repo, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, repo.Status)
	assert.NotEmpty(t, repo.ClonePath)
}

func TestOnboarder_Run_CheckoutFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := newStore(t, idleRepo())

	o := pipeline.NewOnboarder(store, mocks.NewMockAnalyzer(ctrl), scanner.New(),
		&fakeCloner{err: errors.New("authentication required")}, nil,
		pipeline.Options{CloneEnabled: true, RepoPath: t.TempDir()}, discardLogger())
	err := o.Run(context.Background(), "repo-1")
	require.Error(t, err)

	repo, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, repo.Status)
	assert.Equal(t, core.StageFailure, repo.OnboardingStages[0].Status)
}

func TestOnboarder_Run_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := pipeline.NewOnboarder(newStore(t), mocks.NewMockAnalyzer(ctrl), scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
	assert.Error(t, o.Run(context.Background(), "missing"))
}

func TestOnboarder_Run_PanicReleasesRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	analyzer := mocks.NewMockAnalyzer(ctrl)
	store := newStore(t, idleRepo())
	ctx := context.Background()

	analyzer.EXPECT().ClassifyStack(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []string, string) (*core.DetectedStack, error) {
			panic("provider blew up")
		})

	o := pipeline.NewOnboarder(store, analyzer, scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
	err := o.Run(ctx, "repo-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider blew up")

	repo, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, repo.Status)
	assert.Equal(t, core.StageFailure, repo.OnboardingStages[1].Status)

	// The repository can be onboarded again.
	analyzer.EXPECT().ClassifyStack(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("still down"))
	err = o.Run(ctx, "repo-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, pipeline.ErrBusy)
}

func TestOnboarder_RecoverInterrupted(t *testing.T) {
	ctrl := gomock.NewController(t)
	busy := idleRepo()
	busy.Status = core.StatusClassifying
	busy.OnboardingStages = pipeline.OnboardingStages()
	busy.OnboardingStages[0].Status = core.StageSuccess
	busy.OnboardingStages[1].Status = core.StageRunning
	done := idleRepo()
	done.ID, done.FullName, done.Status = "repo-2", "nexus-ai/done", core.StatusCompleted
	store := newStore(t, busy, done)
	ctx := context.Background()

	o := pipeline.NewOnboarder(store, mocks.NewMockAnalyzer(ctrl), scanner.New(), nil, nil, pipeline.Options{}, discardLogger())
	n, err := o.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetRepository(ctx, "repo-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, core.StageFailure, got.OnboardingStages[1].Status)
	assert.Equal(t, []string{"Onboarding failed: " + pipeline.ErrInterrupted.Error()}, eventMessages(t, store, "repo-1"))

	other, err := store.GetRepository(ctx, "repo-2")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, other.Status)
}
