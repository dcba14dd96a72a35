package github_test

import (
	"context"
	"testing"

	gh "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/github"
	"github.com/sevigo/autoci/mocks"
)

func healing() *core.HealingAnalysis {
	return &core.HealingAnalysis{
		RootCause:   "requests is not declared in requirements.txt",
		FixType:     core.FixDependency,
		Confidence:  94,
		Explanation: "The test suite imports requests, which is only installed locally.",
		SuggestedFix: core.SuggestedFix{
			Type:   "add_line",
			Target: "requirements.txt",
			Change: "requests==2.32.3",
			Before: "fastapi==0.95.0",
		},
	}
}

func TestFormatHealingSummary(t *testing.T) {
	got := github.FormatHealingSummary(healing())

	for _, want := range []string{
		"### 📦 Root cause",
		"requests is not declared in requirements.txt",
		"| dependency | 94% |",
		"#### Suggested fix (`add_line` in `requirements.txt`)",
		"**Before**\n\n```\nfastapi==0.95.0\n```",
		"**After**\n\n```\nrequests==2.32.3\n```",
	} {
		assert.Contains(t, got, want)
	}
}

func TestFormatHealingSummary_NoBefore(t *testing.T) {
	h := healing()
	h.SuggestedFix.Before = ""
	h.SuggestedFix.Change = "run: |\n  ```nested```"

	got := github.FormatHealingSummary(h)
	assert.NotContains(t, got, "**Before**")
	assert.Contains(t, got, "````\nrun: |\n  ```nested```\n````")
}

func TestHealingPublisher_NotifyHealing(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := mocks.NewMockClientFactory(ctrl)
	client := mocks.NewMockClient(ctrl)

	repo := &core.Repository{Owner: "nexus-ai", Name: "nexus-backend", FullName: "nexus-ai/nexus-backend"}
	run := &core.PipelineRun{ID: "777", HeadSHA: "abc123", InstallationID: 42, Healing: healing()}

	factory.EXPECT().ForInstallation(gomock.Any(), int64(42)).Return(client, nil)
	client.EXPECT().CreateCheckRun(gomock.Any(), "nexus-ai", "nexus-backend", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, opts gh.CreateCheckRunOptions) (*gh.CheckRun, error) {
			assert.Equal(t, github.HealingCheckName, opts.Name)
			assert.Equal(t, "abc123", opts.HeadSHA)
			assert.Equal(t, "completed", opts.GetStatus())
			assert.Equal(t, "neutral", opts.GetConclusion())
			require.NotNil(t, opts.Output)
			assert.Equal(t, "Root cause: requests is not declared in requirements.txt", opts.Output.GetTitle())
			assert.Contains(t, opts.Output.GetSummary(), "requests==2.32.3")
			return &gh.CheckRun{ID: gh.Ptr(int64(1))}, nil
		})

	p := github.NewHealingPublisher(factory, testLogger())
	require.NoError(t, p.NotifyHealing(context.Background(), repo, run))
}

func TestHealingPublisher_RequiresAnalysis(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := github.NewHealingPublisher(mocks.NewMockClientFactory(ctrl), testLogger())
	err := p.NotifyHealing(context.Background(), &core.Repository{}, &core.PipelineRun{ID: "1"})
	assert.Error(t, err)
}
