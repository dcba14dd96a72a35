package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sevigo/autoci/internal/core"
)

// DemoRepositories returns the two repositories the dashboard ships with in demo
// mode: a fully onboarded Python service and an idle Go service.
func DemoRepositories(now time.Time) []*core.Repository {
	scanned := now.Add(-2 * time.Hour)
	return []*core.Repository{
		{
			ID:          "1",
			Name:        "nexus-backend",
			FullName:    "nexus-ai/nexus-backend",
			Owner:       "nexus-ai",
			URL:         "https://github.com/nexus-ai/nexus-backend",
			LastScanned: &scanned,
			Status:      core.StatusCompleted,
			Stack: &core.DetectedStack{
				Language:   "Python",
				Framework:  "FastAPI",
				Database:   "PostgreSQL",
				EntryPoint: "main.py",
				Confidence: 98,
				Reasoning:  "Detected requirements.txt with fastapi and psycopg2 dependencies.",
			},
			Configs: &core.Configs{
				Dockerfile: demoDockerfile,
				Workflow:   demoWorkflow,
			},
			SecurityFindings: []core.SecurityFinding{
				{
					Type:           core.FindingVulnerability,
					Severity:       core.SeverityMedium,
					Title:          "Outdated FastAPI version",
					File:           "requirements.txt",
					Line:           3,
					Description:    "The pinned fastapi release is affected by a known denial-of-service issue in form parsing.",
					Recommendation: "Upgrade fastapi to the latest patch release.",
				},
			},
			PipelineRuns: []core.PipelineRun{
				{
					ID:        "run-1",
					Timestamp: now.Add(-90 * time.Minute),
					Status:    core.RunSuccess,
					Duration:  "45s",
					Stages:    demoStages(core.StageSuccess),
				},
				{
					ID:        "run-2",
					Timestamp: now.Add(-30 * time.Minute),
					Status:    core.RunFailure,
					Duration:  "12s",
					Log:       `ModuleNotFoundError: No module named "requests"`,
					Stages:    demoStages(core.StageFailure),
				},
			},
			Metrics: core.Metrics{
				TimeSavedMinutes: 120,
				AIFixSuccesses:   1,
				AIFixAttempts:    2,
			},
			CreatedAt: now.Add(-48 * time.Hour),
		},
		{
			ID:               "2",
			Name:             "user-service-go",
			FullName:         "nexus-ai/user-service-go",
			Owner:            "nexus-ai",
			URL:              "https://github.com/nexus-ai/user-service-go",
			Status:           core.StatusIdle,
			SecurityFindings: []core.SecurityFinding{},
			PipelineRuns:     []core.PipelineRun{},
			CreatedAt:        now.Add(-24 * time.Hour),
		},
	}
}

func demoStages(last core.StageStatus) []core.PipelineStage {
	return []core.PipelineStage{
		{ID: "checkout", Name: "Checkout", Status: core.StageSuccess, Duration: "2s"},
		{ID: "install", Name: "Install dependencies", Status: core.StageSuccess, Duration: "8s"},
		{ID: "test", Name: "Test", Status: last, Duration: "2s"},
	}
}

// SeedDemoData inserts the demo repositories when the store is empty.
func SeedDemoData(ctx context.Context, store Store) (int, error) {
	existing, err := store.ListRepositories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	repos := DemoRepositories(time.Now().UTC())
	for _, repo := range repos {
		if err := store.CreateRepository(ctx, repo); err != nil {
			return 0, fmt.Errorf("failed to seed %s: %w", repo.FullName, err)
		}
	}
	return len(repos), nil
}

const demoDockerfile = `FROM python:3.12-slim AS builder
WORKDIR /app
COPY requirements.txt .
RUN pip install --no-cache-dir --prefix=/install -r requirements.txt

FROM python:3.12-slim
WORKDIR /app
RUN useradd --create-home appuser
COPY --from=builder /install /usr/local
COPY . .
USER appuser
EXPOSE 8000
CMD ["uvicorn", "main:app", "--host", "0.0.0.0", "--port", "8000"]
`

const demoWorkflow = `name: CI
on:
  push:
    branches: [main]
  pull_request:
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-python@v5
        with:
          python-version: "3.12"
      - run: pip install -r requirements.txt
      - run: pytest
      - run: docker build -t nexus-backend .
`
