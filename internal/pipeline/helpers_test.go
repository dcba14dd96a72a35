package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, repos ...*core.Repository) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	for _, r := range repos {
		require.NoError(t, store.CreateRepository(context.Background(), r))
	}
	return store
}

func idleRepo() *core.Repository {
	return &core.Repository{
		ID:       "repo-1",
		Name:     "nexus-backend",
		FullName: "nexus-ai/nexus-backend",
		Owner:    "nexus-ai",
		URL:      "https://github.com/nexus-ai/nexus-backend",
		Status:   core.StatusIdle,
	}
}

func pythonStack() *core.DetectedStack {
	return &core.DetectedStack{
		Language:   "Python",
		Framework:  "FastAPI",
		Database:   "PostgreSQL",
		EntryPoint: "main.py",
		Confidence: 98,
		Reasoning:  "requirements.txt lists fastapi",
	}
}

// failedRepo is an onboarded repository with one failed run at base.
func failedRepo(base time.Time) *core.Repository {
	r := idleRepo()
	r.Status = core.StatusCompleted
	r.Stack = pythonStack()
	r.PipelineRuns = []core.PipelineRun{
		{ID: "run-ok", Timestamp: base.Add(-time.Hour), Status: core.RunSuccess, Duration: "45s"},
		{ID: "run-bad", Timestamp: base, Status: core.RunFailure, Duration: "12s", Log: `ModuleNotFoundError: No module named "requests"`},
	}
	return r
}

func eventMessages(t *testing.T, store storage.Store, repoID string) []string {
	t.Helper()
	events, err := store.ListEvents(context.Background(), repoID, 0)
	require.NoError(t, err)
	msgs := make([]string, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// fakeCloner materializes a fixed file set instead of cloning.
type fakeCloner struct {
	files  map[string]string
	err    error
	synced []string
	token  string
}

func (f *fakeCloner) Sync(_ context.Context, repoURL, path, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.synced = append(f.synced, repoURL)
	f.token = token
	for name, content := range f.files {
		full := filepath.Join(path, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			return "", err
		}
	}
	return "abc123", nil
}

func (f *fakeCloner) HeadSHA(string) (string, error) {
	return "abc123", nil
}

type staticTokens string

func (s staticTokens) Token(context.Context, string, string) (string, error) {
	return string(s), nil
}
