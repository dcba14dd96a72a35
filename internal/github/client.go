// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// maxLogBytes caps how much of the end of a job log is kept.
const maxLogBytes = 4 << 20

// Client defines the GitHub operations AutoCI needs: reading workflow jobs
// and their logs, and publishing check runs.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client,ClientFactory
type Client interface {
	ListWorkflowJobs(ctx context.Context, owner, repo string, runID int64) ([]*github.WorkflowJob, error)
	GetJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error)
	CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error)
}

type gitHubClient struct {
	client *github.Client
	// logs downloads pre-signed log archives, which must not carry the API token.
	logs   *http.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{
		client: client,
		logs:   &http.Client{Timeout: time.Minute},
		logger: logger,
	}
}

// NewPATClient creates a new GitHub client authenticated with a Personal Access Token (PAT).
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return NewGitHubClient(github.NewClient(tc), logger)
}

// ListWorkflowJobs returns the jobs of the latest attempt of a workflow run.
// It follows pagination until all jobs are fetched.
func (g *gitHubClient) ListWorkflowJobs(ctx context.Context, owner, repo string, runID int64) ([]*github.WorkflowJob, error) {
	var all []*github.WorkflowJob
	opts := &github.ListWorkflowJobsOptions{
		Filter:      "latest",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		jobs, resp, err := g.client.Actions.ListWorkflowJobs(ctx, owner, repo, runID, opts)
		if err != nil {
			g.logger.Error("failed to list workflow jobs", "owner", owner, "repo", repo, "run_id", runID, "error", err)
			return nil, err
		}
		all = append(all, jobs.Jobs...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// GetJobLogs downloads the plain-text log of a workflow job. Only the last
// maxLogBytes are kept, starting at a line boundary.
func (g *gitHubClient) GetJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	logURL, _, err := g.client.Actions.GetWorkflowJobLogs(ctx, owner, repo, jobID, 4)
	if err != nil {
		g.logger.Error("failed to get job log url", "owner", owner, "repo", repo, "job_id", jobID, "error", err)
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build log request: %w", err)
	}
	resp, err := g.logs.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download job log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download job log: unexpected status %s", resp.Status)
	}
	body, err := readTail(resp.Body, maxLogBytes)
	if err != nil {
		return "", fmt.Errorf("failed to read job log: %w", err)
	}
	return string(body), nil
}

// readTail reads r to the end and returns its last limit bytes. When earlier
// bytes were dropped the partial first line is dropped too.
func readTail(r io.Reader, limit int) ([]byte, error) {
	buf := make([]byte, 0, 2*limit)
	chunk := make([]byte, 32<<10)
	truncated := false
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if len(buf)+n > 2*limit {
				keep := min(len(buf), limit)
				copy(buf, buf[len(buf)-keep:])
				buf = buf[:keep]
				truncated = true
			}
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(buf) > limit {
		buf = buf[len(buf)-limit:]
		truncated = true
	}
	if truncated {
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			buf = buf[i+1:]
		}
	}
	return buf, nil
}

// CreateCheckRun creates a new check run.
func (g *gitHubClient) CreateCheckRun(ctx context.Context, owner, repo string, opts github.CreateCheckRunOptions) (*github.CheckRun, error) {
	checkRun, _, err := g.client.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		g.logger.Error("failed to create check run", "owner", owner, "repo", repo, "error", err)
		return nil, err
	}
	return checkRun, nil
}
