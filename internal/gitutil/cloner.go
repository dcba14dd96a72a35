// Package gitutil checks repositories out into the local workspace.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Cloner keeps a shallow working copy of a repository up to date.
type Cloner interface {
	// Sync clones repoURL into path, or pulls when a checkout already exists.
	// It returns the HEAD commit SHA after syncing.
	Sync(ctx context.Context, repoURL, path, token string) (string, error)
	HeadSHA(path string) (string, error)
}

type cloner struct {
	logger *slog.Logger
}

// NewCloner returns a go-git based Cloner.
func NewCloner(logger *slog.Logger) Cloner {
	if logger == nil {
		logger = slog.Default()
	}
	return &cloner{logger: logger}
}

func (c *cloner) Sync(ctx context.Context, repoURL, path, token string) (string, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		err := c.pull(ctx, path, token)
		if err == nil {
			return c.HeadSHA(path)
		}
		c.logger.WarnContext(ctx, "pull failed, re-cloning", "path", path, "error", err)
		if err := os.RemoveAll(path); err != nil {
			return "", fmt.Errorf("failed to remove stale checkout: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}

	c.logger.InfoContext(ctx, "cloning repository", "url", repoURL, "path", path)
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:          repoURL,
		Auth:         authFor(token),
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return "", fmt.Errorf("git clone failed: %w", err)
	}
	return c.HeadSHA(path)
}

func (c *cloner) pull(ctx context.Context, path, token string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	c.logger.InfoContext(ctx, "pulling latest changes", "path", path)
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:   "origin",
		Auth:         authFor(token),
		Depth:        1,
		SingleBranch: true,
		Force:        true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}

// HeadSHA returns the commit SHA that HEAD points to.
func (c *cloner) HeadSHA(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// authFor uses the installation-token convention accepted by GitHub over HTTPS.
func authFor(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: token}
}

// WorkspacePath returns where owner/repo is checked out under base.
func WorkspacePath(base, owner, repo string) string {
	return filepath.Join(base, sanitizeSegment(owner), sanitizeSegment(repo))
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}
	return s
}
