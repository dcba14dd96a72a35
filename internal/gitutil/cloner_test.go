package gitutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloner_HeadSHA(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	sha, err := NewCloner(nil).HeadSHA(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), sha)
}

func TestCloner_HeadSHA_NotARepo(t *testing.T) {
	_, err := NewCloner(nil).HeadSHA(t.TempDir())
	assert.Error(t, err)
}

func TestAuthFor(t *testing.T) {
	assert.Nil(t, authFor(""))

	auth, ok := authFor("ghs_token").(*http.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "x-access-token", auth.Username)
	assert.Equal(t, "ghs_token", auth.Password)
}

func TestWorkspacePath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "nexus-ai", "nexus-backend"), WorkspacePath("data", "nexus-ai", "nexus-backend"))
	assert.Equal(t, filepath.Join("data", "_", "evil"), WorkspacePath("data", "..", "evil"))
	assert.Equal(t, filepath.Join("data", "a_b", "c"), WorkspacePath("data", "a/b", "c"))
}
