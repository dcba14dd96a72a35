package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "Valid HTTPS URL",
			url:       "https://github.com/nexus-ai/nexus-backend",
			wantOwner: "nexus-ai",
			wantRepo:  "nexus-backend",
		},
		{
			name:      "Valid URL without scheme",
			url:       "github.com/nexus-ai/user-service-go",
			wantOwner: "nexus-ai",
			wantRepo:  "user-service-go",
		},
		{
			name:      "URL with .git suffix and trailing slash",
			url:       "https://github.com/nexus-ai/nexus-backend.git/",
			wantOwner: "nexus-ai",
			wantRepo:  "nexus-backend",
		},
		{
			name:      "SSH URL",
			url:       "git@github.com:nexus-ai/nexus-backend.git",
			wantOwner: "nexus-ai",
			wantRepo:  "nexus-backend",
		},
		{
			name:      "Pull request deep link",
			url:       "https://github.com/sevigo/autoci/pull/123",
			wantOwner: "sevigo",
			wantRepo:  "autoci",
		},
		{
			name:    "Missing repository",
			url:     "https://github.com/nexus-ai",
			wantErr: true,
		},
		{
			name:    "Not a URL",
			url:     "nexus-backend",
			wantErr: true,
		},
		{
			name:    "Empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepositoryURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestCloneURL(t *testing.T) {
	got, err := CloneURL("git@github.com:nexus-ai/nexus-backend.git")
	assert.NoError(t, err)
	assert.Equal(t, "https://github.com/nexus-ai/nexus-backend.git", got)

	got, err = CloneURL("github.com/nexus-ai/user-service-go/tree/main")
	assert.NoError(t, err)
	assert.Equal(t, "https://github.com/nexus-ai/user-service-go.git", got)

	_, err = CloneURL("not a url")
	assert.Error(t, err)
}
