package gitutil

import (
	"fmt"
	"regexp"
	"strings"
)

var repoURLRegex = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*://)?(?:[^@/]+@)?([^/:]+)[/:]([^/]+)/([^/]+)(?:/.*)?$`)

// ParseRepositoryURL extracts owner and repository name from a Git hosting URL.
// Supported forms include https://github.com/{owner}/{repo}, github.com/{owner}/{repo}.git,
// git@github.com:{owner}/{repo}.git and deep links such as .../pull/12 or .../tree/main.
func ParseRepositoryURL(rawURL string) (owner, repo string, err error) {
	u := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")

	matches := repoURLRegex.FindStringSubmatch(u)
	if len(matches) != 4 {
		return "", "", fmt.Errorf("invalid repository URL format: %s", rawURL)
	}
	if !strings.Contains(matches[1], ".") {
		return "", "", fmt.Errorf("invalid repository URL host: %s", rawURL)
	}

	owner = matches[2]
	repo = strings.TrimSuffix(matches[3], ".git")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository URL format: %s", rawURL)
	}
	return owner, repo, nil
}

// CloneURL normalizes a repository URL into an HTTPS clone URL.
func CloneURL(rawURL string) (string, error) {
	u := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")
	matches := repoURLRegex.FindStringSubmatch(u)
	if len(matches) != 4 {
		return "", fmt.Errorf("invalid repository URL format: %s", rawURL)
	}
	owner, repo, err := ParseRepositoryURL(rawURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/%s/%s.git", matches[1], owner, repo), nil
}
