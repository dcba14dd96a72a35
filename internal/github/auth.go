package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/autoci/internal/config"
)

// ErrNotConfigured is returned when neither a GitHub App nor a token is configured.
var ErrNotConfigured = errors.New("github credentials not configured")

// ClientFactory creates authenticated GitHub clients and checkout tokens.
type ClientFactory interface {
	// ForInstallation returns a client for a GitHub App installation. Without
	// App credentials it falls back to the personal access token.
	ForInstallation(ctx context.Context, installationID int64) (Client, error)
	// Token returns a token that can clone owner/repo, or "" when no
	// credentials are configured.
	Token(ctx context.Context, owner, repo string) (string, error)
}

type clientFactory struct {
	cfg    *config.GitHubConfig
	logger *slog.Logger
}

// NewClientFactory creates a ClientFactory from the GitHub configuration.
func NewClientFactory(cfg *config.GitHubConfig, logger *slog.Logger) ClientFactory {
	return &clientFactory{cfg: cfg, logger: logger}
}

func (f *clientFactory) ForInstallation(ctx context.Context, installationID int64) (Client, error) {
	if f.cfg.AppEnabled() && installationID != 0 {
		client, _, err := CreateInstallationClient(ctx, f.cfg, installationID, f.logger)
		return client, err
	}
	if f.cfg.Token != "" {
		return NewPATClient(ctx, f.cfg.Token, f.logger), nil
	}
	return nil, ErrNotConfigured
}

func (f *clientFactory) Token(ctx context.Context, owner, repo string) (string, error) {
	if f.cfg.Token != "" {
		return f.cfg.Token, nil
	}
	if !f.cfg.AppEnabled() {
		return "", nil
	}

	appClient, err := newAppClient(f.cfg)
	if err != nil {
		return "", err
	}
	installation, _, err := appClient.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to find installation for %s/%s: %w", owner, repo, err)
	}
	return installationToken(ctx, appClient, installation.GetID(), f.logger)
}

// CreateInstallationClient creates a GitHub client that is authenticated as a
// specific application installation. It returns the client and the raw token.
func CreateInstallationClient(ctx context.Context, cfg *config.GitHubConfig, installationID int64, logger *slog.Logger) (Client, string, error) {
	logger.Info("creating GitHub installation client", "installation_id", installationID)

	appClient, err := newAppClient(cfg)
	if err != nil {
		return nil, "", err
	}
	token, err := installationToken(ctx, appClient, installationID, logger)
	if err != nil {
		return nil, "", err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return NewGitHubClient(github.NewClient(tc), logger), token, nil
}

// newAppClient authenticates as the GitHub App itself, which is only good for
// minting installation tokens.
func newAppClient(cfg *config.GitHubConfig) (*github.Client, error) {
	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}
	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, cfg.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	return github.NewClient(&http.Client{Transport: appTransport}), nil
}

func installationToken(ctx context.Context, appClient *github.Client, installationID int64, logger *slog.Logger) (string, error) {
	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create installation token for installation ID %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return "", fmt.Errorf("received an empty installation token")
	}
	logger.Info("created installation token", "installation_id", installationID, "expires_at", token.GetExpiresAt())
	return token.GetToken(), nil
}
