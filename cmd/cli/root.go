package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/wire"
)

var (
	githubToken string
	logOutput   string
)

var rootCmd = &cobra.Command{
	Use:   "autoci",
	Short: "autoci is the command-line interface for AutoCI.",
	Long: `A CLI for managing AutoCI repositories: connect them, run the onboarding
sequence, record CI runs and request self-healing analyses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if githubToken != "" {
			if err := os.Setenv("GITHUB_TOKEN", githubToken); err != nil {
				return fmt.Errorf("failed to set github token: %w", err)
			}
		}
		if os.Getenv("LOG_OUTPUT") == "" {
			if err := os.Setenv("LOG_OUTPUT", logOutput); err != nil {
				return fmt.Errorf("failed to set log output: %w", err)
			}
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used for checkouts")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "stderr", "Log destination when LOG_OUTPUT is unset (stdout, stderr, file, discard)")
}

// withApp initializes the application, runs fn and drains queued jobs before cleanup.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize app services: %w", err)
	}
	defer cleanup()
	defer a.StopJobs()

	return fn(a)
}
