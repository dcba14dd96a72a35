package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/storage"
)

var (
	onboardWait    bool
	onboardTimeout time.Duration
)

var onboardCmd = &cobra.Command{
	Use:   "onboard [repo]",
	Short: "Run the onboarding sequence for a repository",
	Long: `Scan the repository, detect its stack, generate a Dockerfile and CI workflow
and run the security gate.

The repository may be given by ID, ID prefix or owner/name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), onboardTimeout)
		defer cancel()

		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}
			return onboard(ctx, a, repo.ID, onboardWait)
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	onboardCmd.Flags().BoolVar(&onboardWait, "wait", false, "Wait for the sequence and print the activity console")
	onboardCmd.Flags().DurationVar(&onboardTimeout, "timeout", 15*time.Minute, "Overall timeout")
	rootCmd.AddCommand(onboardCmd)
}

func onboard(ctx context.Context, a *app.App, repoID string, wait bool) error {
	if !wait {
		if err := a.Service.StartOnboarding(ctx, repoID); err != nil {
			return err
		}
		warnColor.Println("Onboarding queued.")
		return nil
	}

	start := time.Now()
	titleColor.Println("Onboarding...")
	runErr := a.Service.Onboard(ctx, repoID)

	events, err := a.Service.Events(ctx, repoID, storage.DefaultEventLimit)
	if err == nil {
		printEvents(events)
	}
	if runErr != nil {
		return fmt.Errorf("onboarding failed: %w", runErr)
	}

	repo, err := a.Service.GetRepository(ctx, repoID)
	if err != nil {
		return err
	}
	fmt.Println()
	successColor.Printf("Completed in %s\n", time.Since(start).Round(time.Millisecond))
	boldColor.Print("  Stack:     ")
	fmt.Println(stackLabel(repo.Stack))
	boldColor.Print("  Findings:  ")
	fmt.Println(len(repo.SecurityFindings))
	for _, f := range repo.SecurityFindings {
		fmt.Print("    ")
		printSeverity(f.Severity)
		fmt.Printf(" %s ", f.Title)
		dimColor.Printf("(%s)\n", f.File)
	}
	return nil
}

func printEvents(events []core.LogEntry) {
	for _, e := range events {
		dimColor.Printf("[%s] ", e.CreatedAt.Local().Format("15:04:05"))
		fmt.Println(e.Message)
	}
}
