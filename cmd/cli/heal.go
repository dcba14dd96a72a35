package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
)

var (
	healLogFile string
	healQueue   bool
	healTimeout time.Duration
)

var healCmd = &cobra.Command{
	Use:   "heal [repo] [run-id]",
	Short: "Diagnose a failed CI run and suggest a fix",
	Long: `Send the log of a failed run to the AI and print the root cause and the
suggested change. The analysis is stored on the run.

Examples:
  autoci heal nexus-ai/nexus-backend run-2
  autoci heal --log-file build.log nexus-ai/nexus-backend run-2`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), healTimeout)
		defer cancel()

		log, err := readLogFile(healLogFile)
		if err != nil {
			return err
		}

		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}

			titleColor.Printf("Healing run %s of %s...\n\n", args[1], repo.FullName)
			analysis, err := a.Service.RequestHealing(ctx, repo.ID, args[1], log, !healQueue)
			if err != nil {
				return err
			}
			if analysis == nil {
				warnColor.Println("Healing queued.")
				return nil
			}
			printHealing(analysis)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	healCmd.Flags().StringVar(&healLogFile, "log-file", "", "Analyze this log instead of the stored one (- for stdin)")
	healCmd.Flags().BoolVar(&healQueue, "queue", false, "Queue the analysis on the job dispatcher")
	healCmd.Flags().DurationVar(&healTimeout, "timeout", 5*time.Minute, "Overall timeout")
	rootCmd.AddCommand(healCmd)
}
