package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/core"
)

var (
	runStatus   string
	runDuration string
	runLogFile  string
	runID       string
	runsJSON    bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List and record CI runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list [repo]",
	Short: "List the CI runs of a repository, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}
			if runsJSON {
				return printJSON(repo.PipelineRuns)
			}
			if len(repo.PipelineRuns) == 0 {
				dimColor.Printf("No runs recorded for %s.\n", repo.FullName)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTATUS\tDURATION\tTIME\tHEALING")
			for _, run := range repo.PipelineRuns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					runColor(run.Status).Sprint(run.Status),
					run.Duration,
					run.Timestamp.Local().Format(time.RFC822),
					healingLabel(run),
				)
			}
			return w.Flush()
		})
	},
}

var runsRecordCmd = &cobra.Command{
	Use:   "record [repo]",
	Short: "Record a CI run for a repository",
	Long: `Record a CI run for a repository. A failed run with a log is picked up by
self-healing when PIPELINE_AUTO_HEAL is enabled.

Examples:
  autoci runs record nexus-ai/nexus-backend --status success --duration 2m5s
  autoci runs record nexus-ai/nexus-backend --status failure --log-file build.log`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		log, err := readLogFile(runLogFile)
		if err != nil {
			return err
		}

		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}
			run, err := a.Service.RecordRun(ctx, repo.ID, core.PipelineRun{
				ID:       runID,
				Status:   core.RunStatus(runStatus),
				Duration: runDuration,
				Log:      log,
			})
			if err != nil {
				return err
			}
			runColor(run.Status).Printf("Recorded %s run ", run.Status)
			fmt.Println(run.ID)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "Output runs as JSON")

	runsRecordCmd.Flags().StringVar(&runStatus, "status", "", "Run outcome: success or failure")
	runsRecordCmd.Flags().StringVar(&runDuration, "duration", "", "Run duration, e.g. 2m5s")
	runsRecordCmd.Flags().StringVar(&runLogFile, "log-file", "", "Build log file, or - for stdin")
	runsRecordCmd.Flags().StringVar(&runID, "id", "", "Run ID (generated when empty)")
	_ = runsRecordCmd.MarkFlagRequired("status")

	runsCmd.AddCommand(runsListCmd, runsRecordCmd)
	rootCmd.AddCommand(runsCmd)
}

func healingLabel(run core.PipelineRun) string {
	switch {
	case run.Healing == nil:
		return "-"
	case run.HealingResolved:
		return "resolved"
	default:
		return fmt.Sprintf("%s (%.0f%%)", run.Healing.FixType, run.Healing.Confidence)
	}
}

func readLogFile(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read log from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read log file: %w", err)
		}
		return string(data), nil
	}
}
