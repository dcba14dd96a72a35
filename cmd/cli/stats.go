package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows the automation summary across all repositories",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			stats, err := a.Service.Stats(ctx)
			if err != nil {
				return err
			}
			if statsJSON {
				return printJSON(stats)
			}

			titleColor.Println("AutoCI Summary")
			printStat("Repositories", fmt.Sprint(stats.Total))
			printStat("Active pipelines", fmt.Sprint(stats.Active))
			printStat("Failed runs", fmt.Sprint(stats.Failures))
			printStat("Security issues", fmt.Sprint(stats.Security))
			printStat("Time saved", formatMinutes(stats.TimeSavedMinutes))
			printStat("AI fix rate", fmt.Sprintf("%.0f%%", stats.FixRate*100))
			return nil
		})
	},
}

var (
	eventsLimit int
	eventsJSON  bool
)

var eventsCmd = &cobra.Command{
	Use:   "events [repo]",
	Short: "Prints the activity console of a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}
			events, err := a.Service.Events(ctx, repo.ID, eventsLimit)
			if err != nil {
				return err
			}
			if eventsJSON {
				return printJSON(events)
			}
			printEvents(events)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output stats as JSON")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Number of entries to print")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output events as JSON")
	rootCmd.AddCommand(statsCmd, eventsCmd)
}

func printStat(label, value string) {
	boldColor.Printf("  %-18s", label)
	fmt.Println(value)
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
