package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/dashboard"
)

var outputJSON bool

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"list"},
	Short:   "Shows all repositories managed by AutoCI",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			repos, err := a.Service.ListRepositories(ctx)
			if err != nil {
				return fmt.Errorf("failed to retrieve repositories: %w", err)
			}

			if outputJSON {
				return printJSON(repos)
			}

			if len(repos) == 0 {
				dimColor.Println("No repositories are currently managed by AutoCI.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tREPOSITORY\tSTATUS\tSTACK\tFINDINGS\tRUNS\tLAST SCANNED")
			for _, repo := range repos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					shortID(repo.ID),
					repo.FullName,
					statusColor(repo.Status).Sprint(repo.Status),
					stackLabel(repo.Stack),
					len(repo.SecurityFindings),
					len(repo.PipelineRuns),
					lastScanned(repo.LastScanned),
				)
			}
			return w.Flush()
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func stackLabel(stack *core.DetectedStack) string {
	if stack == nil {
		return "-"
	}
	return stack.Language + "/" + stack.Framework
}

func lastScanned(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC822)
}

// resolveRepository accepts a repository ID, an ID prefix as printed by
// status, or an owner/name full name.
func resolveRepository(ctx context.Context, svc dashboard.Service, ref string) (*core.Repository, error) {
	if strings.Contains(ref, "/") {
		return svc.FindRepository(ctx, ref)
	}
	repo, err := svc.GetRepository(ctx, ref)
	if err == nil {
		return repo, nil
	}

	repos, listErr := svc.ListRepositories(ctx)
	if listErr != nil {
		return nil, err
	}
	var match *core.Repository
	for _, r := range repos {
		if strings.HasPrefix(r.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("repository reference %q is ambiguous", ref)
			}
			match = r
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}
