package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/autoci/internal/app"
)

var (
	addName    string
	addOnboard bool
)

var addCmd = &cobra.Command{
	Use:   "add [repo-url]",
	Short: "Connect a GitHub repository",
	Long: `Connect a GitHub repository to AutoCI.

Examples:
  autoci add https://github.com/nexus-ai/nexus-backend
  autoci add --name backend --onboard nexus-ai/nexus-backend`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			repo, err := a.Service.AddRepository(ctx, addName, args[0])
			if err != nil {
				return err
			}
			successColor.Printf("Connected %s ", repo.FullName)
			dimColor.Printf("(%s)\n", repo.ID)

			if !addOnboard {
				return nil
			}
			return onboard(ctx, a, repo.ID, true)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete [repo]",
	Aliases: []string{"rm"},
	Short:   "Disconnect a repository and drop its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		return withApp(ctx, func(a *app.App) error {
			repo, err := resolveRepository(ctx, a.Service, args[0])
			if err != nil {
				return err
			}
			if err := a.Service.DeleteRepository(ctx, repo.ID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", repo.FullName, err)
			}
			successColor.Printf("Removed %s\n", repo.FullName)
			return nil
		})
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	addCmd.Flags().StringVar(&addName, "name", "", "Display name (defaults to the repository name)")
	addCmd.Flags().BoolVar(&addOnboard, "onboard", false, "Run the onboarding sequence right away")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
}
