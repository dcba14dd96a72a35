package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/wire"
)

const (
	refreshInterval = 2 * time.Second
	consoleLines    = 8
)

func initializeAppCmd() tea.Cmd {
	return func() tea.Msg {
		a, cleanup, err := wire.InitializeApp(context.Background())
		if err != nil {
			return appInitializedMsg{err: err}
		}
		return appInitializedMsg{app: a, cleanup: cleanup}
	}
}

func loadDashboardCmd(a *app.App, selectedID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		repos, err := a.Service.ListRepositories(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}
		stats, err := a.Service.Stats(ctx)
		if err != nil {
			return dashboardLoadedMsg{err: err}
		}

		if selectedID == "" && len(repos) > 0 {
			selectedID = repos[0].ID
		}
		msg := dashboardLoadedMsg{repos: repos, stats: stats}
		if selectedID != "" {
			msg.events, err = a.Service.Events(ctx, selectedID, consoleLines)
			if err != nil {
				a.Logger.Warn("failed to load console", "repo_id", selectedID, "error", err)
			}
		}
		return msg
	}
}

func addRepoCmd(a *app.App, name, url string) tea.Cmd {
	return func() tea.Msg {
		repo, err := a.Service.AddRepository(context.Background(), name, url)
		return repoAddedMsg{repo: repo, err: err}
	}
}

func onboardCmd(a *app.App, repoID, fullName string) tea.Cmd {
	return func() tea.Msg {
		if err := a.Service.StartOnboarding(context.Background(), repoID); err != nil {
			return actionDoneMsg{err: fmt.Errorf("onboarding %s: %w", fullName, err)}
		}
		return actionDoneMsg{text: fmt.Sprintf("Onboarding queued for %s", fullName)}
	}
}

func healCmd(a *app.App, repoID, runID string) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.Service.RequestHealing(context.Background(), repoID, runID, "", false); err != nil {
			return actionDoneMsg{err: fmt.Errorf("healing run %s: %w", runID, err)}
		}
		return actionDoneMsg{text: fmt.Sprintf("Self-healing queued for run %s", runID)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
