package main

import (
	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/core"
)

// Indicates that the core application services have been initialized.
type appInitializedMsg struct {
	app     *app.App
	cleanup func()
	err     error
}

// Carries a fresh snapshot of the repositories, the summary counters and
// the console of the selected repository.
type dashboardLoadedMsg struct {
	repos  []*core.Repository
	stats  core.DashboardStats
	events []core.LogEntry
	err    error
}

type repoAddedMsg struct {
	repo *core.Repository
	err  error
}

// Reports the outcome of an onboarding or healing request.
type actionDoneMsg struct {
	text string
	err  error
}

type tickMsg struct{}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
