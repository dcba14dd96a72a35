// Package app holds the assembled AutoCI components and their lifecycle.
package app

import (
	"context"
	"log/slog"

	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/core"
	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/server"
	"github.com/sevigo/autoci/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	Cfg        *config.Config
	Store      storage.Store
	Service    dashboard.Service
	server     *server.Server
	dispatcher core.JobDispatcher
	onboarder  *pipeline.Onboarder
	Logger     *slog.Logger
}

// NewApp bundles the application components.
func NewApp(
	ctx context.Context,
	cfg *config.Config,
	store storage.Store,
	svc dashboard.Service,
	srv *server.Server,
	dispatcher core.JobDispatcher,
	onboarder *pipeline.Onboarder,
	logger *slog.Logger,
) *App {
	return &App{
		ctx:        ctx,
		Cfg:        cfg,
		Store:      store,
		Service:    svc,
		server:     srv,
		dispatcher: dispatcher,
		onboarder:  onboarder,
		Logger:     logger,
	}
}

// Start resets onboardings left busy by a previous process and runs the HTTP server.
func (a *App) Start() error {
	a.Logger.Info("starting AutoCI",
		"server_port", a.Cfg.Server.Port,
		"db_driver", a.Cfg.Database.Driver,
		"ai_provider", a.Cfg.AI.Provider,
		"max_workers", a.Cfg.Pipeline.MaxWorkers)

	if err := a.RecoverInterrupted(); err != nil {
		a.Logger.Error("failed to reset interrupted onboardings", "error", err)
	}

	err := a.server.Start()
	if err != nil {
		a.Logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// RecoverInterrupted marks repositories left mid-onboarding as failed. Only the
// server calls it: a command-line tool may run next to a server that owns
// those onboardings.
func (a *App) RecoverInterrupted() error {
	n, err := a.onboarder.RecoverInterrupted(a.ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		a.Logger.Warn("reset interrupted onboardings", "count", n)
	}
	return nil
}

// Stop shuts down the HTTP server and waits for queued jobs.
// The store is closed by the injector's cleanup.
func (a *App) Stop() error {
	a.Logger.Info("shutting down AutoCI services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.Logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.StopJobs()

	if serverErr != nil {
		a.Logger.Error("AutoCI stopped with errors", "error", serverErr)
		return serverErr
	}
	a.Logger.Info("AutoCI stopped successfully")
	return nil
}

// StopJobs drains the job queue. Command-line tools call it instead of Stop.
func (a *App) StopJobs() {
	a.dispatcher.Stop()
}
