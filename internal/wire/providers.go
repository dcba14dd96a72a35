package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/wire"
	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/db"
	"github.com/sevigo/autoci/internal/github"
	"github.com/sevigo/autoci/internal/gitutil"
	"github.com/sevigo/autoci/internal/jobs"
	"github.com/sevigo/autoci/internal/llm"
	"github.com/sevigo/autoci/internal/logger"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/scanner"
	"github.com/sevigo/autoci/internal/server"
	"github.com/sevigo/autoci/internal/storage"
)

// AppSet holds every provider needed to build an App.
var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	provideLoggerConfig,
	provideSlogLogger,
	provideStore,
	llm.NewPromptManager,
	provideAIConfig,
	llm.NewGenerator,
	llm.NewAnalyzer,
	scanner.New,
	gitutil.NewCloner,
	provideGitHubConfig,
	github.NewClientFactory,
	provideTokenSource,
	github.NewHealingPublisher,
	provideHealingNotifier,
	providePipelineOptions,
	providePipelineConfig,
	pipeline.NewOnboarder,
	pipeline.NewHealer,
	pipeline.NewRunRecorder,
	jobs.NewOnboardingJob,
	jobs.NewHealingJob,
	jobs.NewRegistry,
	jobs.NewDispatcher,
	dashboard.NewService,
	provideRunSink,
	github.NewWorkflowIngestor,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideSlogLogger(cfg logger.Config) *slog.Logger {
	return logger.NewLogger(cfg, nil)
}

// provideStore opens the configured repository store. The memory store is
// seeded with demo data when requested.
func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := storage.NewMemoryStore()
		if cfg.Database.SeedDemoData {
			n, err := storage.SeedDemoData(ctx, store)
			if err != nil {
				return nil, func() {}, fmt.Errorf("failed to seed demo data: %w", err)
			}
			logger.Info("seeded demo repositories", "count", n)
		}
		return store, func() {}, nil
	case config.DriverPostgres:
		conn, cleanup, err := db.NewDatabase(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, cleanup, err
		}
		return storage.NewPostgresStore(conn.DB), cleanup, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func provideAIConfig(cfg *config.Config) *config.AIConfig {
	return &cfg.AI
}

func provideGitHubConfig(cfg *config.Config) *config.GitHubConfig {
	return &cfg.GitHub
}

func providePipelineConfig(cfg *config.Config) *config.PipelineConfig {
	return &cfg.Pipeline
}

func providePipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		StageDelay:             cfg.Pipeline.StageDelay,
		CloneEnabled:           cfg.Storage.CloneEnabled,
		RepoPath:               cfg.Storage.RepoPath,
		AutoHeal:               cfg.Pipeline.AutoHeal,
		TimeSavedPerOnboarding: cfg.Pipeline.TimeSavedPerOnboarding,
		TimeSavedPerFix:        cfg.Pipeline.TimeSavedPerFix,
	}
}

func provideTokenSource(clients github.ClientFactory) pipeline.TokenSource {
	return clients
}

func provideHealingNotifier(publisher *github.HealingPublisher) pipeline.HealingNotifier {
	return publisher
}

func provideRunSink(svc dashboard.Service) github.RunSink {
	return svc
}
