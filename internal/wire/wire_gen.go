// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/autoci/internal/app"
	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/dashboard"
	"github.com/sevigo/autoci/internal/github"
	"github.com/sevigo/autoci/internal/gitutil"
	"github.com/sevigo/autoci/internal/jobs"
	"github.com/sevigo/autoci/internal/llm"
	"github.com/sevigo/autoci/internal/pipeline"
	"github.com/sevigo/autoci/internal/scanner"
	"github.com/sevigo/autoci/internal/server"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerConfig := provideLoggerConfig(cfg)
	slogLogger := provideSlogLogger(loggerConfig)

	store, storeCleanup, err := provideStore(ctx, cfg, slogLogger)
	if err != nil {
		storeCleanup()
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	promptManager, err := llm.NewPromptManager()
	if err != nil {
		storeCleanup()
		return nil, nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	aiConfig := provideAIConfig(cfg)
	generator, err := llm.NewGenerator(ctx, aiConfig, promptManager, slogLogger)
	if err != nil {
		storeCleanup()
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}
	analyzer := llm.NewAnalyzer(generator, promptManager, aiConfig, slogLogger)

	fileScanner := scanner.New()
	cloner := gitutil.NewCloner(slogLogger)

	gitHubConfig := provideGitHubConfig(cfg)
	clientFactory := github.NewClientFactory(gitHubConfig, slogLogger)
	tokenSource := provideTokenSource(clientFactory)
	healingPublisher := github.NewHealingPublisher(clientFactory, slogLogger)
	healingNotifier := provideHealingNotifier(healingPublisher)

	options := providePipelineOptions(cfg)
	onboarder := pipeline.NewOnboarder(store, analyzer, fileScanner, cloner, tokenSource, options, slogLogger)
	healer := pipeline.NewHealer(store, analyzer, healingNotifier, slogLogger)

	onboardingJob := jobs.NewOnboardingJob(onboarder, slogLogger)
	healingJob := jobs.NewHealingJob(healer, slogLogger)
	registry := jobs.NewRegistry(onboardingJob, healingJob)
	pipelineConfig := providePipelineConfig(cfg)
	dispatcher := jobs.NewDispatcher(pipelineConfig, registry, slogLogger)

	runRecorder := pipeline.NewRunRecorder(store, dispatcher, options, slogLogger)
	service := dashboard.NewService(store, onboarder, healer, runRecorder, dispatcher, slogLogger)
	runSink := provideRunSink(service)
	ingestor := github.NewWorkflowIngestor(clientFactory, runSink, slogLogger)

	srv := server.NewServer(ctx, cfg, service, ingestor, slogLogger)
	appApp := app.NewApp(ctx, cfg, store, service, srv, dispatcher, onboarder, slogLogger)

	return appApp, func() {
		storeCleanup()
	}, nil
}
