package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sevigo/goframe/llms"
)

// ModelFactory creates a goframe model for a model name.
type ModelFactory func(model string) (llms.Model, error)

type modelGenerator struct {
	provider  ModelProvider
	factory   ModelFactory
	promptMgr *PromptManager
	logger    *slog.Logger

	mu     sync.Mutex
	models map[string]llms.Model
}

// NewModelGenerator creates a Generator on top of plain-text goframe models.
// The schema is rendered into the prompt and the JSON is recovered from the reply.
func NewModelGenerator(provider ModelProvider, factory ModelFactory, promptMgr *PromptManager, logger *slog.Logger) Generator {
	return &modelGenerator{
		provider:  provider,
		factory:   factory,
		promptMgr: promptMgr,
		logger:    logger,
		models:    make(map[string]llms.Model),
	}
}

type structuredPromptData struct {
	SystemInstruction string
	Prompt            string
	Schema            string
}

func (g *modelGenerator) GenerateJSON(ctx context.Context, req Request) (string, error) {
	model, err := g.getOrCreateModel(req.Model)
	if err != nil {
		return "", err
	}

	schemaJSON, err := json.MarshalIndent(SchemaToJSONSchema(req.Schema), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render schema for %s: %w", req.Name, err)
	}
	prompt, err := g.promptMgr.Render(StructuredOutputPrompt, g.provider, structuredPromptData{
		SystemInstruction: req.SystemInstruction,
		Prompt:            req.Prompt,
		Schema:            string(schemaJSON),
	})
	if err != nil {
		return "", fmt.Errorf("could not render prompt for %s: %w", req.Name, err)
	}

	g.logger.Debug("calling LLM", "request", req.Name, "provider", g.provider, "model", req.Model, "prompt_chars", len(prompt))
	raw, err := callModel(ctx, model, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM %s call failed: %w", req.Name, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%s: %w", req.Name, ErrEmptyResponse)
	}

	clean, err := extractJSON(sanitizeJSON(raw))
	if err != nil {
		return "", &SchemaError{Request: req.Name, Reason: err.Error()}
	}
	if err := ValidateJSON(req.Name, clean, req.Schema); err != nil {
		return "", err
	}
	return clean, nil
}

func (g *modelGenerator) getOrCreateModel(name string) (llms.Model, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.models[name]; ok {
		return m, nil
	}
	g.logger.Info("creating LLM instance", "provider", g.provider, "model", name)
	m, err := g.factory(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model %s: %w", g.provider, name, err)
	}
	g.models[name] = m
	return m, nil
}

// callModel runs the call in its own goroutine so a model that ignores
// cancellation cannot outlive ctx.
func callModel(ctx context.Context, model llms.Model, prompt string) (string, error) {
	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := model.Call(ctx, prompt)
		resultCh <- result{resp, err}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
