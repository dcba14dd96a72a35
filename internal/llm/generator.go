// Package llm talks to the generative-AI backends. Every call goes through a
// single contract: a system instruction, a context payload and a response
// schema go in, and a JSON document conforming to that schema comes out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"
	"google.golang.org/genai"

	"github.com/sevigo/autoci/internal/config"
)

// ErrEmptyResponse is returned when the model replies with no content.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single structured-output call.
type Request struct {
	// Name identifies the call in logs and errors (e.g. "classify_stack").
	Name              string
	Model             string
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
}

// Generator returns raw JSON text that has already been validated against req.Schema.
type Generator interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

// NewGenerator builds the Generator selected by cfg.Provider.
func NewGenerator(ctx context.Context, cfg *config.AIConfig, promptMgr *PromptManager, logger *slog.Logger) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderGenAI:
		return NewGenAIGenerator(ctx, cfg.GeminiAPIKey, logger)
	case config.ProviderGemini:
		factory := func(model string) (llms.Model, error) {
			return gemini.New(ctx,
				gemini.WithModel(model),
				gemini.WithAPIKey(cfg.GeminiAPIKey),
			)
		}
		return NewModelGenerator(ModelProvider(cfg.Provider), factory, promptMgr, logger), nil
	case config.ProviderOllama:
		httpClient := newOllamaHTTPClient()
		factory := func(model string) (llms.Model, error) {
			return ollama.New(
				ollama.WithServerURL(cfg.OllamaHost),
				ollama.WithModel(model),
				ollama.WithHTTPClient(httpClient),
				ollama.WithLogger(logger),
			)
		}
		return NewModelGenerator(ModelProvider(cfg.Provider), factory, promptMgr, logger), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}
