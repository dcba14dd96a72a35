package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

type genaiGenerator struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGenAIGenerator creates a Generator on the Gemini API that uses native
// structured output (response MIME type plus response schema).
func NewGenAIGenerator(ctx context.Context, apiKey string, logger *slog.Logger) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &genaiGenerator{client: client, logger: logger}, nil
}

func (g *genaiGenerator) GenerateJSON(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	g.logger.Debug("calling genai", "request", req.Name, "model", req.Model, "prompt_chars", len(req.Prompt))
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai %s call failed: %w", req.Name, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%s: %w", req.Name, ErrEmptyResponse)
	}
	if err := ValidateJSON(req.Name, text, req.Schema); err != nil {
		return "", err
	}
	return text, nil
}
