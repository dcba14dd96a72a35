package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/autoci/internal/config"
	"github.com/sevigo/autoci/internal/core"
)

// Analyzer issues the four AI calls of the onboarding and healing flows.
type Analyzer interface {
	ClassifyStack(ctx context.Context, files []string, readme string) (*core.DetectedStack, error)
	GenerateConfigs(ctx context.Context, stack *core.DetectedStack, customInstructions []string) (*core.Configs, error)
	ScanSecurity(ctx context.Context, files []core.FileContent) ([]core.SecurityFinding, error)
	AnalyzeBuildFailure(ctx context.Context, log string, stack *core.DetectedStack) (*core.HealingAnalysis, error)
}

type analyzer struct {
	gen       Generator
	promptMgr *PromptManager
	cfg       *config.AIConfig
	logger    *slog.Logger
}

// NewAnalyzer creates an Analyzer. Classification and security scans use the
// fast model; config generation and healing use the pro model.
func NewAnalyzer(gen Generator, promptMgr *PromptManager, cfg *config.AIConfig, logger *slog.Logger) Analyzer {
	return &analyzer{
		gen:       gen,
		promptMgr: promptMgr,
		cfg:       cfg,
		logger:    logger,
	}
}

func (a *analyzer) ClassifyStack(ctx context.Context, files []string, readme string) (*core.DetectedStack, error) {
	system, err := a.system(ClassifierPrompt, nil)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Project Files:\n%s\n\nREADME Excerpt:\n%s", strings.Join(files, "\n"), readme)

	stack, err := generate[core.DetectedStack](ctx, a, Request{
		Name:              "classify_stack",
		Model:             a.cfg.FastModel,
		SystemInstruction: system,
		Prompt:            prompt,
		Schema:            StackSchema,
	})
	if err != nil {
		return nil, err
	}
	stack.Confidence = normalizeConfidence(stack.Confidence)
	return stack, nil
}

type configPromptData struct {
	CustomInstructions []string
}

func (a *analyzer) GenerateConfigs(ctx context.Context, stack *core.DetectedStack, customInstructions []string) (*core.Configs, error) {
	if stack == nil {
		return nil, fmt.Errorf("generate_configs: stack is required")
	}
	system, err := a.system(ConfigGeneratorPrompt, configPromptData{CustomInstructions: customInstructions})
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Context: A project using %s with %s. Database: %s. Entry point: %s.",
		stack.Language, stack.Framework, stack.Database, stack.EntryPoint)

	return generate[core.Configs](ctx, a, Request{
		Name:              "generate_configs",
		Model:             a.cfg.ProModel,
		SystemInstruction: system,
		Prompt:            prompt,
		Schema:            ConfigsSchema,
	})
}

func (a *analyzer) ScanSecurity(ctx context.Context, files []core.FileContent) ([]core.SecurityFinding, error) {
	if len(files) == 0 {
		return []core.SecurityFinding{}, nil
	}
	system, err := a.system(SecurityPrompt, nil)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, fmt.Sprintf("File: %s\nContent:\n%s", f.Path, f.Content))
	}
	prompt := "Scan these files for secrets and dependencies:\n" + strings.Join(parts, "\n\n---\n\n")

	findings, err := generate[[]core.SecurityFinding](ctx, a, Request{
		Name:              "scan_security",
		Model:             a.cfg.FastModel,
		SystemInstruction: system,
		Prompt:            prompt,
		Schema:            FindingsSchema,
	})
	if err != nil {
		return nil, err
	}
	if *findings == nil {
		return []core.SecurityFinding{}, nil
	}
	return *findings, nil
}

func (a *analyzer) AnalyzeBuildFailure(ctx context.Context, log string, stack *core.DetectedStack) (*core.HealingAnalysis, error) {
	if stack == nil {
		return nil, fmt.Errorf("analyze_build_failure: stack is required")
	}
	system, err := a.system(HealerPrompt, nil)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Project Context: %s/%s\n\nFAILED LOG:\n%s", stack.Language, stack.Framework, log)

	analysis, err := generate[core.HealingAnalysis](ctx, a, Request{
		Name:              "analyze_build_failure",
		Model:             a.cfg.ProModel,
		SystemInstruction: system,
		Prompt:            prompt,
		Schema:            HealingSchema,
	})
	if err != nil {
		return nil, err
	}
	analysis.Confidence = normalizeConfidence(analysis.Confidence)
	return analysis, nil
}

func (a *analyzer) system(key PromptKey, data any) (string, error) {
	text, err := a.promptMgr.Render(key, ModelProvider(a.cfg.Provider), data)
	if err != nil {
		return "", fmt.Errorf("could not render prompt '%s': %w", key, err)
	}
	return strings.TrimSpace(text), nil
}

func generate[T any](ctx context.Context, a *analyzer, req Request) (*T, error) {
	if a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
	}

	raw, err := a.gen.GenerateJSON(ctx, req)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &SchemaError{Request: req.Name, Reason: err.Error()}
	}
	a.logger.Info("AI response decoded", "request", req.Name, "model", req.Model, "chars", len(raw))
	return &out, nil
}

// normalizeConfidence maps confidences below 1 onto 0-100 and clamps the
// result. Whole numbers are already percentages, so 1 stays 1.
func normalizeConfidence(c float64) float64 {
	if c > 0 && c < 1 {
		c *= 100
	}
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
