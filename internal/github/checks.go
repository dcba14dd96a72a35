package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/autoci/internal/core"
)

// HealingCheckName is the check run that carries healing analyses.
const HealingCheckName = "AutoCI Self-Healing"

// HealingPublisher posts healing analyses as completed check runs on the
// failed commit.
type HealingPublisher struct {
	clients ClientFactory
	logger  *slog.Logger
}

// NewHealingPublisher creates a HealingPublisher.
func NewHealingPublisher(clients ClientFactory, logger *slog.Logger) *HealingPublisher {
	return &HealingPublisher{clients: clients, logger: logger}
}

// NotifyHealing creates the check run for run's head SHA.
func (p *HealingPublisher) NotifyHealing(ctx context.Context, repo *core.Repository, run *core.PipelineRun) error {
	if run.Healing == nil {
		return fmt.Errorf("run %s has no healing analysis", run.ID)
	}
	client, err := p.clients.ForInstallation(ctx, run.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	title := truncate("Root cause: "+run.Healing.RootCause, 120)
	summary := FormatHealingSummary(run.Healing)
	opts := github.CreateCheckRunOptions{
		Name:        HealingCheckName,
		HeadSHA:     run.HeadSHA,
		Status:      github.Ptr("completed"),
		Conclusion:  github.Ptr("neutral"),
		CompletedAt: &github.Timestamp{Time: time.Now()},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := client.CreateCheckRun(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return fmt.Errorf("failed to create check run: %w", err)
	}
	p.logger.Info("healing check run published", "repo", repo.FullName, "sha", run.HeadSHA, "check_run_id", checkRun.GetID())
	return nil
}

// FormatHealingSummary renders a healing analysis as check run markdown.
func FormatHealingSummary(h *core.HealingAnalysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s Root cause\n\n%s\n\n", fixTypeEmoji(h.FixType), h.RootCause)
	sb.WriteString("| Fix type | Confidence |\n")
	sb.WriteString("|----------|------------|\n")
	fmt.Fprintf(&sb, "| %s | %.0f%% |\n\n", h.FixType, h.Confidence)

	if h.Explanation != "" {
		fmt.Fprintf(&sb, "%s\n\n", h.Explanation)
	}

	fix := h.SuggestedFix
	fmt.Fprintf(&sb, "#### Suggested fix (`%s` in `%s`)\n\n", fix.Type, fix.Target)
	if fix.Before != "" {
		sb.WriteString("**Before**\n\n")
		writeFence(&sb, fix.Before)
		sb.WriteString("**After**\n\n")
	}
	writeFence(&sb, fix.Change)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeFence(sb *strings.Builder, body string) {
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	fmt.Fprintf(sb, "%s\n%s\n%s\n\n", fence, strings.TrimRight(body, "\n"), fence)
}

func fixTypeEmoji(t core.FixType) string {
	switch t {
	case core.FixDependency:
		return "📦"
	case core.FixConfig:
		return "⚙️"
	case core.FixCode:
		return "🛠️"
	case core.FixEnvironment:
		return "🌐"
	default:
		return "🩺"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
