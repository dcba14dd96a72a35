package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/autoci/internal/core"
)

const logTailLines = 12

func (m *model) View() string {
	if m.app == nil {
		if m.err != nil {
			return fmt.Sprintf("\n  %s\n\n  %s\n", m.styles.error.Render(m.err.Error()), m.styles.inactive.Render("Press q to quit."))
		}
		return fmt.Sprintf("\n  %s BOOTING AUTOCI...\n\n", m.spinner.View())
	}

	if m.showModal {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderModal())
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderDeck(), m.renderDetail())
	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			body,
			m.renderFooter(),
		),
	)
}

func (m *model) renderHeader() string {
	s := m.stats
	parts := []string{
		fmt.Sprintf("REPOS %d", s.Total),
		fmt.Sprintf("ACTIVE %d", s.Active),
		fmt.Sprintf("FAILURES %d", s.Failures),
		fmt.Sprintf("SECURITY %d", s.Security),
		fmt.Sprintf("SAVED %s", formatMinutes(s.TimeSavedMinutes)),
		fmt.Sprintf("FIX RATE %.0f%%", s.FixRate*100),
	}
	title := "AUTOCI ▸ AUTONOMOUS CI/CD"
	return m.styles.header.Width(max(m.width-4, 20)).Render(
		title + "   " + m.styles.inactive.Render(strings.Join(parts, " │ ")),
	)
}

func (m *model) renderDeck() string {
	var b strings.Builder
	b.WriteString(m.styles.label.Render("INTELLIGENCE DECK"))
	b.WriteString("\n\n")
	if len(m.repos) == 0 {
		b.WriteString(m.styles.inactive.Render("No repositories.\nPress a to connect one."))
	}
	for i, repo := range m.repos {
		marker := "  "
		name := truncate(repo.Name, deckWidth-12)
		if i == m.cursor {
			marker = m.styles.selected.Render("▸ ")
			name = m.styles.selected.Render(name)
		}
		line := marker + statusDot(m.styles, repo.Status) + " " + name
		if n := len(repo.SecurityFindings); n > 0 {
			line += " " + m.styles.warning.Render(fmt.Sprintf("⚠ %d", n))
		}
		b.WriteString(line + "\n")
	}
	return m.styles.pane.Width(deckWidth).Height(m.bodyHeight()).Render(b.String())
}

func (m *model) renderDetail() string {
	width := m.detailWidth()
	repo := m.selected()
	if repo == nil {
		return m.styles.pane.Width(width).Height(m.bodyHeight()).Render(m.tabContent())
	}

	title := m.styles.selected.Render(repo.FullName) + "  " + statusDot(m.styles, repo.Status) + " " + string(repo.Status)
	if repo.Status.IsBusy() {
		title += " " + m.spinner.View()
	}

	tabs := make([]string, 0, tabCount)
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			tabs = append(tabs, m.styles.tabActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.tabInactive.Render(label))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		m.viewport.View(),
		"",
		m.styles.label.Render("CONSOLE"),
		renderConsole(m.styles, m.events),
	)
	return m.styles.pane.Width(width).Height(m.bodyHeight()).Render(content)
}

func (m *model) renderFooter() string {
	help := m.styles.inactive.Render("↑/↓ select • tab/1-4 view • [/] run • a connect • o onboard • h heal • r refresh • q quit")

	var line string
	switch {
	case m.err != nil:
		line = m.styles.error.Render("⚠ " + m.err.Error())
	case m.status != "":
		line = m.styles.success.Render(m.status)
	}
	if m.isLoading {
		line = m.spinner.View() + " " + line
	}
	return m.styles.footer.Width(max(m.width-4, 20)).Render(lipgloss.JoinVertical(lipgloss.Left, help, line))
}

func (m *model) renderModal() string {
	var b strings.Builder
	b.WriteString(m.styles.label.Render("CONNECT REPOSITORY"))
	b.WriteString("\n\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(m.styles.error.Render(m.err.Error()) + "\n")
	}
	b.WriteString(m.styles.inactive.Render("tab switch field • enter connect • esc cancel"))
	return m.styles.modal.Render(b.String())
}

func (m *model) bodyHeight() int {
	return max(m.height-chromeHeight, minViewHeight+consoleHeight)
}

func renderOverview(s styles, repo *core.Repository) string {
	var b strings.Builder
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", s.label.Render(fmt.Sprintf("%-13s", label)), value)
	}

	field("Repository", repo.FullName)
	field("URL", repo.URL)
	field("Status", string(repo.Status))
	if repo.LastScanned != nil {
		field("Last scanned", repo.LastScanned.Local().Format(time.RFC822))
	} else {
		field("Last scanned", s.inactive.Render("never"))
	}

	b.WriteString("\n")
	if st := repo.Stack; st != nil {
		field("Language", st.Language)
		field("Framework", st.Framework)
		field("Database", st.Database)
		field("Entry point", st.EntryPoint)
		field("Confidence", fmt.Sprintf("%.0f%%", st.Confidence))
		if st.Reasoning != "" {
			b.WriteString(s.inactive.Render(st.Reasoning) + "\n")
		}
	} else {
		b.WriteString(s.inactive.Render("Stack not detected yet. Press o to onboard.") + "\n")
	}

	b.WriteString("\n")
	field("Time saved", formatMinutes(repo.Metrics.TimeSavedMinutes))
	field("AI fixes", fmt.Sprintf("%d/%d (%.0f%%)", repo.Metrics.AIFixSuccesses, repo.Metrics.AIFixAttempts, repo.Metrics.FixRate()*100))

	if len(repo.OnboardingStages) > 0 {
		b.WriteString("\n" + s.label.Render("ONBOARDING") + "\n")
		b.WriteString(renderStages(s, repo.OnboardingStages))
	}
	return b.String()
}

func renderSecurity(s styles, repo *core.Repository) string {
	if len(repo.SecurityFindings) == 0 {
		if repo.Status != core.StatusCompleted {
			return s.inactive.Render("The security gate runs during onboarding.")
		}
		return s.success.Render("✓ No findings.")
	}

	findings := slices.Clone(repo.SecurityFindings)
	slices.SortStableFunc(findings, func(a, b core.SecurityFinding) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})

	var b strings.Builder
	for _, f := range findings {
		location := f.File
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(&b, "%s %s %s\n", severityBadge(s, f.Severity), f.Title, s.inactive.Render("("+string(f.Type)+")"))
		fmt.Fprintf(&b, "  %s\n", s.command.Render(location))
		if f.Description != "" {
			fmt.Fprintf(&b, "  %s\n", f.Description)
		}
		if f.Recommendation != "" {
			fmt.Fprintf(&b, "  %s %s\n", s.success.Render("→"), f.Recommendation)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderConfigs(s styles, renderer *glamour.TermRenderer, repo *core.Repository) string {
	if repo.Configs == nil {
		return s.inactive.Render("No configs generated yet. Press o to onboard.")
	}
	doc := configsMarkdown(repo.Configs)
	if renderer == nil {
		return doc
	}
	out, err := renderer.Render(doc)
	if err != nil {
		return doc
	}
	return out
}

func configsMarkdown(c *core.Configs) string {
	var b strings.Builder
	b.WriteString("## Dockerfile\n\n```dockerfile\n")
	b.WriteString(strings.TrimRight(c.Dockerfile, "\n"))
	b.WriteString("\n```\n\n## CI Workflow\n\n```yaml\n")
	b.WriteString(strings.TrimRight(c.Workflow, "\n"))
	b.WriteString("\n```\n")
	return b.String()
}

func renderHistory(s styles, repo *core.Repository, cursor int) string {
	if len(repo.PipelineRuns) == 0 {
		return s.inactive.Render("No CI runs recorded yet.")
	}

	var b strings.Builder
	for i, run := range repo.PipelineRuns {
		marker := "  "
		if i == cursor {
			marker = s.selected.Render("▸ ")
		}
		icon := s.success.Render("✓")
		if run.Status == core.RunFailure {
			icon = s.error.Render("✗")
		}
		line := fmt.Sprintf("%s%s %-10s %8s  %s", marker, icon, truncate(run.ID, 10), run.Duration, run.Timestamp.Local().Format("Jan 02 15:04"))
		switch {
		case run.Healing != nil && run.HealingResolved:
			line += " " + s.success.Render("healed")
		case run.Healing != nil:
			line += " " + s.warning.Render("fix suggested")
		}
		b.WriteString(line + "\n")
	}

	if cursor < 0 || cursor >= len(repo.PipelineRuns) {
		return b.String()
	}
	run := repo.PipelineRuns[cursor]

	if len(run.Stages) > 0 {
		b.WriteString("\n" + s.label.Render("STAGES") + "\n")
		b.WriteString(renderStages(s, run.Stages))
	}
	if run.Healing != nil {
		b.WriteString("\n" + renderHealing(s, run.Healing, run.HealingResolved))
	}
	if run.Log != "" {
		b.WriteString("\n" + s.label.Render("LOG") + "\n")
		b.WriteString(s.inactive.Render(tailLines(run.Log, logTailLines)) + "\n")
	}
	return b.String()
}

func renderHealing(s styles, h *core.HealingAnalysis, resolved bool) string {
	var b strings.Builder
	title := "SELF-HEALING ANALYSIS"
	if resolved {
		title += " " + s.success.Render("(verified by a passing build)")
	}
	b.WriteString(s.label.Render(title) + "\n")
	fmt.Fprintf(&b, "Root cause:  %s\n", h.RootCause)
	fmt.Fprintf(&b, "Fix type:    %s\n", h.FixType)
	fmt.Fprintf(&b, "Confidence:  %.0f%%\n\n", h.Confidence)
	if h.Explanation != "" {
		b.WriteString(h.Explanation + "\n\n")
	}
	fix := h.SuggestedFix
	b.WriteString(s.command.Render(fmt.Sprintf("%s on %s", fix.Type, fix.Target)) + "\n")
	if fix.Before != "" {
		for _, line := range strings.Split(fix.Before, "\n") {
			b.WriteString(s.error.Render("- "+line) + "\n")
		}
	}
	for _, line := range strings.Split(fix.Change, "\n") {
		b.WriteString(s.success.Render("+ "+line) + "\n")
	}
	return b.String()
}

func renderStages(s styles, stages []core.PipelineStage) string {
	var b strings.Builder
	for _, st := range stages {
		fmt.Fprintf(&b, "  %s %-22s %s\n", stageIcon(s, st.Status), st.Name, s.inactive.Render(st.Duration))
	}
	return b.String()
}

func renderConsole(s styles, events []core.LogEntry) string {
	if len(events) == 0 {
		return s.inactive.Render("No activity yet.")
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, s.inactive.Render(e.CreatedAt.Local().Format("15:04:05"))+" "+e.Message)
	}
	return strings.Join(lines, "\n")
}

func statusDot(s styles, status core.RepositoryStatus) string {
	switch {
	case status == core.StatusCompleted:
		return s.success.Render("●")
	case status == core.StatusFailed:
		return s.error.Render("●")
	case status.IsBusy():
		return s.warning.Render("●")
	default:
		return s.inactive.Render("○")
	}
}

func stageIcon(s styles, status core.StageStatus) string {
	switch status {
	case core.StageSuccess:
		return s.success.Render("✓")
	case core.StageFailure:
		return s.error.Render("✗")
	case core.StageRunning:
		return s.warning.Render("◉")
	default:
		return s.inactive.Render("○")
	}
}

func severityBadge(s styles, sev core.Severity) string {
	label := "[" + strings.ToUpper(string(sev)) + "]"
	switch sev {
	case core.SeverityCritical, core.SeverityHigh:
		return s.error.Render(label)
	case core.SeverityMedium:
		return s.warning.Render(label)
	default:
		return s.inactive.Render(label)
	}
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
