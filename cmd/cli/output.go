package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sevigo/autoci/internal/core"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func statusColor(status core.RepositoryStatus) *color.Color {
	switch status {
	case core.StatusCompleted:
		return successColor
	case core.StatusFailed:
		return errorColor
	case core.StatusIdle:
		return dimColor
	default:
		return warnColor
	}
}

func runColor(status core.RunStatus) *color.Color {
	if status == core.RunFailure {
		return errorColor
	}
	return successColor
}

func printSeverity(severity core.Severity) {
	label := strings.ToUpper(string(severity))
	switch severity {
	case core.SeverityCritical:
		color.New(color.BgRed, color.FgWhite, color.Bold).Printf(" %s ", label)
	case core.SeverityHigh:
		color.New(color.BgHiRed, color.FgWhite).Printf(" %s ", label)
	case core.SeverityMedium:
		color.New(color.BgYellow, color.FgBlack).Printf(" %s ", label)
	default:
		color.New(color.BgBlue, color.FgWhite).Printf(" %s ", label)
	}
}

func printHealing(h *core.HealingAnalysis) {
	titleColor.Println("Self-Healing Analysis")
	boldColor.Print("  Root cause:  ")
	fmt.Println(h.RootCause)
	boldColor.Print("  Fix type:    ")
	fmt.Println(h.FixType)
	boldColor.Print("  Confidence:  ")
	fmt.Printf("%.0f%%\n", h.Confidence)
	fmt.Println()
	fmt.Println(h.Explanation)
	fmt.Println()
	boldColor.Printf("  %s on %s\n", h.SuggestedFix.Type, h.SuggestedFix.Target)
	if h.SuggestedFix.Before != "" {
		for _, line := range strings.Split(h.SuggestedFix.Before, "\n") {
			errorColor.Printf("  - %s\n", line)
		}
	}
	for _, line := range strings.Split(h.SuggestedFix.Change, "\n") {
		successColor.Printf("  + %s\n", line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
