package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	themeFlag := flag.String("theme", "", "UI theme (cyan, matrix, amber, cyberpunk, ice, dracula, fire)")
	listThemes := flag.Bool("list-themes", false, "List all available themes")
	flag.Parse()

	if *listThemes {
		fmt.Println("Available themes:")
		for _, theme := range ListThemes() {
			fmt.Printf("  - %s\n", theme)
		}
		os.Exit(0)
	}

	selectedTheme := *themeFlag
	if selectedTheme == "" {
		selectedTheme = os.Getenv("AUTOCI_THEME")
	}
	if selectedTheme == "" {
		selectedTheme = string(ThemeCyan)
	}

	theme := ThemeName(selectedTheme)
	if !slices.Contains(ListThemes(), theme) {
		fmt.Printf("Invalid theme '%s'. Use --list-themes to see available options.\n", theme)
		os.Exit(1)
	}

	// Log lines on stdout would corrupt the alternate screen.
	if os.Getenv("LOG_OUTPUT") == "" {
		_ = os.Setenv("LOG_OUTPUT", "file")
	}

	p := tea.NewProgram(initialModel(theme), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(*model); ok {
		m.shutdown()
	}
	if err != nil {
		slog.Error("error running program", "error", err)
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
