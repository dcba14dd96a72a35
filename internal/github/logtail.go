package github

import (
	"regexp"
	"strings"
)

// DefaultLogTailLines is how much of a failed job log is kept for healing.
const DefaultLogTailLines = 150

var (
	logTimestampRegex = regexp.MustCompile(`^\x{FEFF}?\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z ?`)
	ansiRegex         = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
)

// LogTail cleans a GitHub Actions job log and returns its last maxLines lines.
// Timestamps, colour codes and group markers are removed; error annotations
// are kept as "Error: ..." lines.
func LogTail(raw string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultLogTailLines
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = logTimestampRegex.ReplaceAllString(line, "")
		line = ansiRegex.ReplaceAllString(line, "")
		switch {
		case strings.HasPrefix(line, "##[group]"), strings.HasPrefix(line, "##[endgroup]"):
			continue
		case strings.HasPrefix(line, "##[error]"):
			line = "Error: " + strings.TrimPrefix(line, "##[error]")
		case strings.HasPrefix(line, "##["):
			if end := strings.Index(line, "]"); end != -1 {
				line = line[end+1:]
			}
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
