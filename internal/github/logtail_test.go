package github

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogTail(t *testing.T) {
	raw := strings.Join([]string{
		"2025-03-01T10:00:00.1234567Z ##[group]Run pip install -r requirements.txt",
		"2025-03-01T10:00:01.0000000Z Collecting fastapi==0.95.0",
		"2025-03-01T10:00:02.0000000Z ##[endgroup]",
		"2025-03-01T10:00:03.0000000Z \x1b[31mTraceback (most recent call last):\x1b[0m",
		`2025-03-01T10:00:03.5000000Z ModuleNotFoundError: No module named "requests"   `,
		"2025-03-01T10:00:04.0000000Z ##[error]Process completed with exit code 1.",
		"",
		"",
	}, "\r\n")

	want := strings.Join([]string{
		"Collecting fastapi==0.95.0",
		"Traceback (most recent call last):",
		`ModuleNotFoundError: No module named "requests"`,
		"Error: Process completed with exit code 1.",
	}, "\n")
	assert.Equal(t, want, LogTail(raw, 10))
}

func TestLogTail_KeepsLastLines(t *testing.T) {
	var lines []string
	for i := range 20 {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	got := LogTail(strings.Join(lines, "\n"), 3)
	assert.Equal(t, "line 17\nline 18\nline 19", got)

	assert.Len(t, strings.Split(LogTail(strings.Repeat("x\n", 500), 0), "\n"), DefaultLogTailLines)
}

func TestLogTail_OtherCommands(t *testing.T) {
	assert.Equal(t, "careful", LogTail("##[warning]careful", 5))
	assert.Empty(t, LogTail("", 5))
}
