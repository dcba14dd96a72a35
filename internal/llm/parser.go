package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON recovers a JSON document from a free-text model reply.
// It strips markdown fences and falls back to decoding from the first
// object or array opener, dropping any trailing prose.
func extractJSON(raw string) (string, error) {
	raw = stripCodeFence(raw)
	if json.Valid([]byte(raw)) {
		return raw, nil
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return "", fmt.Errorf("response did not contain valid JSON start")
	}

	decoder := json.NewDecoder(strings.NewReader(raw[start:]))
	var msg any
	if err := decoder.Decode(&msg); err != nil {
		return "", fmt.Errorf("failed to decode JSON from response: %w", err)
	}
	clean, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to re-encode JSON: %w", err)
	}
	return string(clean), nil
}

// stripCodeFence returns the content of the first fenced block, without its
// language tag, or the trimmed input when there is no fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	rest := s[start+3:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return s
	}
	inner := rest[:end]
	if nl := strings.Index(inner, "\n"); nl != -1 {
		tag := strings.TrimSpace(inner[:nl])
		if tag != "" && !strings.ContainsAny(tag, "{[") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// sanitizeJSON repairs invalid escape sequences (e.g. "C:\src") that models
// commonly emit inside JSON strings. Valid input is returned unchanged.
func sanitizeJSON(input string) string {
	if json.Valid([]byte(input)) {
		return input
	}

	var sb strings.Builder
	sb.Grow(len(input) + 20)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		char := runes[i]
		if char != '\\' {
			sb.WriteRune(char)
			continue
		}
		if i+1 >= len(runes) {
			sb.WriteString(`\\`)
			break
		}
		switch next := runes[i+1]; next {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			sb.WriteRune(char)
			sb.WriteRune(next)
			i++
		default:
			sb.WriteString(`\\`)
		}
	}
	return sb.String()
}
