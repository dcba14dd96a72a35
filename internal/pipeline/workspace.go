package pipeline

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// beforeLines is how much of a fix target is captured as its "before" state.
const beforeLines = 20

// readHead returns the first n lines of target inside root, or "" when the
// target is missing, unreadable, not a regular file or resolves outside root.
// Symlinks are resolved within root only.
func readHead(root, target string, n int) string {
	if root == "" || target == "" {
		return ""
	}
	target = strings.TrimPrefix(filepath.ToSlash(target), "/")

	f, err := os.OpenInRoot(root, filepath.FromSlash(target))
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}

	var lines []string
	sc := bufio.NewScanner(f)
	for len(lines) < n && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return strings.Join(lines, "\n")
}
