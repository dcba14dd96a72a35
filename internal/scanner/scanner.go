// Package scanner builds the project fingerprint that stack classification and
// the security gate work from.
package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/autoci/internal/core"
)

const (
	DefaultMaxFiles         = 200
	DefaultMaxManifests     = 20
	DefaultMaxManifestBytes = 8 * 1024
)

var readmeNames = []string{"README.md", "README", "readme.md", "README.rst", "README.txt"}

var manifestNames = map[string]struct{}{
	"package.json":       {},
	"go.mod":             {},
	"requirements.txt":   {},
	"pyproject.toml":     {},
	"Pipfile":            {},
	"Gemfile":            {},
	"pom.xml":            {},
	"build.gradle":       {},
	"build.gradle.kts":   {},
	"Cargo.toml":         {},
	"composer.json":      {},
	"Dockerfile":         {},
	"docker-compose.yml": {},
}

var defaultExcludeDirs = []string{"node_modules", "vendor", "__pycache__", "venv", "target"}

// Fingerprint is what the AI sees of a repository.
type Fingerprint struct {
	// Files are repository-relative, slash-separated, sorted and capped.
	Files      []string
	TotalFiles int
	Readme     string
	Manifests  []core.FileContent
}

// Scanner walks checked-out repositories.
type Scanner struct {
	MaxFiles         int
	MaxManifests     int
	MaxManifestBytes int
}

// New returns a Scanner with the default limits.
func New() *Scanner {
	return &Scanner{
		MaxFiles:         DefaultMaxFiles,
		MaxManifests:     DefaultMaxManifests,
		MaxManifestBytes: DefaultMaxManifestBytes,
	}
}

// Scan fingerprints the repository at root. Hidden directories, excluded
// directories and excluded extensions are skipped.
func (s *Scanner) Scan(root string, cfg *core.RepoConfig) (*Fingerprint, error) {
	if cfg == nil {
		cfg = core.DefaultRepoConfig()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat repository path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %s is not a directory", root)
	}

	excludeDirs := append(slices.Clone(defaultExcludeDirs), cfg.ExcludeDirs...)
	files, err := listFiles(root, excludeDirs, cfg.ExcludeExts)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	slices.Sort(files)

	fp := &Fingerprint{TotalFiles: len(files)}
	fp.Files = files
	if s.MaxFiles > 0 && len(files) > s.MaxFiles {
		fp.Files = files[:s.MaxFiles]
	}

	readmeBytes := cfg.ReadmeBytes
	if readmeBytes <= 0 {
		readmeBytes = core.DefaultReadmeBytes
	}
	fp.Readme, err = readReadme(root, readmeBytes)
	if err != nil {
		return nil, err
	}

	paths := selectManifests(files, s.MaxManifests)
	for _, extra := range cfg.ManifestFiles {
		clean, err := safeRelPath(extra)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(paths, clean) {
			paths = append(paths, clean)
		}
	}
	fp.Manifests, err = s.readManifests(root, paths)
	if err != nil {
		return nil, err
	}
	return fp, nil
}

func listFiles(root string, excludeDirs, excludeExts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || slices.Contains(excludeDirs, name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isExcludedExt(d.Name(), excludeExts) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func isExcludedExt(name string, excludes []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, ex := range excludes {
		ex = strings.ToLower(ex)
		if !strings.HasPrefix(ex, ".") {
			ex = "." + ex
		}
		if ext == ex {
			return true
		}
	}
	return false
}

// IsManifest reports whether a file name is a dependency manifest or an env file.
func IsManifest(name string) bool {
	if _, ok := manifestNames[name]; ok {
		return true
	}
	return name == ".env" || strings.HasPrefix(name, ".env.")
}

func selectManifests(files []string, limit int) []string {
	var out []string
	for _, f := range files {
		if IsManifest(filepath.Base(f)) {
			out = append(out, f)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func readReadme(root string, limit int) (string, error) {
	for _, name := range readmeNames {
		content, err := readCapped(root, name, limit)
		if err == nil {
			return content, nil
		}
		if !skippable(err) {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
	}
	return "", nil
}

func (s *Scanner) readManifests(root string, paths []string) ([]core.FileContent, error) {
	results := make([]*core.FileContent, len(paths))

	var g errgroup.Group
	g.SetLimit(8)
	for i, rel := range paths {
		g.Go(func() error {
			content, err := readCapped(root, filepath.FromSlash(rel), s.MaxManifestBytes)
			if skippable(err) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read manifest %s: %w", rel, err)
			}
			results[i] = &core.FileContent{Path: rel, Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.FileContent, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// errNotRegular marks a path that is not a regular file or that resolves
// outside the repository through a symlink.
var errNotRegular = errors.New("not a regular file inside the repository")

func skippable(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, errNotRegular)
}

// readCapped reads at most limit bytes of name, resolved inside root.
func readCapped(root, name string, limit int) (string, error) {
	f, err := os.OpenInRoot(root, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", name, errNotRegular)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", name, errNotRegular)
	}

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, int64(limit))
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// safeRelPath rejects absolute paths and paths that escape the repository.
func safeRelPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("manifest path %q must be relative", p)
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("manifest path %q escapes the repository", p)
	}
	return clean, nil
}
