package core

// DefaultReadmeBytes is how much of the README is sent to stack classification.
const DefaultReadmeBytes = 2048

// RepoConfig represents the structure of the .autoci.yml file.
type RepoConfig struct {
	// Extra instructions appended to the config generation prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Directories skipped by name anywhere in the tree.
	// Example: ["dist", "build", "docs"]
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Exclusion of files based on their extension.
	// The leading dot is optional. Example: [".md", "lock", ".log"]
	ExcludeExts []string `yaml:"exclude_exts"`

	// ReadmeBytes caps the README excerpt used for classification.
	ReadmeBytes int `yaml:"readme_bytes"`

	// ManifestFiles are additional repository-relative paths fed to the security scan.
	ManifestFiles []string `yaml:"manifest_files"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		ExcludeDirs:        []string{},
		ExcludeExts:        []string{},
		ReadmeBytes:        DefaultReadmeBytes,
		ManifestFiles:      []string{},
	}
}
