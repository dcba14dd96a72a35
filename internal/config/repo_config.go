package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/autoci/internal/core"
)

// RepoConfigFile is the per-repository override file.
const RepoConfigFile = ".autoci.yml"

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadRepoConfig loads and parses the .autoci.yml file from a repository path.
// A missing file yields the defaults together with ErrConfigNotFound.
func LoadRepoConfig(repoPath string) (*core.RepoConfig, error) {
	configPath := filepath.Join(repoPath, RepoConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultRepoConfig(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", RepoConfigFile, err)
	}

	config := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	if config.ReadmeBytes <= 0 {
		config.ReadmeBytes = core.DefaultReadmeBytes
	}
	return config, nil
}
