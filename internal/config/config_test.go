package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoci/internal/core"
)

func validAIConfig() AIConfig {
	return AIConfig{
		Provider:       ProviderGenAI,
		GeminiAPIKey:   "test-key",
		FastModel:      "flash",
		ProModel:       "pro",
		RequestTimeout: time.Minute,
	}
}

func TestAIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AIConfig)
		wantErr bool
	}{
		{
			name:    "Valid genai config",
			mutate:  func(c *AIConfig) {},
			wantErr: false,
		},
		{
			name:    "Gemini without API key",
			mutate:  func(c *AIConfig) { c.Provider = ProviderGemini; c.GeminiAPIKey = "" },
			wantErr: true,
		},
		{
			name:    "Ollama without key is fine",
			mutate:  func(c *AIConfig) { c.Provider = ProviderOllama; c.GeminiAPIKey = ""; c.OllamaHost = "http://localhost:11434" },
			wantErr: false,
		},
		{
			name:    "Ollama without host",
			mutate:  func(c *AIConfig) { c.Provider = ProviderOllama; c.OllamaHost = "" },
			wantErr: true,
		},
		{
			name:    "Unknown provider",
			mutate:  func(c *AIConfig) { c.Provider = "openai" },
			wantErr: true,
		},
		{
			name:    "Missing pro model",
			mutate:  func(c *AIConfig) { c.ProModel = "" },
			wantErr: true,
		},
		{
			name:    "Zero timeout",
			mutate:  func(c *AIConfig) { c.RequestTimeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAIConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("AIConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AI:       validAIConfig(),
			Database: DBConfig{Driver: DriverMemory},
			Storage:  StorageConfig{RepoPath: "data/repos", CloneEnabled: true},
			Pipeline: PipelineConfig{MaxWorkers: 2},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.RepoPath = " "
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.CloneEnabled = false
	cfg.Storage.RepoPath = ""
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.StageDelay = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DATABASE_DRIVER", "MEMORY")
	t.Setenv("PIPELINE_STAGE_DELAY", "250ms")
	t.Setenv("PIPELINE_AUTO_HEAL", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.AI.GeminiAPIKey)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.StageDelay)
	assert.True(t, cfg.Pipeline.AutoHeal)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Pipeline.TimeSavedPerFix)
	assert.Equal(t, ProviderGenAI, cfg.AI.Provider)
}

func TestLoadRepoConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRepoConfig(t.TempDir())
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Equal(t, core.DefaultReadmeBytes, cfg.ReadmeBytes)
	})

	t.Run("parses overrides", func(t *testing.T) {
		dir := t.TempDir()
		content := `custom_instructions:
  - "Use distroless base images"
exclude_dirs: [dist, docs]
exclude_exts: [".log"]
manifest_files: ["deploy/values.yaml"]
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte(content), 0o600))

		cfg, err := LoadRepoConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"Use distroless base images"}, cfg.CustomInstructions)
		assert.Equal(t, []string{"dist", "docs"}, cfg.ExcludeDirs)
		assert.Equal(t, []string{".log"}, cfg.ExcludeExts)
		assert.Equal(t, []string{"deploy/values.yaml"}, cfg.ManifestFiles)
		assert.Equal(t, core.DefaultReadmeBytes, cfg.ReadmeBytes)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte("exclude_dirs: [unterminated"), 0o600))

		_, err := LoadRepoConfig(dir)
		assert.ErrorIs(t, err, ErrConfigParsing)
	})
}
