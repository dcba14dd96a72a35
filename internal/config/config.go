package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/autoci/internal/logger"
)

// Supported AI providers.
const (
	ProviderGenAI  = "genai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig
	Database DBConfig
	AI       AIConfig
	GitHub   GitHubConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Logging  logger.Config
}

type ServerConfig struct {
	Port string
}

// DBConfig describes the repository store.
type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// SeedDemoData loads the demo repositories into an empty memory store.
	SeedDemoData bool
}

// AIConfig selects the generative-AI backend. FastModel serves classification and
// security scans, ProModel serves config generation and healing.
type AIConfig struct {
	Provider       string
	GeminiAPIKey   string
	OllamaHost     string
	FastModel      string
	ProModel       string
	RequestTimeout time.Duration
}

type GitHubConfig struct {
	AppID          int64
	PrivateKeyPath string
	WebhookSecret  string
	Token          string
}

// StorageConfig controls where repositories are checked out.
type StorageConfig struct {
	RepoPath     string
	CloneEnabled bool
}

type PipelineConfig struct {
	StageDelay             time.Duration
	AutoHeal               bool
	MaxWorkers             int
	QueueSize              int
	TimeSavedPerOnboarding int
	TimeSavedPerFix        int
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates the result. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")

	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USERNAME", "autoci")
	v.SetDefault("DATABASE_NAME", "autoci")
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("DATABASE_SEED_DEMO_DATA", false)

	v.SetDefault("AI_PROVIDER", ProviderGenAI)
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("AI_FAST_MODEL", "gemini-3-flash-preview")
	v.SetDefault("AI_PRO_MODEL", "gemini-3-pro-preview")
	v.SetDefault("AI_REQUEST_TIMEOUT", "2m")

	v.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/autoci-app.private-key.pem")

	v.SetDefault("REPO_PATH", "data/repos")
	v.SetDefault("CLONE_ENABLED", true)

	v.SetDefault("PIPELINE_STAGE_DELAY", "1s")
	v.SetDefault("PIPELINE_AUTO_HEAL", false)
	v.SetDefault("MAX_WORKERS", 4)
	v.SetDefault("QUEUE_SIZE", 100)
	v.SetDefault("TIME_SAVED_PER_ONBOARDING", 90)
	v.SetDefault("TIME_SAVED_PER_FIX", 30)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Database: DBConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			Username:        v.GetString("DATABASE_USERNAME"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Database:        v.GetString("DATABASE_NAME"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME"),
			SeedDemoData:    v.GetBool("DATABASE_SEED_DEMO_DATA"),
		},
		AI: AIConfig{
			Provider:       strings.ToLower(v.GetString("AI_PROVIDER")),
			GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
			OllamaHost:     v.GetString("OLLAMA_HOST"),
			FastModel:      v.GetString("AI_FAST_MODEL"),
			ProModel:       v.GetString("AI_PRO_MODEL"),
			RequestTimeout: v.GetDuration("AI_REQUEST_TIMEOUT"),
		},
		GitHub: GitHubConfig{
			AppID:          v.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath: v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			WebhookSecret:  v.GetString("GITHUB_WEBHOOK_SECRET"),
			Token:          v.GetString("GITHUB_TOKEN"),
		},
		Storage: StorageConfig{
			RepoPath:     v.GetString("REPO_PATH"),
			CloneEnabled: v.GetBool("CLONE_ENABLED"),
		},
		Pipeline: PipelineConfig{
			StageDelay:             v.GetDuration("PIPELINE_STAGE_DELAY"),
			AutoHeal:               v.GetBool("PIPELINE_AUTO_HEAL"),
			MaxWorkers:             v.GetInt("MAX_WORKERS"),
			QueueSize:              v.GetInt("QUEUE_SIZE"),
			TimeSavedPerOnboarding: v.GetInt("TIME_SAVED_PER_ONBOARDING"),
			TimeSavedPerFix:        v.GetInt("TIME_SAVED_PER_FIX"),
		},
		Logging: logger.Config{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
			Output: strings.ToLower(v.GetString("LOG_OUTPUT")),
		},
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER: %q", c.Database.Driver)
	}
	if c.Pipeline.MaxWorkers < 0 {
		return fmt.Errorf("MAX_WORKERS must not be negative, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.StageDelay < 0 {
		return fmt.Errorf("PIPELINE_STAGE_DELAY must not be negative")
	}
	if c.Storage.CloneEnabled && strings.TrimSpace(c.Storage.RepoPath) == "" {
		return fmt.Errorf("REPO_PATH must be set when cloning is enabled")
	}
	return nil
}

// Validate checks provider and credential combinations.
func (a *AIConfig) Validate() error {
	switch a.Provider {
	case ProviderGenAI, ProviderGemini:
		if a.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be set for the %s provider", a.Provider)
		}
	case ProviderOllama:
		if a.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST must be set for the ollama provider")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER: %q", a.Provider)
	}
	if a.FastModel == "" || a.ProModel == "" {
		return fmt.Errorf("AI_FAST_MODEL and AI_PRO_MODEL must be set")
	}
	if a.RequestTimeout <= 0 {
		return fmt.Errorf("AI_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// WebhookEnabled reports whether GitHub webhooks can be verified.
func (g *GitHubConfig) WebhookEnabled() bool {
	return g.WebhookSecret != ""
}

// AppEnabled reports whether GitHub App installation auth is configured.
func (g *GitHubConfig) AppEnabled() bool {
	return g.AppID != 0 && g.PrivateKeyPath != ""
}
