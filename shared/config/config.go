package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Batch      BatchConfig      `yaml:"batch"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

type YouTubeConfig struct {
	APIKey       string   `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ChannelID    string   `yaml:"channel_id"`
	Competitors  []string `yaml:"competitors"`
	LookbackDays int      `yaml:"lookback_days"`
	MaxVideos    int      `yaml:"max_videos"`
}

type AIConfig struct {
	GeminiAPIKey    string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model           string `yaml:"model"`
	MaxOutputTokens int32  `yaml:"max_output_tokens"`
	Hints           string `yaml:"hints"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// BatchConfig is the recognized option surface of one orchestration run.
type BatchConfig struct {
	TargetCount       int      `yaml:"target_count"`
	IncludeCategories []string `yaml:"include_categories"`
	ExcludeCategories []string `yaml:"exclude_categories"`
	MinVolume         *int     `yaml:"min_volume"`
	MaxUsageCount     *int     `yaml:"max_usage_count"`
	SkipTrendAnalysis bool     `yaml:"skip_trend_analysis"`
	SkipResearch      bool     `yaml:"skip_research"`
	ResearchLimit     int      `yaml:"research_limit"`
	MaxConcurrent     int      `yaml:"max_concurrent"`
	MaxRetries        int      `yaml:"max_retries"`
	RunTimeoutMinutes int      `yaml:"run_timeout_minutes"`
}

// ScoringConfig exposes the selection formula coefficients. Each weight
// multiplies a normalized [0,1] factor, except PriorityWeight which multiplies
// the raw integer boost carried on the keyword.
type ScoringConfig struct {
	VolumeWeight     float64 `yaml:"volume_weight"`
	DifficultyWeight float64 `yaml:"difficulty_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	PriorityWeight   float64 `yaml:"priority_weight"`
	TrendWeight      float64 `yaml:"trend_weight"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_DSN")
	}
	if cfg.YouTube.APIKey == "" {
		cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.Schedule == "" {
		c.Schedule = "0 9 * * *" // Daily at 9 AM
	}
	if c.YouTube.LookbackDays <= 0 {
		c.YouTube.LookbackDays = 7
	}
	if c.YouTube.MaxVideos <= 0 {
		c.YouTube.MaxVideos = 10
	}
	if c.Batch.TargetCount <= 0 {
		c.Batch.TargetCount = 5
	}
	if c.Batch.ResearchLimit <= 0 {
		c.Batch.ResearchLimit = 5
	}
	if c.Batch.MaxConcurrent <= 0 {
		c.Batch.MaxConcurrent = 3
	}
	if c.Batch.MaxRetries == 0 {
		c.Batch.MaxRetries = 2
	} else if c.Batch.MaxRetries < 0 {
		c.Batch.MaxRetries = 0
	}
	if c.Batch.RunTimeoutMinutes <= 0 {
		c.Batch.RunTimeoutMinutes = 30
	}
	if c.Monitoring.HealthPort <= 0 {
		c.Monitoring.HealthPort = 8080
	}

	zero := ScoringConfig{}
	if c.Scoring == zero {
		c.Scoring = ScoringConfig{
			VolumeWeight:     0.3,
			DifficultyWeight: 0.2,
			RecencyWeight:    0.2,
			PriorityWeight:   0.1,
			TrendWeight:      0.2,
		}
	}
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set DATABASE_DSN or database.dsn)")
	}
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YouTube API key is required (set YOUTUBE_API_KEY or youtube.api_key)")
	}
	if c.YouTube.ChannelID == "" {
		return fmt.Errorf("own channel ID is required (set youtube.channel_id)")
	}
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	for _, inc := range c.Batch.IncludeCategories {
		for _, exc := range c.Batch.ExcludeCategories {
			if inc == exc {
				return fmt.Errorf("category %q is both included and excluded", inc)
			}
		}
	}
	// Telegram is optional: notifications are best-effort and the batch runs
	// without them.
	return nil
}

// NotificationsEnabled reports whether a Telegram channel is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
