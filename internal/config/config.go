// Package config loads the immutable service configuration.
//
// Precedence: built-in defaults, then an optional YAML file, then
// environment variables. A .env file is honored when present. The
// resulting Config is a plain value handed to each component at
// construction; nothing reads process-wide state after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all tunables for the memory service.
type Config struct {
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`

	Memory   MemoryConfig   `yaml:"memory"`
	Distill  DistillConfig  `yaml:"distill"`
	Context  ContextConfig  `yaml:"context"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Quota    QuotaConfig    `yaml:"quota"`
}

// MemoryConfig holds tier TTLs and ephemeral-store sizing.
type MemoryConfig struct {
	STMTTL             time.Duration `yaml:"stm_ttl"`
	ITMTTL             time.Duration `yaml:"itm_ttl"`
	PromotionThreshold int           `yaml:"promotion_threshold"`
	STMMaxSize         int           `yaml:"stm_max_size"`
	ITMMaxSize         int           `yaml:"itm_max_size"`
	SessionCacheMB     int64         `yaml:"session_cache_mb"`
}

// DistillConfig holds the batch engine thresholds and schedule.
type DistillConfig struct {
	EmotionalWeightThreshold float64       `yaml:"emotional_weight_threshold"`
	ConfidenceThreshold      float64       `yaml:"confidence_threshold"`
	MinSuccessRate           float64       `yaml:"min_success_rate"`
	MinGroupSize             int           `yaml:"min_group_size"`
	Lookback                 time.Duration `yaml:"lookback"`
	ScheduleHourUTC          int           `yaml:"schedule_hour_utc"`
}

// ContextConfig holds per-tier slice sizes for context composition.
type ContextConfig struct {
	STMLimit int `yaml:"stm_limit"`
	ITMLimit int `yaml:"itm_limit"`
	LTMLimit int `yaml:"ltm_limit"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider   string `yaml:"provider"` // openai | ollama | mock
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// QuotaConfig holds per-plan storage limits in GB; negative means unlimited.
type QuotaConfig struct {
	FreeGB  float64 `yaml:"free_gb"`
	BasicGB float64 `yaml:"basic_gb"`
	ProGB   float64 `yaml:"pro_gb"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:   "8001",
		DBPath: defaultDBPath(),
		Memory: MemoryConfig{
			STMTTL:             time.Hour,
			ITMTTL:             7 * 24 * time.Hour,
			PromotionThreshold: 3,
			STMMaxSize:         20,
			ITMMaxSize:         100,
			SessionCacheMB:     64,
		},
		Distill: DistillConfig{
			EmotionalWeightThreshold: 0.3,
			ConfidenceThreshold:      0.7,
			MinSuccessRate:           0.5,
			MinGroupSize:             2,
			Lookback:                 24 * time.Hour,
			ScheduleHourUTC:          2,
		},
		Context: ContextConfig{
			STMLimit: 5,
			ITMLimit: 2,
			LTMLimit: 3,
		},
		Embedder: EmbedderConfig{
			Provider:   "mock",
			Model:      "text-embedding-3-small",
			Dimensions: 384,
		},
		Quota: QuotaConfig{
			FreeGB:  1,
			BasicGB: 10,
			ProGB:   -1,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("MNEMOS_DB", c.DBPath)

	c.Memory.STMTTL = getEnvSeconds("STM_TTL_SECONDS", c.Memory.STMTTL)
	c.Memory.ITMTTL = getEnvSeconds("ITM_TTL_SECONDS", c.Memory.ITMTTL)
	c.Memory.PromotionThreshold = getEnvInt("LTM_PROMOTION_THRESHOLD", c.Memory.PromotionThreshold)
	c.Memory.STMMaxSize = getEnvInt("STM_MAX_SIZE", c.Memory.STMMaxSize)
	c.Memory.ITMMaxSize = getEnvInt("ITM_MAX_SIZE", c.Memory.ITMMaxSize)

	c.Distill.Lookback = getEnvSeconds("DISTILL_LOOKBACK_SECONDS", c.Distill.Lookback)
	c.Distill.ScheduleHourUTC = getEnvInt("DISTILL_SCHEDULE_HOUR", c.Distill.ScheduleHourUTC)

	c.Embedder.Provider = getEnv("EMBED_PROVIDER", c.Embedder.Provider)
	c.Embedder.Model = getEnv("EMBED_MODEL", c.Embedder.Model)
	c.Embedder.BaseURL = getEnv("EMBED_BASE_URL", c.Embedder.BaseURL)
	c.Embedder.APIKey = getEnv("OPENAI_API_KEY", c.Embedder.APIKey)
	c.Embedder.Dimensions = getEnvInt("EMBED_DIMENSIONS", c.Embedder.Dimensions)

	c.Quota.FreeGB = getEnvFloat("FREE_TIER_MEMORY_GB", c.Quota.FreeGB)
	c.Quota.BasicGB = getEnvFloat("BASIC_TIER_MEMORY_GB", c.Quota.BasicGB)
	c.Quota.ProGB = getEnvFloat("PRO_TIER_MEMORY_GB", c.Quota.ProGB)
}

// Validate rejects configurations that would violate tier invariants.
func (c *Config) Validate() error {
	if c.Memory.STMTTL <= 0 || c.Memory.ITMTTL <= 0 {
		return fmt.Errorf("config: tier TTLs must be positive")
	}
	if c.Memory.PromotionThreshold < 1 {
		return fmt.Errorf("config: promotion_threshold must be at least 1, got %d", c.Memory.PromotionThreshold)
	}
	if c.Distill.MinGroupSize < 2 {
		return fmt.Errorf("config: min_group_size must be at least 2, got %d", c.Distill.MinGroupSize)
	}
	if c.Distill.ScheduleHourUTC < 0 || c.Distill.ScheduleHourUTC > 23 {
		return fmt.Errorf("config: schedule_hour_utc must be 0-23, got %d", c.Distill.ScheduleHourUTC)
	}
	if c.Context.STMLimit < 0 || c.Context.ITMLimit < 0 || c.Context.LTMLimit < 0 {
		return fmt.Errorf("config: context slice limits cannot be negative")
	}
	switch c.Embedder.Provider {
	case "openai", "ollama", "mock":
	default:
		return fmt.Errorf("config: invalid embedder provider %q, must be one of: openai, ollama, mock", c.Embedder.Provider)
	}
	if c.Embedder.Dimensions <= 0 {
		return fmt.Errorf("config: embedder dimensions must be positive, got %d", c.Embedder.Dimensions)
	}
	return nil
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.mnemos/memory.db"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
