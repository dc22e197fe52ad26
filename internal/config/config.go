// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/virtue-stages/internal/prompt"
)

// Config holds all application configuration.
type Config struct {
	Port                string
	AppEnv              string
	AllowedOrigins      []string
	MaxRequestBodyBytes int64
	Store               StoreConfig
	Gemini              GeminiConfig
	Generation          GenerationConfig
	Cache               CacheConfig
	MetricsEnabled      bool
}

// StoreConfig controls the assessment store.
type StoreConfig struct {
	Enabled       bool
	DBPath        string
	Timeout       time.Duration
	Retention     int
	PruneInterval time.Duration
}

// GeminiConfig selects the Gemini API or Vertex AI backend.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
}

// GenerationConfig controls prompt composition and the candidate chains.
type GenerationConfig struct {
	Timeout             time.Duration
	RequestTimeout      time.Duration
	ChainFile           string
	ComposerVersion     string
	ClassifyParallelism int
	RecentPromptWindow  int
	Chains              Chains
}

// CacheConfig controls the coverage verdict cache. A non-empty RedisAddr
// selects Redis over the in-process LRU.
type CacheConfig struct {
	Size      int
	TTL       time.Duration
	RedisAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		AppEnv:              getEnv("APP_ENV", "production"),
		AllowedOrigins:      getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		Store: StoreConfig{
			Enabled:       getEnvBool("ASSESSMENT_STORE_ENABLED", true),
			DBPath:        getEnv("DB_PATH", "./data/assessments.db"),
			Timeout:       getEnvDuration("STORE_TIMEOUT", 3*time.Second),
			Retention:     getEnvInt("ASSESSMENT_RETENTION", 5),
			PruneInterval: getEnvDuration("PRUNE_INTERVAL", time.Hour),
		},
		Gemini: GeminiConfig{
			APIKey:   firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
			Project:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
			Location: getEnv("GOOGLE_CLOUD_LOCATION", ""),
		},
		Generation: GenerationConfig{
			Timeout:             getEnvDuration("GENERATION_TIMEOUT", 20*time.Second),
			RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
			ChainFile:           getEnv("MODEL_CHAIN_FILE", ""),
			ComposerVersion:     getEnv("PROMPT_COMPOSER_VERSION", prompt.VersionProgression),
			ClassifyParallelism: getEnvInt("CLASSIFY_PARALLELISM", 1),
			RecentPromptWindow:  getEnvInt("RECENT_PROMPT_WINDOW", 2),
		},
		Cache: CacheConfig{
			Size:      getEnvInt("COVERAGE_CACHE_SIZE", 512),
			TTL:       getEnvDuration("COVERAGE_CACHE_TTL", 24*time.Hour),
			RedisAddr: getEnv("REDIS_ADDR", ""),
		},
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}

	chains, err := LoadChains(cfg.Generation.ChainFile, cfg.Generation.Timeout)
	if err != nil {
		return nil, fmt.Errorf("load model chains: %w", err)
	}
	cfg.Generation.Chains = chains

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.Store.Enabled {
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when the assessment store is enabled")
		}
		if c.Store.Timeout <= 0 {
			return fmt.Errorf("STORE_TIMEOUT must be > 0")
		}
		if c.Store.Retention < 1 {
			return fmt.Errorf("ASSESSMENT_RETENTION must be >= 1")
		}
		if c.Store.PruneInterval <= 0 {
			return fmt.Errorf("PRUNE_INTERVAL must be > 0")
		}
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Generation.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if _, err := prompt.NewComposer(c.Generation.ComposerVersion); err != nil {
		return fmt.Errorf("PROMPT_COMPOSER_VERSION: %w", err)
	}
	if c.Generation.ClassifyParallelism < 1 {
		return fmt.Errorf("CLASSIFY_PARALLELISM must be >= 1")
	}
	if c.Generation.RecentPromptWindow < 1 {
		return fmt.Errorf("RECENT_PROMPT_WINDOW must be >= 1")
	}
	if len(c.Generation.Chains.Prompt) == 0 {
		return fmt.Errorf("prompt model chain cannot be empty")
	}
	if len(c.Generation.Chains.Classification) == 0 {
		return fmt.Errorf("classification model chain cannot be empty")
	}
	if c.Cache.RedisAddr == "" && c.Cache.Size <= 0 {
		return fmt.Errorf("COVERAGE_CACHE_SIZE must be > 0")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("COVERAGE_CACHE_TTL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "development", "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
