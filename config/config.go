package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"daybook/models"
)

// Config holds runtime configuration, loaded from environment variables
// with sensible defaults for a single-user local deployment.
type Config struct {
	// Server
	Port string

	// Storage
	DataDir string

	// Logging
	LogFile    string // empty = stderr only
	LogMaxSize int    // megabytes per rotated file

	// Monitoring
	EnableMetrics bool

	// Mutation rate limiting (per client IP)
	MutationsPerMinute int
	MutationBurst      int

	// Categories; empty = built-in defaults
	CategoriesFile string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8090"),
		DataDir:            getEnv("DATA_DIR", "./data"),
		LogFile:            getEnv("LOG_FILE", ""),
		LogMaxSize:         getEnvInt("LOG_MAX_SIZE_MB", 10),
		EnableMetrics:      getEnvBool("ENABLE_METRICS", true),
		MutationsPerMinute: getEnvInt("MUTATIONS_PER_MINUTE", 60),
		MutationBurst:      getEnvInt("MUTATION_BURST", 20),
		CategoriesFile:     getEnv("CATEGORIES_FILE", ""),
	}
}

// Categories returns the static category list: the JSON file when
// configured, the built-in defaults otherwise.
func (c *Config) Categories() ([]models.Category, error) {
	if c.CategoriesFile == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(c.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("decode categories file: %w", err)
	}
	return categories, nil
}

// DefaultCategories is the built-in category list.
func DefaultCategories() []models.Category {
	return []models.Category{
		{ID: "work", Name: "Work", Color: "#3b82f6"},
		{ID: "personal", Name: "Personal", Color: "#22c55e"},
		{ID: "family", Name: "Family", Color: "#f59e0b"},
		{ID: "health", Name: "Health", Color: "#ef4444"},
		{ID: "other", Name: "Other", Color: "#8b5cf6"},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
