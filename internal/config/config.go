package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Review backends.
const (
	ReviewClaude = "claude"
	ReviewOllama = "ollama"
	ReviewManual = "manual"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	ArtworkPath     string
	ReviewBackend   string
	OllamaHost      string
	OllamaModel     string
	ClaudeAPIKey    string
	ClaudeModel     string
	RenderCacheSize int
	LogLevel        string
	LogFile         string
}

// Load reads the environment, after merging in the file named by ENV_FILE
// (default .env) if it exists. Variables already set win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cacheSize, err := strconv.Atoi(getEnv("RENDER_CACHE_SIZE", "256"))
	if err != nil || cacheSize <= 0 {
		return nil, errors.New("RENDER_CACHE_SIZE must be a positive integer")
	}

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "/data/wardrobe.db"),
		ArtworkPath:     getEnv("ARTWORK_PATH", "/data/artwork"),
		ReviewBackend:   getEnv("REVIEW_BACKEND", ReviewManual),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llava"),
		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		RenderCacheSize: cacheSize,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ReviewBackend {
	case ReviewClaude:
		if c.ClaudeAPIKey == "" {
			return errors.New("CLAUDE_API_KEY is required when REVIEW_BACKEND=claude")
		}
	case ReviewOllama, ReviewManual:
	default:
		return fmt.Errorf("unknown REVIEW_BACKEND %q", c.ReviewBackend)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
