package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config collects everything the bot reads from the environment.
type Config struct {
	BotToken      string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	Proxy         string

	DBPath   string
	HTTPAddr string
	LogLevel string

	// LLMTimeout bounds one pipeline run; the store transaction itself
	// has no timeout, it is bounded by the statement ceiling.
	LLMTimeout   time.Duration
	ContextLimit int
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := &Config{
		BotToken:      getEnv("BOT_TOKEN", ""),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL_NAME", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		Proxy:         getEnv("PROXY", ""),
		DBPath:        getEnv("DATABASE_PATH", "warehouse_v4.db"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		ContextLimit:  getEnvAsInt("CONTEXT_LIMIT", 20),
	}

	if cfg.BotToken == "" || cfg.OpenAIKey == "" {
		return nil, errors.New("BOT_TOKEN and OPENAI_API_KEY must be set")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
