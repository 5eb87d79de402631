package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort     string
	DatabaseURL  string
	LogLevel     string
	APIAuthToken string

	// Symmetric key used for tool x-tokens and stored platform API keys.
	EncryptionKey string

	// Candidate search API (RapidAPI-hosted).
	RapidAPIBase string
	RapidAPIKey  string

	// Hosted agent platform.
	AgentBaseURL string

	// Public base URL of this service; registered as the tool server with
	// the agent platform.
	AppBaseURL string

	SearchPollInterval time.Duration
	SearchMaxAttempts  int
}

func LoadConfig() *Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "sourcing.db"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		APIAuthToken:       getEnv("API_AUTH_TOKEN", ""),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		RapidAPIBase:       getEnv("RAPID_API_BASE", ""),
		RapidAPIKey:        getEnv("RAPID_API_KEY", ""),
		AgentBaseURL:       getEnv("AGENT_BASE_URL", "https://agent-prod.studio.lyzr.ai"),
		AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:8080"),
		SearchPollInterval: time.Duration(getEnvAsInt("SEARCH_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		SearchMaxAttempts:  getEnvAsInt("SEARCH_MAX_POLL_ATTEMPTS", 30),
	}

	if cfg.APIAuthToken == "" {
		log.Fatal("API_AUTH_TOKEN environment variable is required")
	}

	if cfg.EncryptionKey == "" {
		log.Fatal("ENCRYPTION_KEY environment variable is required")
	}

	if cfg.RapidAPIBase == "" || cfg.RapidAPIKey == "" {
		log.Println("Warning: RAPID_API_BASE / RAPID_API_KEY not set, candidate search will be unavailable")
	}

	return cfg
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
