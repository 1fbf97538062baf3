package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey    string
	GeminiModel     string
	DatabaseURL     string
	HTTPPort        string
	LogLevel        string
	LogMode         string
	JWTSecret       string
	MediaDir        string
	TranscriptLimit int
	ProgressLimit   int
	ChatTimeout     time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-pro-latest"),
		DatabaseURL:     getEnv("DATABASE_URL", "synthesis_tutor.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8001"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		LogMode:         getEnv("LOG_MODE", "development"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		MediaDir:        getEnv("MEDIA_DIR", "recordings"),
		TranscriptLimit: getEnvAsInt("TRANSCRIPT_LIMIT", 100),
		ProgressLimit:   getEnvAsInt("PROGRESS_LIMIT", 100),
		ChatTimeout:     time.Duration(getEnvAsInt("CHAT_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.TranscriptLimit <= 0 {
		AppConfig.TranscriptLimit = 100
	}
	if AppConfig.ProgressLimit <= 0 {
		AppConfig.ProgressLimit = 100
	}
}

// AuthEnabled reports whether student-scoped routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
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
