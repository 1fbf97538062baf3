package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("TRANSCRIPT_LIMIT", "25")
	t.Setenv("PROGRESS_LIMIT", "40")
	t.Setenv("CHAT_TIMEOUT_SECONDS", "5")
	t.Setenv("JWT_SECRET", "")

	LoadConfig()

	require.Equal(t, "test-key", AppConfig.GeminiAPIKey)
	assert.Equal(t, "9090", AppConfig.HTTPPort)
	assert.Equal(t, 25, AppConfig.TranscriptLimit)
	assert.Equal(t, 40, AppConfig.ProgressLimit)
	assert.Equal(t, 5*time.Second, AppConfig.ChatTimeout)
	assert.Equal(t, "gemini-1.5-pro-latest", AppConfig.GeminiModel)
	assert.False(t, AppConfig.AuthEnabled())
}

func TestLoadConfig_InvalidLimitFallsBack(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("TRANSCRIPT_LIMIT", "-3")
	t.Setenv("PROGRESS_LIMIT", "0")

	LoadConfig()

	assert.Equal(t, 100, AppConfig.TranscriptLimit)
	assert.Equal(t, 100, AppConfig.ProgressLimit)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))

	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("SOME_INT", 7))
}
