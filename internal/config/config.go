// Package config provides environment-backed configuration for voicebridge.
package config

import (
	"fmt"
	"os"
)

// Defaults for optional settings.
const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultLLMModel = "gpt-4o-mini"
)

// Config holds process-level configuration for the voicebridge server.
type Config struct {
	// HTTP
	Port string

	// Logging
	LogLevel string

	// Provider credentials
	DeepgramAPIKey    string
	OpenAIAPIKey      string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// LLM settings
	LLMModel     string
	LLMBaseURL   string
	SystemPrompt string

	// Optional context cache backend. Empty means in-memory.
	RedisAddr string
}

// Load reads configuration from the environment.
// Provider keys are required; everything else has defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getenv("PORT", DefaultPort),
		LogLevel:          getenv("LOG_LEVEL", DefaultLogLevel),
		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		LLMModel:          getenv("LLM_MODEL", DefaultLLMModel),
		LLMBaseURL:        os.Getenv("LLM_BASE_URL"),
		SystemPrompt:      os.Getenv("SYSTEM_PROMPT"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("config: DEEPGRAM_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required")
	}
	if c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("config: ELEVENLABS_API_KEY is required")
	}
	if c.ElevenLabsVoiceID == "" {
		return fmt.Errorf("config: ELEVENLABS_VOICE_ID is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
