package stt

import (
	"log/slog"
	"time"
)

// Config holds speech-to-text provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey string

	// Transcription options
	Model          string
	Language       string
	Punctuate      bool
	SmartFormat    bool
	InterimResults bool
	UtteranceEndMs string

	// OpenTimeout bounds how long WaitReady blocks for the provider
	// socket to open.
	OpenTimeout time.Duration

	// KeepAlive keeps the provider socket warm during silence.
	KeepAlive bool

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the STT client.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithLanguage sets the transcription language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithInterimResults enables or disables interim (non-final) transcripts.
func WithInterimResults(enabled bool) Option {
	return func(c *Config) {
		c.InterimResults = enabled
	}
}

// WithUtteranceEndMs sets the silence window that ends an utterance.
func WithUtteranceEndMs(ms string) Option {
	return func(c *Config) {
		c.UtteranceEndMs = ms
	}
}

// WithOpenTimeout bounds how long a session waits for the socket to open.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:          "nova-2",
		Language:       "en-US",
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		OpenTimeout:    10 * time.Second,
		KeepAlive:      true,
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
