package stt

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrSessionStopped is returned when using a session that has been stopped.
	ErrSessionStopped = errors.New("stt: session stopped")

	// ErrConnectFailed is returned when the provider socket could not be opened.
	ErrConnectFailed = errors.New("stt: provider connection failed")

	// ErrConnectTimeout is returned when the provider socket did not open in time.
	ErrConnectTimeout = errors.New("stt: timed out waiting for provider connection")
)
