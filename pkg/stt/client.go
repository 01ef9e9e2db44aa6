// Package stt provides live speech-to-text over Deepgram's streaming API.
//
// A Client is long-lived and cheap to share; each recording gets its own
// single-use Session. Audio is forwarded as-is, in whatever container the
// microphone produced, and transcripts come back through callbacks.
package stt

import (
	"context"

	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"

	"github.com/voicebridge/voicebridge/internal/log"
)

// liveConn is the subset of the provider socket a session drives.
type liveConn interface {
	Connect() bool
	WriteBinary(data []byte) error
	Stop()
}

// dialFunc opens a provider socket whose event callbacks land on s.
type dialFunc func(ctx context.Context, s *Session) (liveConn, error)

// Client creates live transcription sessions.
type Client struct {
	cfg *Config
}

// NewClient creates a speech-to-text client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Logger == nil {
		cfg.Logger = log.L()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

// NewSession returns a fresh single-use transcription session.
func (c *Client) NewSession() *Session {
	return newSession(c.cfg, c.dial)
}

func (c *Client) dial(ctx context.Context, s *Session) (liveConn, error) {
	cOptions := &interfaces.ClientOptions{
		EnableKeepAlive: c.cfg.KeepAlive,
	}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          c.cfg.Model,
		Language:       c.cfg.Language,
		Punctuate:      c.cfg.Punctuate,
		SmartFormat:    c.cfg.SmartFormat,
		InterimResults: c.cfg.InterimResults,
		UtteranceEndMs: c.cfg.UtteranceEndMs,
	}

	conn, err := listen.NewWebSocket(ctx, c.cfg.APIKey, cOptions, tOptions, s)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
