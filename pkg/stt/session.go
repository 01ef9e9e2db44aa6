package stt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
)

// flushGrace gives the provider a moment to deliver trailing transcripts
// after the last audio frame before the socket is torn down.
const flushGrace = 250 * time.Millisecond

// Session is a single-use live transcription stream. Create one per
// recording; once stopped it cannot be restarted.
//
// Start, SendAudio and Stop are safe to call from multiple goroutines.
// Start and Stop are idempotent. Audio sent while the session is not
// connected is dropped without error.
type Session struct {
	mu     sync.Mutex
	cfg    *Config
	dial   dialFunc
	conn   liveConn
	logger *slog.Logger

	starting  bool
	connected bool
	stopping  bool
	stopped   bool

	openCh   chan struct{}
	openErr  error
	openOnce sync.Once

	closeOnce sync.Once

	finals []string

	onTranscript func(text string, isFinal bool)
	onError      func(err error)
	onClose      func()
}

var _ api.LiveMessageCallback = (*Session)(nil)

func newSession(cfg *Config, dial dialFunc) *Session {
	return &Session{
		cfg:    cfg,
		dial:   dial,
		logger: cfg.Logger,
		openCh: make(chan struct{}),
	}
}

// OnTranscript registers a callback for transcript events.
func (s *Session) OnTranscript(fn func(text string, isFinal bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTranscript = fn
}

// OnError registers a callback for provider errors.
func (s *Session) OnError(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// OnClose registers a callback invoked once when the provider stream ends.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}

// Start opens the provider socket. Concurrent and repeated calls result in
// a single connection attempt; callers observe readiness via WaitReady.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped || s.stopping {
		s.mu.Unlock()
		return ErrSessionStopped
	}
	if s.starting || s.connected {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.mu.Unlock()

	conn, err := s.dial(ctx, s)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrConnectFailed, err)
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		s.resolveOpen(err)
		return err
	}

	s.mu.Lock()
	if s.stopping || s.stopped {
		// Stopped while dialing; tear the socket down immediately.
		s.mu.Unlock()
		conn.Stop()
		return ErrSessionStopped
	}
	s.conn = conn
	s.mu.Unlock()

	go func() {
		if !conn.Connect() {
			s.mu.Lock()
			s.starting = false
			s.mu.Unlock()
			s.resolveOpen(ErrConnectFailed)
		}
	}()

	return nil
}

// WaitReady blocks until the provider socket is open, the configured open
// timeout elapses, or ctx is cancelled.
func (s *Session) WaitReady(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.OpenTimeout)
	defer timer.Stop()

	select {
	case <-s.openCh:
		s.mu.Lock()
		err := s.openErr
		s.mu.Unlock()
		return err
	case <-timer.C:
		return ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the session is connected and accepting audio.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && !s.stopping && !s.stopped
}

// SendAudio forwards a raw audio frame to the provider. Frames arriving
// while the socket is not open are dropped; a write failure marks the
// session disconnected but is never fatal to the caller.
func (s *Session) SendAudio(data []byte) {
	s.mu.Lock()
	conn := s.conn
	ready := s.connected && !s.stopping && !s.stopped
	s.mu.Unlock()

	if !ready || conn == nil {
		s.logger.Debug("dropping audio frame, session not ready", "bytes", len(data))
		return
	}

	if err := conn.WriteBinary(data); err != nil {
		s.logger.Warn("audio write failed", "error", err)
		s.mu.Lock()
		s.connected = false
		cb := s.onError
		s.mu.Unlock()
		if cb != nil {
			cb(fmt.Errorf("stt: audio write failed: %w", err))
		}
	}
}

// Stop ends the session. It is safe to call more than once and safe to
// call concurrently with SendAudio; audio arriving after Stop is dropped.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopping || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.resolveOpen(ErrSessionStopped)

	if conn != nil {
		time.Sleep(flushGrace)
		conn.Stop()
	}

	s.mu.Lock()
	s.stopped = true
	s.starting = false
	s.mu.Unlock()

	s.fireClose()
}

// FullTranscript returns all final transcripts joined in arrival order.
func (s *Session) FullTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.finals, " ")
}

func (s *Session) resolveOpen(err error) {
	s.openOnce.Do(func() {
		s.mu.Lock()
		s.openErr = err
		s.mu.Unlock()
		close(s.openCh)
	})
}

func (s *Session) fireClose() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cb := s.onClose
		s.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

// Open handles the provider's socket-open event.
func (s *Session) Open(or *api.OpenResponse) error {
	s.logger.Debug("transcription socket open")
	s.mu.Lock()
	s.connected = true
	s.starting = false
	s.mu.Unlock()
	s.resolveOpen(nil)
	return nil
}

// Message handles a transcript event.
func (s *Session) Message(mr *api.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if transcript == "" {
		return nil
	}

	s.mu.Lock()
	if mr.IsFinal {
		s.finals = append(s.finals, transcript)
	}
	cb := s.onTranscript
	s.mu.Unlock()

	s.logger.Debug("transcript", "text", transcript, "final", mr.IsFinal)
	if cb != nil {
		cb(transcript, mr.IsFinal)
	}
	return nil
}

// Metadata handles stream metadata.
func (s *Session) Metadata(md *api.MetadataResponse) error {
	s.logger.Debug("transcription metadata", "request_id", md.RequestID)
	return nil
}

// SpeechStarted handles voice-activity start events.
func (s *Session) SpeechStarted(ssr *api.SpeechStartedResponse) error {
	s.logger.Debug("speech started", "timestamp", ssr.Timestamp)
	return nil
}

// UtteranceEnd handles end-of-utterance events.
func (s *Session) UtteranceEnd(ur *api.UtteranceEndResponse) error {
	s.logger.Debug("utterance end", "last_word_end", ur.LastWordEnd)
	return nil
}

// Close handles the provider closing the stream.
func (s *Session) Close(cr *api.CloseResponse) error {
	s.logger.Debug("transcription socket closed", "type", cr.Type)
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.resolveOpen(ErrSessionStopped)
	s.fireClose()
	return nil
}

// Error handles a provider error event.
func (s *Session) Error(er *api.ErrorResponse) error {
	err := fmt.Errorf("stt: provider error [%s]: %s", er.Type, er.Description)
	s.logger.Error("transcription error", "type", er.Type, "description", er.Description)

	s.mu.Lock()
	s.connected = false
	s.starting = false
	cb := s.onError
	s.mu.Unlock()

	s.resolveOpen(err)
	if cb != nil {
		cb(err)
	}
	return nil
}

// UnhandledEvent handles events the SDK does not recognize.
func (s *Session) UnhandledEvent(raw []byte) error {
	s.logger.Warn("unhandled transcription event", "data", string(raw))
	return nil
}
