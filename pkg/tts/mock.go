package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	// StreamFunc is called when Stream is invoked.
	// If nil, Stream returns a ScriptedStream over Chunks.
	StreamFunc func(ctx context.Context, text string) (AudioStream, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Chunks is the audio the default Stream implementation plays back.
	Chunks [][]byte

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// NewMock creates a mock provider that streams the given chunks.
func NewMock(chunks ...[]byte) *Mock {
	return &Mock{
		Chunks: chunks,
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.recordCall("Synthesize", text)
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}

	var audio []byte
	for _, c := range m.Chunks {
		audio = append(audio, c...)
	}
	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1},
		CharCount: len(text),
	}, nil
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, text string) (AudioStream, error) {
	m.recordCall("Stream", text)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, text)
	}
	return NewScriptedStream(m.Chunks, nil), nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls to the named method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastText returns the text argument of the most recent Stream or
// Synthesize call, or "" when there is none.
func (m *Mock) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Text != "" {
			return m.calls[i].Text
		}
	}
	return ""
}

func (m *Mock) recordCall(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
}

// ScriptedStream is an AudioStream that replays a fixed chunk sequence.
// If FailAfter is non-negative, Read returns failErr once that many chunks
// have been delivered, which exercises partial-stream handling in callers.
type ScriptedStream struct {
	chunks    [][]byte
	pos       int
	failAfter int
	failErr   error
	closed    bool
}

// NewScriptedStream creates a stream over chunks. A non-nil failErr makes
// the stream fail after all chunks are delivered instead of ending cleanly.
func NewScriptedStream(chunks [][]byte, failErr error) *ScriptedStream {
	return &ScriptedStream{
		chunks:    chunks,
		failAfter: len(chunks),
		failErr:   failErr,
	}
}

// FailAt makes the stream return failErr after n chunks.
func (s *ScriptedStream) FailAt(n int, err error) *ScriptedStream {
	s.failAfter = n
	s.failErr = err
	return s
}

// Read returns the next scripted chunk.
func (s *ScriptedStream) Read() ([]byte, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.failErr != nil && s.pos >= s.failAfter {
		return nil, s.failErr
	}
	if s.pos >= len(s.chunks) {
		return nil, nil
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

// Close marks the stream closed.
func (s *ScriptedStream) Close() error {
	s.closed = true
	return nil
}

// Format returns a fixed MP3 format.
func (s *ScriptedStream) Format() AudioFormat {
	return AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1}
}

// Verify mock types implement their interfaces at compile time.
var (
	_ Provider    = (*Mock)(nil)
	_ AudioStream = (*ScriptedStream)(nil)
)
