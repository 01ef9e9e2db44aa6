package client

import (
	"io"
	"sync"
	"sync/atomic"
)

// WriterSink streams appended chunks into an io.Writer, typically a
// pipe into an external audio player or a capture file. Each append
// completes asynchronously and reports through the OnDone callback,
// which keeps the writer off the caller's path the way a real media
// buffer would.
type WriterSink struct {
	w       io.Writer
	playing atomic.Bool

	mu     sync.Mutex
	onDone func(error)
}

// NewWriterSink creates a sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// OnDone sets the append completion callback.
func (s *WriterSink) OnDone(fn func(error)) {
	s.mu.Lock()
	s.onDone = fn
	s.mu.Unlock()
}

// Ready always reports true; an io.Writer needs no priming.
func (s *WriterSink) Ready() bool { return true }

// Append writes the chunk asynchronously. The Playback driving this
// sink guarantees no second append arrives before completion, so
// writes stay ordered.
func (s *WriterSink) Append(chunk []byte) error {
	go func() {
		_, err := s.w.Write(chunk)

		s.mu.Lock()
		fn := s.onDone
		s.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}()
	return nil
}

// Play marks the sink as playing.
func (s *WriterSink) Play() error {
	s.playing.Store(true)
	return nil
}

// Pause marks the sink as paused.
func (s *WriterSink) Pause() error {
	s.playing.Store(false)
	return nil
}

// Playing reports whether Play has been called without a later Pause.
func (s *WriterSink) Playing() bool {
	return s.playing.Load()
}

var _ Sink = (*WriterSink)(nil)
