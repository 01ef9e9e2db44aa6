package client

import (
	"log/slog"
	"sync"
)

// Sink is the append-only media buffer reply audio is fed into. It
// rejects concurrent appends, so Playback guarantees a single append
// in flight at a time. Completion is signaled back to the Playback
// through AppendDone, not through Append's return value: a nil return
// only means the append was accepted.
type Sink interface {
	Ready() bool
	Append(chunk []byte) error
	Play() error
	Pause() error
}

// Playback buffers inbound audio chunks and drives them through a
// Sink one at a time. Chunks queue while an append is in flight or
// the sink is not ready; the sink's completion notification dequeues
// the next one.
type Playback struct {
	sink   Sink
	logger *slog.Logger

	mu        sync.Mutex
	queue     [][]byte
	appending bool
	started   bool
}

// NewPlayback creates a playback buffer over sink.
func NewPlayback(sink Sink, logger *slog.Logger) *Playback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Playback{sink: sink, logger: logger}
}

// Enqueue accepts one audio chunk. The first chunk also attempts to
// start playback; a sink that refuses to start (autoplay gating on
// some platforms) is logged and left paused until resumed elsewhere.
func (p *Playback) Enqueue(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	p.mu.Lock()
	first := !p.started
	p.started = true
	p.queue = append(p.queue, chunk)
	p.mu.Unlock()

	p.Drain()

	if first {
		if err := p.sink.Play(); err != nil {
			p.logger.Info("playback start deferred", "error", err)
		}
	}
}

// AppendDone is the sink's completion callback. It clears the
// in-flight flag and drives the next queued chunk.
func (p *Playback) AppendDone(err error) {
	if err != nil {
		p.logger.Warn("sink append failed", "error", err)
	}

	p.mu.Lock()
	p.appending = false
	p.mu.Unlock()

	p.Drain()
}

// Drain appends the next queued chunk if the sink is ready and no
// append is in flight. A chunk the sink rejects outright is dropped
// rather than stalling the stream, and the next one is tried.
func (p *Playback) Drain() {
	p.mu.Lock()
	for !p.appending && p.sink.Ready() && len(p.queue) > 0 {
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.appending = true
		p.mu.Unlock()

		err := p.sink.Append(next)

		p.mu.Lock()
		if err == nil {
			break
		}
		p.logger.Warn("sink rejected chunk", "error", err)
		p.appending = false
	}
	p.mu.Unlock()
}

// Clear drops all pending chunks and pauses the sink. Used at
// end-of-session or when a new reply preempts the current one.
func (p *Playback) Clear() {
	p.mu.Lock()
	p.queue = nil
	p.appending = false
	p.started = false
	p.mu.Unlock()

	if err := p.sink.Pause(); err != nil {
		p.logger.Debug("sink pause failed", "error", err)
	}
}

// Pending returns the number of queued chunks.
func (p *Playback) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Appending reports whether an append is in flight.
func (p *Playback) Appending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appending
}
