package client

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSink struct {
	mu         sync.Mutex
	ready      bool
	appends    [][]byte
	appendErrs map[int]error
	playErr    error
	playCalls  int
	pauseCalls int
}

func newFakeSink() *fakeSink {
	return &fakeSink{ready: true, appendErrs: make(map[int]error)}
}

func (s *fakeSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSink) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.appends)
	s.appends = append(s.appends, chunk)
	return s.appendErrs[idx]
}

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playCalls++
	return s.playErr
}

func (s *fakeSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseCalls++
	return nil
}

func (s *fakeSink) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appends)
}

func (s *fakeSink) setReady(v bool) {
	s.mu.Lock()
	s.ready = v
	s.mu.Unlock()
}

func TestSingleInFlightAppend(t *testing.T) {
	sink := newFakeSink()
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))
	pb.Enqueue([]byte("b"))
	pb.Enqueue([]byte("c"))

	if got := sink.appendCount(); got != 1 {
		t.Fatalf("appends = %d, want 1 before completion", got)
	}
	if pb.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", pb.Pending())
	}

	pb.AppendDone(nil)
	if got := sink.appendCount(); got != 2 {
		t.Errorf("appends = %d, want 2", got)
	}

	pb.AppendDone(nil)
	if got := sink.appendCount(); got != 3 {
		t.Errorf("appends = %d, want 3", got)
	}

	// Completion with an empty queue is a no-op
	pb.AppendDone(nil)
	if got := sink.appendCount(); got != 3 {
		t.Errorf("appends = %d, want 3 after idle completion", got)
	}
	if pb.Appending() {
		t.Error("Appending should be false with empty queue")
	}
}

func TestChunksPreserveOrder(t *testing.T) {
	sink := newFakeSink()
	pb := NewPlayback(sink, testLogger())

	for _, c := range []string{"one", "two", "three", "four"} {
		pb.Enqueue([]byte(c))
	}
	for i := 0; i < 4; i++ {
		pb.AppendDone(nil)
	}

	want := []string{"one", "two", "three", "four"}
	if len(sink.appends) != len(want) {
		t.Fatalf("appends = %d, want %d", len(sink.appends), len(want))
	}
	for i, w := range want {
		if string(sink.appends[i]) != w {
			t.Errorf("appends[%d] = %q, want %q", i, sink.appends[i], w)
		}
	}
}

func TestNotReadyQueuesUntilDrain(t *testing.T) {
	sink := newFakeSink()
	sink.setReady(false)
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))
	pb.Enqueue([]byte("b"))

	if got := sink.appendCount(); got != 0 {
		t.Fatalf("appends = %d, want 0 while sink not ready", got)
	}
	if pb.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", pb.Pending())
	}

	sink.setReady(true)
	pb.Drain()

	if got := sink.appendCount(); got != 1 {
		t.Errorf("appends = %d, want 1 after drain", got)
	}
}

func TestRejectedChunkIsDropped(t *testing.T) {
	sink := newFakeSink()
	sink.appendErrs[1] = errors.New("buffer full")
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))
	pb.Enqueue([]byte("b"))
	pb.Enqueue([]byte("c"))

	// Completing "a" tries "b", which the sink rejects; "c" should be
	// driven in the same pass instead of stalling behind it.
	pb.AppendDone(nil)

	if got := sink.appendCount(); got != 3 {
		t.Fatalf("appends = %d, want 3", got)
	}
	if string(sink.appends[2]) != "c" {
		t.Errorf("appends[2] = %q, want %q", sink.appends[2], "c")
	}
	if pb.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", pb.Pending())
	}
}

func TestFirstChunkStartsPlayback(t *testing.T) {
	sink := newFakeSink()
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))
	pb.Enqueue([]byte("b"))

	if sink.playCalls != 1 {
		t.Errorf("playCalls = %d, want 1", sink.playCalls)
	}
}

func TestBlockedPlaybackStartTolerated(t *testing.T) {
	sink := newFakeSink()
	sink.playErr = errors.New("playback blocked pending user gesture")
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))

	// The chunk is still appended even though Play was refused
	if got := sink.appendCount(); got != 1 {
		t.Errorf("appends = %d, want 1", got)
	}
}

func TestClearEmptiesAndPauses(t *testing.T) {
	sink := newFakeSink()
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue([]byte("a"))
	pb.Enqueue([]byte("b"))
	pb.Clear()

	if pb.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", pb.Pending())
	}
	if pb.Appending() {
		t.Error("Appending should be false after Clear")
	}
	if sink.pauseCalls != 1 {
		t.Errorf("pauseCalls = %d, want 1", sink.pauseCalls)
	}
}

func TestEmptyChunkIgnored(t *testing.T) {
	sink := newFakeSink()
	pb := NewPlayback(sink, testLogger())

	pb.Enqueue(nil)
	pb.Enqueue([]byte{})

	if got := sink.appendCount(); got != 0 {
		t.Errorf("appends = %d, want 0", got)
	}
	if sink.playCalls != 0 {
		t.Errorf("playCalls = %d, want 0", sink.playCalls)
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	done := make(chan error, 1)
	sink.OnDone(func(err error) { done <- err })

	if err := sink.Append([]byte("hello")); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("completion error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for append completion")
	}

	if buf.String() != "hello" {
		t.Errorf("buffer = %q, want %q", buf.String(), "hello")
	}
}

func TestWriterSinkDrivesPlayback(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	pb := NewPlayback(sink, testLogger())
	sink.OnDone(pb.AppendDone)

	pb.Enqueue([]byte("one "))
	pb.Enqueue([]byte("two "))
	pb.Enqueue([]byte("three"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pb.Pending() == 0 && !pb.Appending() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if buf.String() != "one two three" {
		t.Errorf("buffer = %q, want %q", buf.String(), "one two three")
	}
	if !sink.Playing() {
		t.Error("sink should be playing after first chunk")
	}
}
