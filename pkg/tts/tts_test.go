package tts_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voicebridge/voicebridge/pkg/tts"
)

func newTestProvider(t *testing.T, url string) *tts.ElevenLabs {
	t.Helper()
	provider, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("test-voice"),
		tts.WithBaseURL(url),
		tts.WithRetry(0, 0),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs() error = %v", err)
	}
	return provider
}

func TestNewElevenLabsValidation(t *testing.T) {
	t.Run("missing API key", func(t *testing.T) {
		_, err := tts.NewElevenLabs(tts.WithVoice("v"))
		if !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("missing voice", func(t *testing.T) {
		_, err := tts.NewElevenLabs(tts.WithAPIKey("k"))
		if !errors.Is(err, tts.ErrNoVoiceID) {
			t.Errorf("error = %v, want ErrNoVoiceID", err)
		}
	})
}

func TestStreamDeliversChunks(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 10000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Write(payload)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	stream, err := provider.Stream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	var got []byte
	for {
		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if chunk == nil {
			break
		}
		if len(chunk) == 0 {
			t.Fatal("Read() returned an empty chunk")
		}
		got = append(got, chunk...)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("reassembled %d bytes, want %d", len(got), len(payload))
	}
}

func TestStreamReusesConnection(t *testing.T) {
	var addrs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addrs = append(addrs, r.RemoteAddr)
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	for i := 0; i < 2; i++ {
		stream, err := provider.Stream(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Stream() %d error = %v", i, err)
		}
		for {
			chunk, err := stream.Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if chunk == nil {
				break
			}
		}
		stream.Close()
	}

	if len(addrs) != 2 {
		t.Fatalf("requests = %d, want 2", len(addrs))
	}
	if addrs[0] != addrs[1] {
		t.Errorf("second stream opened a new connection: %s vs %s", addrs[0], addrs[1])
	}
}

func TestStreamInvalidRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":{"message":"invalid voice settings","status":"invalid_settings"}}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	_, err := provider.Stream(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if !apiErr.IsInvalidRequest() {
		t.Errorf("IsInvalidRequest() = false for status %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid voice settings" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Code != "invalid_settings" {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestStreamSoftEndAfterPartialDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise more bytes than delivered so the client sees a
		// transport fault mid-stream.
		w.Header().Set("Content-Length", "100000")
		w.Write(bytes.Repeat([]byte{0xCD}, 4096))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	stream, err := provider.Stream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	delivered := 0
	for {
		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("Read() error = %v, want clean end after partial delivery", err)
		}
		if chunk == nil {
			break
		}
		delivered++
	}
	if delivered == 0 {
		t.Error("expected at least one chunk before the fault")
	}
}

func TestStreamHardErrorBeforeFirstByte(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Headers go out, then the body faults with nothing delivered.
		w.Header().Set("Content-Length", "100000")
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	stream, err := provider.Stream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	if _, err := stream.Read(); err == nil {
		t.Error("Read() error = nil, want transport error before first byte")
	}
}

func TestStreamEmptyText(t *testing.T) {
	provider := newTestProvider(t, "http://unused.invalid")
	defer provider.Close()

	if _, err := provider.Stream(context.Background(), ""); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestSynthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(audio)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !bytes.Equal(result.Audio, audio) {
		t.Errorf("audio = %v, want %v", result.Audio, audio)
	}
	if result.CharCount != 11 {
		t.Errorf("charCount = %d, want 11", result.CharCount)
	}
}

func TestRetryResendsFullBody(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	var bodies [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(audio)
	}))
	defer server.Close()

	provider, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithVoice("test-voice"),
		tts.WithBaseURL(server.URL),
		tts.WithRetry(1, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs() error = %v", err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !bytes.Equal(result.Audio, audio) {
		t.Errorf("audio = %v, want %v", result.Audio, audio)
	}
	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if len(bodies[1]) == 0 {
		t.Fatal("retried request carried an empty body")
	}
	if !bytes.Equal(bodies[0], bodies[1]) {
		t.Errorf("retried body differs from original: %d vs %d bytes", len(bodies[1]), len(bodies[0]))
	}
}

func TestAPIErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   tts.APIError
		check func(*tts.APIError) bool
		want  bool
	}{
		{"401 unauthorized", tts.APIError{StatusCode: 401}, (*tts.APIError).IsUnauthorized, true},
		{"400 invalid", tts.APIError{StatusCode: 400}, (*tts.APIError).IsInvalidRequest, true},
		{"422 invalid", tts.APIError{StatusCode: 422}, (*tts.APIError).IsInvalidRequest, true},
		{"429 rate limited", tts.APIError{StatusCode: 429}, (*tts.APIError).IsRateLimited, true},
		{"quota code", tts.APIError{StatusCode: 401, Code: "quota_exceeded"}, (*tts.APIError).IsQuotaExceeded, true},
		{"500 server", tts.APIError{StatusCode: 500}, (*tts.APIError).IsServerError, true},
		{"503 retryable", tts.APIError{StatusCode: 503}, (*tts.APIError).IsRetryable, true},
		{"404 not retryable", tts.APIError{StatusCode: 404}, (*tts.APIError).IsRetryable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(&tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScriptedStream(t *testing.T) {
	chunks := [][]byte{{1}, {2}, {3}}

	t.Run("clean playback", func(t *testing.T) {
		stream := tts.NewScriptedStream(chunks, nil)
		for i := range chunks {
			chunk, err := stream.Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !bytes.Equal(chunk, chunks[i]) {
				t.Errorf("chunk %d = %v, want %v", i, chunk, chunks[i])
			}
		}
		if chunk, err := stream.Read(); chunk != nil || err != nil {
			t.Errorf("final Read() = %v, %v, want nil, nil", chunk, err)
		}
	})

	t.Run("fail at position", func(t *testing.T) {
		boom := errors.New("boom")
		stream := tts.NewScriptedStream(chunks, nil).FailAt(2, boom)
		for i := 0; i < 2; i++ {
			if _, err := stream.Read(); err != nil {
				t.Fatalf("Read() %d error = %v", i, err)
			}
		}
		if _, err := stream.Read(); !errors.Is(err, boom) {
			t.Errorf("Read() error = %v, want boom", err)
		}
	})

	t.Run("closed stream", func(t *testing.T) {
		stream := tts.NewScriptedStream(chunks, nil)
		stream.Close()
		if _, err := stream.Read(); !errors.Is(err, tts.ErrStreamClosed) {
			t.Errorf("Read() error = %v, want ErrStreamClosed", err)
		}
	})
}

func TestMockTracksCalls(t *testing.T) {
	mock := tts.NewMock([]byte{1, 2}, []byte{3})

	stream, err := mock.Stream(context.Background(), "say this")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	stream.Close()

	if mock.CallCount("Stream") != 1 {
		t.Errorf("Stream call count = %d, want 1", mock.CallCount("Stream"))
	}
	if mock.LastText() != "say this" {
		t.Errorf("LastText() = %q", mock.LastText())
	}
}
