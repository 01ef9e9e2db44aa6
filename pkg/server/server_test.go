package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/voicebridge/pkg/llm"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/tts"
)

func newTestServer() *Server {
	return New(Providers{
		Responder: llm.NewMock("Hello there, how can I help?"),
		Speech:    tts.NewMock([]byte("chunk-a"), []byte("chunk-b")),
	})
}

func TestNew(t *testing.T) {
	s := newTestServer()

	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.SessionCount() != 0 {
		t.Error("SessionCount should be 0 initially")
	}
}

func TestAPIHealth(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "healthy") {
		t.Error("Response should report healthy status")
	}
}

func TestAPIStatus(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sessions") {
		t.Error("Response should contain 'sessions' field")
	}
}

func TestAPISessions(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/api/sessions", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	var parsed struct {
		Count int `json:"count"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if parsed.Count != 0 {
		t.Errorf("Count = %d, want 0", parsed.Count)
	}
}

func TestUpgradeRequired(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/ws/voice", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if resp.StatusCode != 426 {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}

func TestVoiceSessionLifecycle(t *testing.T) {
	s := newTestServer()

	go s.Listen(":18090")
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/voice", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Server greets first
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var ready protocol.Message
	json.Unmarshal(data, &ready)
	if ready.Type != protocol.TypeReady {
		t.Errorf("Type = %s, want ready", ready.Type)
	}

	if s.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1", s.SessionCount())
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)

	if s.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0 after disconnect", s.SessionCount())
	}
}

func TestVoiceTextExchange(t *testing.T) {
	s := newTestServer()

	go s.Listen(":18091")
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/voice", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Drain the ready message
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("Read error: %v", err)
	}

	msg, _ := protocol.NewTextInputMessage("What is the weather like today?")
	data, _ := json.Marshal(msg)
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	// Expect ai_response, then audio chunks, then audio_end
	var types []protocol.MessageType
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ws.SetReadDeadline(time.Now().Add(time.Second))
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var m protocol.Message
		json.Unmarshal(raw, &m)
		types = append(types, m.Type)
		if m.Type == protocol.TypeAudioEnd {
			end, err := m.GetAudioEndData()
			if err != nil {
				t.Fatalf("GetAudioEndData error: %v", err)
			}
			if end.TotalChunks != 2 {
				t.Errorf("TotalChunks = %d, want 2", end.TotalChunks)
			}
			break
		}
	}

	want := []protocol.MessageType{
		protocol.TypeAIResponse,
		protocol.TypeAudio,
		protocol.TypeAudio,
		protocol.TypeAudioEnd,
	}
	if len(types) != len(want) {
		t.Fatalf("message types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestEndSessionClosesConnection(t *testing.T) {
	s := newTestServer()

	go s.Listen(":18092")
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/voice", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("Read error: %v", err)
	}

	msg, _ := protocol.NewControlMessage(protocol.ActionEndSession)
	data, _ := json.Marshal(msg)
	ws.WriteMessage(websocket.TextMessage, data)

	// The ack arrives before the server drops the connection
	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var ack protocol.Message
	json.Unmarshal(raw, &ack)
	if ack.Type != protocol.TypeControlAck {
		t.Errorf("Type = %s, want control_ack", ack.Type)
	}

	time.Sleep(100 * time.Millisecond)
	if s.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0 after end_session", s.SessionCount())
	}
}
