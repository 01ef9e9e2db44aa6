// Package protocol defines the WebSocket message types for client-server
// voice sessions. This package is shared between the voicebridge server and
// its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeStartRecording MessageType = "start_recording" // Begin a recording session
	TypeStopRecording  MessageType = "stop_recording"  // End the recording session
	TypeTextInput      MessageType = "text_input"      // Text query bypassing speech input
	TypeControl        MessageType = "control"         // Session control (mute, end)

	// Server → Client messages
	TypeReady            MessageType = "ready"             // Channel is usable
	TypeRecordingStarted MessageType = "recording_started" // Recording acknowledged
	TypeRecordingStopped MessageType = "recording_stopped" // Recording finished
	TypeTranscript       MessageType = "transcript"        // Interim or final transcript
	TypeAIResponse       MessageType = "ai_response"       // Assistant reply text
	TypeAudio            MessageType = "audio"             // One synthesized audio chunk
	TypeAudioEnd         MessageType = "audio_end"         // Audio stream complete
	TypeControlAck       MessageType = "control_ack"       // Control action acknowledged
	TypeError            MessageType = "error"             // Non-fatal fault

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Control actions carried by TypeControl messages.
const (
	ActionMute       = "mute"
	ActionUnmute     = "unmute"
	ActionEndSession = "end_session"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// TextInputData carries a text query that bypasses speech input
type TextInputData struct {
	Message string `json:"message"`
}

// ControlData carries a session control action
type ControlData struct {
	Action string `json:"action"` // "mute", "unmute", "end_session"
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// ReadyData signals the channel is usable
type ReadyData struct {
	Message string `json:"message"`
}

// RecordingStoppedData carries the accumulated transcript of the recording
type RecordingStoppedData struct {
	FullTranscript string `json:"fullTranscript,omitempty"`
}

// TranscriptData carries interim or final transcript text
type TranscriptData struct {
	Data    string `json:"data"`
	IsFinal bool   `json:"isFinal"`
}

// AIResponseData carries the assistant's reply text
type AIResponseData struct {
	Data string `json:"data"`
}

// AudioData carries one synthesized audio chunk
type AudioData struct {
	Data       string `json:"data"`   // base64 encoded
	Format     string `json:"format"` // e.g. "mp3", "wav"
	ChunkIndex int    `json:"chunkIndex"`
}

// AudioEndData signals the audio stream is complete
type AudioEndData struct {
	TotalChunks int `json:"totalChunks"`
}

// ControlAckData acknowledges a control action
type ControlAckData struct {
	Action string `json:"action"`
}

// ErrorData carries a non-fatal fault description
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
