package protocol

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "transcript message",
			msgType: TypeTranscript,
			data:    TranscriptData{Data: "hello there", IsFinal: true},
			wantErr: false,
		},
		{
			name:    "control message",
			msgType: TypeControl,
			data:    ControlData{Action: ActionMute},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	original := TranscriptData{Data: "turn on the lights", IsFinal: true}
	msg, err := NewTranscriptMessage(original.Data, original.IsFinal)
	if err != nil {
		t.Fatalf("NewTranscriptMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeTranscript {
		t.Errorf("parsed type = %v, want %v", parsed.Type, TypeTranscript)
	}

	got, err := parsed.GetTranscriptData()
	if err != nil {
		t.Fatalf("GetTranscriptData() error = %v", err)
	}
	if got.Data != original.Data {
		t.Errorf("transcript = %q, want %q", got.Data, original.Data)
	}
	if got.IsFinal != original.IsFinal {
		t.Errorf("isFinal = %v, want %v", got.IsFinal, original.IsFinal)
	}
}

func TestParseMessageInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", []byte{}},
		{"not json", []byte("not json at all")},
		{"missing type", []byte(`{"timestamp": 123}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage(tt.raw); err == nil {
				t.Error("ParseMessage() expected error, got nil")
			}
		})
	}
}

func TestAudioMessageEncoding(t *testing.T) {
	chunk := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02}

	msg, err := NewAudioMessage(chunk, "mp3", 3)
	if err != nil {
		t.Fatalf("NewAudioMessage() error = %v", err)
	}

	data, err := msg.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}
	if data.Format != "mp3" {
		t.Errorf("format = %q, want %q", data.Format, "mp3")
	}
	if data.ChunkIndex != 3 {
		t.Errorf("chunkIndex = %d, want 3", data.ChunkIndex)
	}

	// Payload must be valid base64 of the original bytes.
	if _, err := base64.StdEncoding.DecodeString(data.Data); err != nil {
		t.Fatalf("audio payload is not base64: %v", err)
	}
	decoded, err := data.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if !bytes.Equal(decoded, chunk) {
		t.Errorf("decoded audio = %v, want %v", decoded, chunk)
	}
}

func TestControlRoundTrip(t *testing.T) {
	for _, action := range []string{ActionMute, ActionUnmute, ActionEndSession} {
		msg, err := NewControlMessage(action)
		if err != nil {
			t.Fatalf("NewControlMessage(%v) error = %v", action, err)
		}
		raw, err := msg.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error = %v", err)
		}
		parsed, err := ParseMessage(raw)
		if err != nil {
			t.Fatalf("ParseMessage() error = %v", err)
		}
		got, err := parsed.GetControlData()
		if err != nil {
			t.Fatalf("GetControlData() error = %v", err)
		}
		if got.Action != action {
			t.Errorf("action = %v, want %v", got.Action, action)
		}
	}
}
