package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

func NewStartRecordingMessage() (*Message, error) {
	return NewMessage(TypeStartRecording, nil)
}

func NewStopRecordingMessage() (*Message, error) {
	return NewMessage(TypeStopRecording, nil)
}

// NewReadyMessage creates a ready message
func NewReadyMessage(text string) (*Message, error) {
	return NewMessage(TypeReady, ReadyData{Message: text})
}

// NewRecordingStartedMessage creates a recording_started acknowledgment
func NewRecordingStartedMessage() (*Message, error) {
	return NewMessage(TypeRecordingStarted, nil)
}

// NewRecordingStoppedMessage creates a recording_stopped message with the
// accumulated transcript
func NewRecordingStoppedMessage(fullTranscript string) (*Message, error) {
	return NewMessage(TypeRecordingStopped, RecordingStoppedData{
		FullTranscript: fullTranscript,
	})
}

// NewTranscriptMessage creates a transcript message
func NewTranscriptMessage(text string, isFinal bool) (*Message, error) {
	return NewMessage(TypeTranscript, TranscriptData{
		Data:    text,
		IsFinal: isFinal,
	})
}

// NewAIResponseMessage creates an ai_response message
func NewAIResponseMessage(text string) (*Message, error) {
	return NewMessage(TypeAIResponse, AIResponseData{Data: text})
}

// NewAudioMessage creates an audio chunk message from raw audio bytes
func NewAudioMessage(chunk []byte, format string, chunkIndex int) (*Message, error) {
	return NewMessage(TypeAudio, AudioData{
		Data:       base64.StdEncoding.EncodeToString(chunk),
		Format:     format,
		ChunkIndex: chunkIndex,
	})
}

// NewAudioEndMessage creates an audio_end message
func NewAudioEndMessage(totalChunks int) (*Message, error) {
	return NewMessage(TypeAudioEnd, AudioEndData{TotalChunks: totalChunks})
}

// NewControlMessage creates a control message
func NewControlMessage(action string) (*Message, error) {
	return NewMessage(TypeControl, ControlData{Action: action})
}

// NewControlAckMessage creates a control acknowledgment
func NewControlAckMessage(action string) (*Message, error) {
	return NewMessage(TypeControlAck, ControlAckData{Action: action})
}

// NewTextInputMessage creates a text_input message
func NewTextInputMessage(text string) (*Message, error) {
	return NewMessage(TypeTextInput, TextInputData{Message: text})
}

// NewErrorMessage creates an error message
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: text})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetTextInputData extracts text input data from a message
func (m *Message) GetTextInputData() (*TextInputData, error) {
	var data TextInputData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControlData extracts control data from a message
func (m *Message) GetControlData() (*ControlData, error) {
	var data ControlData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTranscriptData extracts transcript data from a message
func (m *Message) GetTranscriptData() (*TranscriptData, error) {
	var data TranscriptData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAIResponseData extracts AI response data from a message
func (m *Message) GetAIResponseData() (*AIResponseData, error) {
	var data AIResponseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioData extracts audio chunk data from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 audio payload
func (a *AudioData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// GetAudioEndData extracts audio_end data from a message
func (m *Message) GetAudioEndData() (*AudioEndData, error) {
	var data AudioEndData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRecordingStoppedData extracts recording_stopped data from a message
func (m *Message) GetRecordingStoppedData() (*RecordingStoppedData, error) {
	var data RecordingStoppedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
