package session

import "time"

// Event types published to monitors.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventPhase        = "phase"
	EventTranscript   = "transcript"
	EventReply        = "reply"
	EventError        = "error"
)

// Event describes a session lifecycle change for observers.
type Event struct {
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	Phase     string    `json:"phase,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Time      time.Time `json:"time"`
}

// EventSink receives session events. Implementations must not block;
// the coordinator publishes from its hot path.
type EventSink interface {
	Publish(evt Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish discards the event.
func (NopSink) Publish(Event) {}

// Verify NopSink implements EventSink at compile time.
var _ EventSink = NopSink{}
