package session

// Phase represents where a voice session is in the exchange cycle.
type Phase int

const (
	// PhaseIdle means no recording or reply is in progress.
	PhaseIdle Phase = iota

	// PhaseListening means mic audio is being relayed to transcription.
	PhaseListening

	// PhaseProcessing means a reply is being generated.
	PhaseProcessing

	// PhaseSpeaking means synthesized audio is streaming to the client.
	PhaseSpeaking
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListening:
		return "listening"
	case PhaseProcessing:
		return "processing"
	case PhaseSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
