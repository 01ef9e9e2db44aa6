package protocol

import "github.com/gorilla/websocket"

// InboundKind classifies a frame decoded at the channel boundary.
type InboundKind int

const (
	// KindDrop indicates a malformed frame that should be ignored.
	KindDrop InboundKind = iota
	// KindMessage indicates a structured JSON message.
	KindMessage
	// KindAudio indicates a raw binary audio frame.
	KindAudio
)

// Inbound is the tagged union produced by DecodeInbound. Exactly one of
// Msg or Audio is set, according to Kind.
type Inbound struct {
	Kind  InboundKind
	Msg   *Message
	Audio []byte
}

// DecodeInbound classifies a single WebSocket frame. Binary frames are
// always raw audio. Text frames are parsed as structured messages; a text
// frame that fails to parse is dropped rather than raising an error.
func DecodeInbound(wsMsgType int, data []byte) Inbound {
	if wsMsgType == websocket.BinaryMessage {
		return Inbound{Kind: KindAudio, Audio: data}
	}

	msg, err := ParseMessage(data)
	if err != nil {
		return Inbound{Kind: KindDrop}
	}
	return Inbound{Kind: KindMessage, Msg: msg}
}
