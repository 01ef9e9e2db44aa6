package session

import (
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/voicebridge/voicebridge/pkg/protocol"
)

// Sender is the write surface of a client websocket connection.
type Sender interface {
	WriteMessage(messageType int, data []byte) error
}

// Guard serializes writes to a client connection and absorbs write
// failures. Send reports delivery as a bool instead of an error so the
// pipeline can keep running after the client goes away; the first failed
// write marks the connection unhealthy and later sends are skipped.
type Guard struct {
	mu      sync.Mutex
	conn    Sender
	healthy bool
	logger  *slog.Logger
}

// NewGuard wraps a connection for guarded sending.
func NewGuard(conn Sender, logger *slog.Logger) *Guard {
	return &Guard{
		conn:    conn,
		healthy: true,
		logger:  logger,
	}
}

// Send marshals and writes msg as a text frame. It never panics and
// never propagates an error; false means the message did not go out.
func (g *Guard) Send(msg *protocol.Message) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.healthy {
		return false
	}

	data, err := msg.Bytes()
	if err != nil {
		g.logger.Error("failed to encode outbound message", "type", msg.Type, "error", err)
		return false
	}

	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		g.healthy = false
		g.logger.Warn("client write failed, marking connection unhealthy",
			"type", msg.Type,
			"error", err,
		)
		return false
	}
	return true
}

// Healthy reports whether the last write succeeded.
func (g *Guard) Healthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.healthy
}

// MarkClosed stops all further sends, used when the read loop has
// observed the connection closing.
func (g *Guard) MarkClosed() {
	g.mu.Lock()
	g.healthy = false
	g.mu.Unlock()
}
