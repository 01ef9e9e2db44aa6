package server

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	wsv2 "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/hub"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/session"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	providers := fiber.Map{}
	status := "healthy"

	if s.providers.Speech != nil {
		if err := s.providers.Speech.Health(ctx); err != nil {
			providers["tts"] = err.Error()
			status = "degraded"
		} else {
			providers["tts"] = "ok"
		}
	}
	if hc, ok := s.providers.Responder.(interface{ Health(context.Context) error }); ok {
		if err := hc.Health(ctx); err != nil {
			providers["llm"] = err.Error()
			status = "degraded"
		} else {
			providers["llm"] = "ok"
		}
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"version":   Version,
		"providers": providers,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"uptime_seconds":  int64(time.Since(s.started).Seconds()),
		"sessions":        s.SessionCount(),
		"monitor_clients": s.monitor.ClientCount(),
	})
}

type sessionInfo struct {
	ID    string `json:"id"`
	Phase string `json:"phase"`
	Muted bool   `json:"muted"`
}

func (s *Server) handleSessions(c *fiber.Ctx) error {
	s.mu.RLock()
	infos := make([]sessionInfo, 0, len(s.sessions))
	for _, coord := range s.sessions {
		infos = append(infos, sessionInfo{
			ID:    coord.ID(),
			Phase: coord.Phase().String(),
			Muted: coord.Muted(),
		})
	}
	s.mu.RUnlock()
	return c.JSON(fiber.Map{"sessions": infos, "count": len(infos)})
}

// handleVoice owns one client conversation. The read loop is the only
// reader; the coordinator serializes writes through its guard.
func (s *Server) handleVoice(c *websocket.Conn) {
	id := uuid.New().String()
	logger := log.With("session", id)

	guard := session.NewGuard(c, logger)
	coord := session.NewCoordinator(id, guard, session.Deps{
		Recorders: s.providers.Recorders,
		Responder: s.providers.Responder,
		Speech:    s.providers.Speech,
		Context:   s.providers.Context,
		Events:    s.monitor,
		Logger:    logger,
	})

	s.addSession(coord)
	defer func() {
		coord.HandleClose()
		s.removeSession(coord)
	}()

	logger.Info("voice session connected")
	coord.Hello()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			logger.Info("voice session read ended", "error", err)
			return
		}
		if !coord.HandleInbound(protocol.DecodeInbound(mt, data)) {
			logger.Info("voice session ended by client")
			return
		}
	}
}

// handleEvents attaches a monitoring client to the event hub.
func (s *Server) handleEvents(c *wsv2.Conn) {
	client := hub.NewClient(s.monitor, c)
	client.Run()
}
