// Package server exposes the voice pipeline over HTTP and WebSocket.
//
// Each connection to /ws/voice gets its own session coordinator wired to
// the shared providers. /ws/events fans session lifecycle events out to
// monitoring clients, and a small JSON API reports server and session
// state.
package server

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	wsv2 "github.com/gofiber/websocket/v2"

	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/contextcache"
	"github.com/voicebridge/voicebridge/pkg/hub"
	"github.com/voicebridge/voicebridge/pkg/session"
	"github.com/voicebridge/voicebridge/pkg/tts"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Providers are the shared backends injected into every session.
// They are long-lived; per-recording state comes from Recorders.
type Providers struct {
	Recorders session.RecorderFactory
	Responder session.Responder
	Speech    tts.Provider
	Context   contextcache.Provider
}

// Server hosts the voice endpoint, the monitor hub, and the JSON API.
type Server struct {
	app       *fiber.App
	providers Providers
	monitor   *hub.Hub
	started   time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Coordinator
}

// New creates a configured server.
func New(providers Providers) *Server {
	s := &Server{
		providers: providers,
		monitor:   hub.New("events"),
		sessions:  make(map[string]*session.Coordinator),
		started:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "voicebridge",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	s.registerRoutes(app)
	s.app = app
	return s
}

func (s *Server) registerRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/sessions", s.handleSessions)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/voice", websocket.New(s.handleVoice))
	app.Get("/ws/events", wsv2.New(s.handleEvents))
}

// Listen starts the monitor hub and serves on addr. It blocks.
func (s *Server) Listen(addr string) error {
	go s.monitor.Run()
	log.Info("server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SessionCount returns the number of live voice sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) addSession(coord *session.Coordinator) {
	s.mu.Lock()
	s.sessions[coord.ID()] = coord
	s.mu.Unlock()
}

func (s *Server) removeSession(coord *session.Coordinator) {
	s.mu.Lock()
	delete(s.sessions, coord.ID())
	s.mu.Unlock()
}
