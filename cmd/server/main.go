// voicebridge server: accepts WebSocket voice sessions and mediates
// between the client and the speech/LLM providers.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/log"
	"github.com/voicebridge/voicebridge/pkg/contextcache"
	"github.com/voicebridge/voicebridge/pkg/llm"
	"github.com/voicebridge/voicebridge/pkg/server"
	"github.com/voicebridge/voicebridge/pkg/session"
	"github.com/voicebridge/voicebridge/pkg/stt"
	"github.com/voicebridge/voicebridge/pkg/tts"
)

var port = flag.String("port", "", "HTTP server port (overrides PORT)")

func main() {
	flag.Parse()

	// Optional; a missing .env is fine in production
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicebridge: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	log.Init(cfg.LogLevel)

	sttClient, err := stt.NewClient(
		stt.WithAPIKey(cfg.DeepgramAPIKey),
	)
	if err != nil {
		log.Error("stt client setup failed", "error", err)
		os.Exit(1)
	}

	llmOpts := []llm.Option{
		llm.WithAPIKey(cfg.OpenAIAPIKey),
		llm.WithModel(cfg.LLMModel),
	}
	if cfg.LLMBaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLMBaseURL))
	}
	if cfg.SystemPrompt != "" {
		llmOpts = append(llmOpts, llm.WithSystemPrompt(cfg.SystemPrompt))
	}
	llmClient, err := llm.NewClient(llmOpts...)
	if err != nil {
		log.Error("llm client setup failed", "error", err)
		os.Exit(1)
	}
	defer llmClient.Close()

	ttsClient, err := tts.NewElevenLabs(
		tts.WithAPIKey(cfg.ElevenLabsAPIKey),
		tts.WithVoice(cfg.ElevenLabsVoiceID),
	)
	if err != nil {
		log.Error("tts client setup failed", "error", err)
		os.Exit(1)
	}
	defer ttsClient.Close()

	var cache contextcache.Provider
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = contextcache.NewRedis(rdb)
		log.Info("context cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		cache = contextcache.NewMemory()
		log.Info("context cache in memory")
	}
	defer cache.Close()

	srv := server.New(server.Providers{
		Recorders: func() session.Recorder { return sttClient.NewSession() },
		Responder: llmClient,
		Speech:    ttsClient,
		Context:   cache,
	})

	go func() {
		if err := srv.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("voicebridge up",
		"port", cfg.Port,
		"voice", "/ws/voice",
		"events", "/ws/events",
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
