package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voicebridge/voicebridge/pkg/contextcache"
	"github.com/voicebridge/voicebridge/pkg/llm"
	"github.com/voicebridge/voicebridge/pkg/protocol"
	"github.com/voicebridge/voicebridge/pkg/tts"
)

// minRespondLen is the shortest transcript worth a generated reply.
// Anything shorter is usually a breath or a fragment of noise.
const minRespondLen = 10

// Recorder is one live transcription stream. pkg/stt sessions satisfy it.
type Recorder interface {
	Start(ctx context.Context) error
	WaitReady(ctx context.Context) error
	Ready() bool
	SendAudio(data []byte)
	Stop()
	FullTranscript() string
	OnTranscript(fn func(text string, isFinal bool))
	OnError(fn func(err error))
	OnClose(fn func())
}

// RecorderFactory creates a fresh Recorder per recording.
type RecorderFactory func() Recorder

// Responder generates the assistant's reply for an utterance.
type Responder interface {
	Reply(ctx context.Context, userText, contextText string) (string, error)
}

// Deps holds the collaborators a Coordinator drives.
type Deps struct {
	Recorders RecorderFactory
	Responder Responder
	Speech    tts.Provider
	Context   contextcache.Provider
	Events    EventSink
	Logger    *slog.Logger
}

// Coordinator runs one client's voice session: it owns the phase state
// machine, relays mic audio into a Recorder, and drives the reply leg
// (context lookup, completion, speech synthesis) for each utterance.
//
// A reply leg already in flight is never cancelled by stop or phase
// changes; if the client is gone the transmission guard absorbs the
// sends and the leg winds down on its own.
type Coordinator struct {
	id     string
	guard  *Guard
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	phase    Phase
	muted    bool
	recorder Recorder
	closed   bool

	legs sync.WaitGroup
}

// NewCoordinator creates a coordinator for one connection.
func NewCoordinator(id string, guard *Guard, deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = NopSink{}
	}
	if deps.Context == nil {
		deps.Context = contextcache.Null{}
	}
	return &Coordinator{
		id:     id,
		guard:  guard,
		deps:   deps,
		logger: deps.Logger.With("session", id),
	}
}

// ID returns the session identifier.
func (c *Coordinator) ID() string { return c.id }

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Muted reports whether inbound audio is being discarded.
func (c *Coordinator) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Hello sends the ready handshake and announces the session.
func (c *Coordinator) Hello() {
	c.send(protocol.NewReadyMessage("voice session ready"))
	c.publish(EventConnected, "")
}

// HandleInbound processes one decoded frame from the client. The return
// value is false when the session should end (client asked to hang up).
func (c *Coordinator) HandleInbound(inb protocol.Inbound) bool {
	switch inb.Kind {
	case protocol.KindAudio:
		c.handleAudio(inb.Audio)
		return true
	case protocol.KindMessage:
		return c.handleMessage(inb.Msg)
	default:
		// Malformed frame, already logged at decode.
		return true
	}
}

// HandleClose releases session resources after the connection ends.
// Safe to call even when a reply leg is still in flight.
func (c *Coordinator) HandleClose() {
	c.guard.MarkClosed()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	rec := c.recorder
	c.recorder = nil
	c.phase = PhaseIdle
	c.mu.Unlock()

	if rec != nil {
		rec.Stop()
	}
	c.publish(EventDisconnected, "")
	c.logger.Info("session closed")
}

// Wait blocks until in-flight reply legs have wound down. Used by tests
// and graceful shutdown.
func (c *Coordinator) Wait() {
	c.legs.Wait()
}

func (c *Coordinator) handleMessage(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.TypeStartRecording:
		c.handleStartRecording()
	case protocol.TypeStopRecording:
		c.handleStopRecording()
	case protocol.TypeTextInput:
		c.handleTextInput(msg)
	case protocol.TypeControl:
		return c.handleControl(msg)
	case protocol.TypePing:
		c.handlePing(msg)
	default:
		c.logger.Warn("unexpected message type", "type", msg.Type)
	}
	return true
}

func (c *Coordinator) handleAudio(data []byte) {
	c.mu.Lock()
	muted := c.muted
	rec := c.recorder
	phase := c.phase
	c.mu.Unlock()

	if muted {
		return
	}
	if rec == nil {
		// Audio outside a recording; common around stop boundaries.
		return
	}
	if phase == PhaseListening && !rec.Ready() {
		c.logger.Warn("audio frame before transcription is ready", "bytes", len(data))
	}
	rec.SendAudio(data)
}

func (c *Coordinator) handleStartRecording() {
	if c.deps.Recorders == nil {
		c.send(protocol.NewErrorMessage("speech recognition unavailable"))
		return
	}

	// Every recording gets a clean provider connection: any prior
	// recorder is stopped and discarded, never reused.
	rec := c.deps.Recorders()
	c.mu.Lock()
	old := c.recorder
	c.recorder = rec
	c.phase = PhaseListening
	c.mu.Unlock()

	if old != nil {
		c.logger.Info("discarding previous recorder for a fresh recording")
		go old.Stop()
	}

	c.publish(EventPhase, PhaseListening.String())

	rec.OnTranscript(func(text string, isFinal bool) {
		c.send(protocol.NewTranscriptMessage(text, isFinal))
		if !isFinal {
			return
		}
		c.publish(EventTranscript, text)
		if utterance := strings.TrimSpace(text); len(utterance) >= minRespondLen {
			c.launchReply(utterance)
		}
	})
	rec.OnError(func(err error) {
		c.logger.Warn("transcription error", "error", err)
		c.send(protocol.NewErrorMessage("transcription error"))
	})

	// Opening the provider socket can take seconds; do not block the
	// read loop while it happens. Audio arriving early is dropped by
	// the recorder.
	go func() {
		ctx := context.Background()
		if err := rec.Start(ctx); err != nil {
			c.failRecording(rec, err)
			return
		}
		if err := rec.WaitReady(ctx); err != nil {
			c.failRecording(rec, err)
			return
		}
		c.send(protocol.NewRecordingStartedMessage())
		c.logger.Info("recording started")
	}()
}

func (c *Coordinator) failRecording(rec Recorder, err error) {
	c.logger.Error("failed to start transcription", "error", err)
	rec.Stop()

	c.mu.Lock()
	if c.recorder == rec {
		c.recorder = nil
		c.phase = PhaseIdle
	}
	c.mu.Unlock()

	c.send(protocol.NewErrorMessage("could not start speech recognition"))
	c.publish(EventError, err.Error())
	c.publish(EventPhase, PhaseIdle.String())
}

func (c *Coordinator) handleStopRecording() {
	c.mu.Lock()
	rec := c.recorder
	c.recorder = nil
	phase := c.phase
	c.mu.Unlock()

	if rec == nil {
		if phase == PhaseIdle {
			// Duplicate stop; nothing to acknowledge twice.
			return
		}
		c.logger.Warn("stop_recording with no active recorder", "phase", phase.String())
		return
	}

	// Stop flushes trailing transcripts before the socket closes, so the
	// full transcript is only final afterwards. Run off the read loop,
	// tracked so Wait covers the whole stop path.
	c.legs.Add(1)
	go func() {
		defer c.legs.Done()
		rec.Stop()
		transcript := strings.TrimSpace(rec.FullTranscript())

		c.send(protocol.NewRecordingStoppedMessage(transcript))
		c.logger.Info("recording stopped", "transcript_chars", len(transcript))

		// Reply legs were launched per final transcript while the
		// recording was live; here we only step down the phase, and
		// only if no newer recording has taken over.
		c.mu.Lock()
		settle := c.recorder == nil && c.phase == PhaseListening
		if settle {
			c.phase = PhaseIdle
		}
		c.mu.Unlock()
		if settle {
			c.publish(EventPhase, PhaseIdle.String())
		}
	}()
}

func (c *Coordinator) handleTextInput(msg *protocol.Message) {
	data, err := msg.GetTextInputData()
	if err != nil {
		c.send(protocol.NewErrorMessage("malformed text input"))
		return
	}

	text := strings.TrimSpace(data.Message)
	if text == "" {
		c.send(protocol.NewErrorMessage("empty text input"))
		return
	}

	c.mu.Lock()
	busy := c.phase == PhaseListening
	c.mu.Unlock()
	if busy {
		c.send(protocol.NewErrorMessage("finish recording before sending text"))
		return
	}

	c.launchReply(text)
}

func (c *Coordinator) handleControl(msg *protocol.Message) bool {
	data, err := msg.GetControlData()
	if err != nil {
		c.send(protocol.NewErrorMessage("malformed control message"))
		return true
	}

	switch data.Action {
	case protocol.ActionMute:
		c.mu.Lock()
		c.muted = true
		c.mu.Unlock()
	case protocol.ActionUnmute:
		c.mu.Lock()
		c.muted = false
		c.mu.Unlock()
	case protocol.ActionEndSession:
		c.send(protocol.NewControlAckMessage(data.Action))
		return false
	default:
		c.send(protocol.NewErrorMessage("unknown control action"))
		return true
	}

	c.send(protocol.NewControlAckMessage(data.Action))
	return true
}

func (c *Coordinator) handlePing(msg *protocol.Message) {
	data, err := msg.GetPingData()
	if err != nil {
		return
	}
	c.send(protocol.NewPongMessage(data.ID, data.Timestamp, time.Now().UnixMilli()))
}

// launchReply starts a tracked reply leg for one utterance. The leg is
// registered with the wait group before the goroutine starts so Wait
// always covers it.
func (c *Coordinator) launchReply(transcript string) {
	c.legs.Add(1)
	go func() {
		defer c.legs.Done()
		c.runReply(transcript)
	}()
}

// runReply runs context lookup, completion, and speech streaming.
// It is deliberately bound to context.Background: a leg underway keeps
// going even if the client stops or disconnects mid-reply.
func (c *Coordinator) runReply(transcript string) {
	ctx := context.Background()

	c.setPhase(PhaseProcessing)

	contextText, err := c.deps.Context.Context(ctx, transcript)
	if err != nil {
		c.logger.Warn("context lookup failed, continuing without", "error", err)
		contextText = ""
	}

	reply, err := c.deps.Responder.Reply(ctx, transcript, contextText)
	if err != nil {
		c.logger.Error("reply generation failed", "error", err)
		c.send(protocol.NewErrorMessage(errorHint(err)))
		c.publish(EventError, err.Error())
		c.settlePhase()
		return
	}

	c.send(protocol.NewAIResponseMessage(reply))
	c.publish(EventReply, reply)

	c.setPhase(PhaseSpeaking)
	c.streamSpeech(ctx, reply)

	if err := c.deps.Context.Remember(ctx, transcript, reply); err != nil {
		c.logger.Warn("failed to record exchange", "error", err)
	}

	c.settlePhase()
}

// settlePhase steps down after a reply leg: back to listening when a
// recording is still live, otherwise idle.
func (c *Coordinator) settlePhase() {
	c.mu.Lock()
	live := c.recorder != nil
	c.mu.Unlock()
	if live {
		c.setPhase(PhaseListening)
	} else {
		c.setPhase(PhaseIdle)
	}
}

// streamSpeech synthesizes reply and relays numbered chunks followed by
// an audio_end carrying the count. Synthesis faults mid-stream end the
// relay with whatever was delivered; a failed client send stops pulling.
func (c *Coordinator) streamSpeech(ctx context.Context, reply string) {
	if c.deps.Speech == nil {
		c.send(protocol.NewAudioEndMessage(0))
		return
	}

	stream, err := c.deps.Speech.Stream(ctx, reply)
	if err != nil {
		c.logger.Error("speech synthesis failed", "error", err)
		c.send(protocol.NewErrorMessage(errorHint(err)))
		c.publish(EventError, err.Error())
		c.send(protocol.NewAudioEndMessage(0))
		return
	}
	defer stream.Close()

	format := stream.Format().Name()
	chunks := 0
	for {
		chunk, err := stream.Read()
		if err != nil {
			c.logger.Warn("speech stream error, ending relay", "chunks", chunks, "error", err)
			break
		}
		if chunk == nil {
			break
		}
		if chunks == 0 && !protocol.MatchesFormat(chunk, protocol.Format(format)) {
			c.logger.Warn("synthesized audio does not look like declared format",
				"declared", format, "detected", protocol.DetectFormat(chunk))
		}
		if !c.send(protocol.NewAudioMessage(chunk, format, chunks)) {
			c.logger.Debug("client unreachable, abandoning speech relay", "chunks", chunks)
			break
		}
		chunks++
	}

	c.send(protocol.NewAudioEndMessage(chunks))
	c.logger.Info("speech relay complete", "chunks", chunks)
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	if c.phase == p {
		c.mu.Unlock()
		return
	}
	c.phase = p
	c.mu.Unlock()
	c.publish(EventPhase, p.String())
}

// send absorbs both construction and delivery failures.
func (c *Coordinator) send(msg *protocol.Message, err error) bool {
	if err != nil {
		c.logger.Error("failed to build outbound message", "error", err)
		return false
	}
	return c.guard.Send(msg)
}

func (c *Coordinator) publish(eventType, detail string) {
	c.deps.Events.Publish(Event{
		SessionID: c.id,
		Type:      eventType,
		Phase:     c.Phase().String(),
		Detail:    detail,
		Time:      time.Now(),
	})
}

// errorHint maps provider failures to something safe to show a user.
func errorHint(err error) string {
	var llmErr *llm.APIError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.IsUnauthorized():
			return "assistant authentication failed"
		case llmErr.IsRateLimited():
			return "assistant is busy, try again in a moment"
		case llmErr.IsContextLength():
			return "that conversation got too long"
		}
		return "assistant request failed"
	}

	var ttsErr *tts.APIError
	if errors.As(err, &ttsErr) {
		switch {
		case ttsErr.IsQuotaExceeded():
			return "speech synthesis quota exhausted"
		case ttsErr.IsInvalidRequest():
			return "could not synthesize speech for that reply"
		case ttsErr.IsUnauthorized():
			return "speech synthesis authentication failed"
		}
		return "speech synthesis failed"
	}

	return "something went wrong handling that request"
}
