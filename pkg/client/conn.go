package client

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebridge/voicebridge/pkg/protocol"
)

// State describes the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// wsConn is the transport surface Conn drives. Satisfied by
// *websocket.Conn and by fakes in tests.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a transport connection to url.
type DialFunc func(url string) (wsConn, error)

func defaultDial(url string) (wsConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = 2 * time.Second
)

// Conn owns the client's persistent channel to the server. A dropped
// connection is re-dialed up to a bounded number of attempts with a
// fixed delay between them; an intentional Disconnect never triggers
// a reconnect.
type Conn struct {
	url    string
	dial   DialFunc
	logger *slog.Logger

	maxReconnects  int
	reconnectDelay time.Duration

	mu                    sync.Mutex
	ws                    wsConn
	state                 State
	intentionalDisconnect bool
	shouldReconnect       bool
	attempts              int

	writeMu sync.Mutex

	onMessage func(*protocol.Message)
	onAudio   func([]byte)
	onState   func(State)
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithDialFunc replaces the transport dialer.
func WithDialFunc(dial DialFunc) ConnOption {
	return func(c *Conn) { c.dial = dial }
}

// WithReconnect sets the retry cap and the delay between attempts.
func WithReconnect(attempts int, delay time.Duration) ConnOption {
	return func(c *Conn) {
		c.maxReconnects = attempts
		c.reconnectDelay = delay
	}
}

// WithConnLogger sets the logger.
func WithConnLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = logger }
}

// NewConn creates a connection manager for the given ws:// URL.
func NewConn(url string, opts ...ConnOption) (*Conn, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	c := &Conn{
		url:             url,
		dial:            defaultDial,
		logger:          slog.Default(),
		maxReconnects:   defaultReconnectAttempts,
		reconnectDelay:  defaultReconnectDelay,
		state:           StateDisconnected,
		shouldReconnect: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnMessage sets the handler for decoded server messages.
func (c *Conn) OnMessage(fn func(*protocol.Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnAudio sets the handler for raw binary frames.
func (c *Conn) OnAudio(fn func([]byte)) {
	c.mu.Lock()
	c.onAudio = fn
	c.mu.Unlock()
}

// OnStateChange sets the handler for connection state transitions.
func (c *Conn) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the channel. On success a read loop runs until the
// connection drops, after which reconnection is attempted per the
// configured policy. The initial dial failure is returned to the
// caller rather than retried.
func (c *Conn) Connect() error {
	c.mu.Lock()
	c.intentionalDisconnect = false
	c.mu.Unlock()

	c.setState(StateConnecting)

	ws, err := c.dial(c.url)
	if err != nil {
		c.setState(StateError)
		return err
	}

	c.adopt(ws)
	return nil
}

// Disconnect closes the channel for good. Intent flags are set before
// the close so the resulting close event never triggers a reconnect,
// and handlers are detached so a discarded connection cannot call back
// into torn-down state.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.intentionalDisconnect = true
	c.shouldReconnect = false
	c.onMessage = nil
	c.onAudio = nil
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
	c.setState(StateDisconnected)

	c.mu.Lock()
	c.onState = nil
	c.mu.Unlock()
}

// Send marshals and writes a message frame.
func (c *Conn) Send(msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

// SendAudio writes a raw binary audio frame.
func (c *Conn) SendAudio(chunk []byte) error {
	return c.write(websocket.BinaryMessage, chunk)
}

// StartRecording asks the server to open a recognition session.
func (c *Conn) StartRecording() error {
	msg, err := protocol.NewStartRecordingMessage()
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// StopRecording ends the recognition session.
func (c *Conn) StopRecording() error {
	msg, err := protocol.NewStopRecordingMessage()
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendText submits a typed message, bypassing recognition.
func (c *Conn) SendText(text string) error {
	msg, err := protocol.NewTextInputMessage(text)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendControl issues a control action (mute, unmute, end_session).
func (c *Conn) SendControl(action string) error {
	msg, err := protocol.NewControlMessage(action)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteMessage(messageType, data)
}

// adopt installs a freshly dialed connection and starts its read loop.
func (c *Conn) adopt(ws wsConn) {
	c.mu.Lock()
	c.ws = ws
	c.attempts = 0
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop(ws)
}

func (c *Conn) readLoop(ws wsConn) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		c.dispatch(mt, data)
	}
	c.handleClose()
}

func (c *Conn) dispatch(messageType int, data []byte) {
	c.mu.Lock()
	onMessage := c.onMessage
	onAudio := c.onAudio
	c.mu.Unlock()

	if messageType == websocket.BinaryMessage {
		if onAudio != nil {
			onAudio(data)
		}
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("undecodable server frame", "error", err)
		return
	}
	if onMessage != nil {
		onMessage(&msg)
	}
}

// handleClose runs the reconnect policy after the read loop ends.
// Attempts accumulate across consecutive failures and reset only on a
// successful open.
func (c *Conn) handleClose() {
	for {
		c.mu.Lock()
		if c.intentionalDisconnect || !c.shouldReconnect || c.attempts >= c.maxReconnects {
			c.mu.Unlock()
			c.setState(StateDisconnected)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		c.setState(StateConnecting)
		time.Sleep(c.reconnectDelay)

		ws, err := c.dial(c.url)
		if err != nil {
			c.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
			c.setState(StateError)
			continue
		}

		c.logger.Info("reconnected", "attempt", attempt)
		c.adopt(ws)
		return
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	onState := c.onState
	c.mu.Unlock()

	if onState != nil {
		onState(s)
	}
}
