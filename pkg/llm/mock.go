package llm

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// ChatFunc is called when Chat is invoked.
	// If nil, Chat echoes Response.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// HealthFunc is called when Health is invoked. If nil, returns nil.
	HealthFunc func(ctx context.Context) error

	// Response is the canned reply used when ChatFunc is nil.
	Response string

	// Err, when set, is returned by Chat instead of a response.
	Err error

	mu       sync.Mutex
	requests []*ChatRequest
}

// NewMock creates a mock that replies with the given text.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

// Chat returns the canned response and records the request.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Message:      Message{Role: RoleAssistant, Content: m.Response},
		FinishReason: "stop",
	}, nil
}

// Reply mirrors Client.Reply over the canned response.
func (m *Mock) Reply(ctx context.Context, userText, contextText string) (string, error) {
	resp, err := m.Chat(ctx, &ChatRequest{
		Messages: []Message{
			NewSystemMessage(contextText),
			NewUserMessage(userText),
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// Health calls HealthFunc if set.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Requests returns a copy of all recorded chat requests.
func (m *Mock) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
