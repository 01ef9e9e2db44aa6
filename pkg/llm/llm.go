// Package llm provides chat completion against any OpenAI-compatible API
// (OpenAI, Ollama, vLLM, Together, Groq, etc.).
//
// The package is deliberately chat-only. The conversational reply for a
// voice exchange is produced by Reply, which folds retrieved context into
// the prompt and degrades gracefully when no context is available.
package llm

import "context"

// Provider defines the chat completion interface.
type Provider interface {
	// Chat generates a chat completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks API connectivity.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Role defines message roles in a conversation.
type Role string

const (
	// RoleSystem is for system instructions.
	RoleSystem Role = "system"

	// RoleUser is for user messages.
	RoleUser Role = "user"

	// RoleAssistant is for assistant responses.
	RoleAssistant Role = "assistant"
)

// Message represents a chat message in a conversation.
type Message struct {
	// Role identifies the message sender.
	Role Role

	// Content is the text content of the message.
	Content string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	// Messages is the conversation so far.
	Messages []Message

	// Model overrides the configured default model.
	Model string

	// MaxTokens overrides the configured default.
	MaxTokens int

	// Temperature overrides the configured default.
	Temperature float64
}

// ChatResponse is a chat completion result.
type ChatResponse struct {
	// Message is the assistant's reply.
	Message Message

	// FinishReason explains why generation stopped.
	FinishReason string

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that produced the response.
	Model string

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// Usage reports token consumption for a request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
