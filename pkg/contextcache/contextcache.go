// Package contextcache supplies conversational context to the reply
// pipeline.
//
// A Provider answers "what do we know that is relevant to this utterance"
// with a plain-text block suitable for folding into an LLM prompt. Lookup
// failures are expected operational events, not fatal ones: callers log
// the error and continue with empty context.
package contextcache

import "context"

// Provider retrieves context relevant to a query and records exchanges
// as new context.
type Provider interface {
	// Context returns a text block of facts and recent exchanges relevant
	// to query. An empty string with nil error means nothing relevant.
	Context(ctx context.Context, query string) (string, error)

	// Remember records a completed exchange for future lookups.
	Remember(ctx context.Context, userText, reply string) error

	// Close releases backend resources.
	Close() error
}

// Null is a Provider that knows nothing and remembers nothing.
type Null struct{}

// Context always returns empty context.
func (Null) Context(ctx context.Context, query string) (string, error) {
	return "", nil
}

// Remember discards the exchange.
func (Null) Remember(ctx context.Context, userText, reply string) error {
	return nil
}

// Close is a no-op.
func (Null) Close() error { return nil }

// Verify Null implements Provider at compile time.
var _ Provider = Null{}
