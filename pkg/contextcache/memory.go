package contextcache

import (
	"context"
	"strings"
	"sync"
)

// defaultMaxExchanges bounds the recent-conversation window kept in memory.
const defaultMaxExchanges = 10

// Memory is an in-process Provider. It keeps a map of standing facts and
// a bounded window of recent exchanges, and matches queries against both
// by case-insensitive keyword overlap.
type Memory struct {
	mu           sync.RWMutex
	facts        map[string]string
	exchanges    []exchange
	maxExchanges int
}

type exchange struct {
	User  string
	Reply string
}

// NewMemory creates an empty in-process context provider.
func NewMemory() *Memory {
	return &Memory{
		facts:        make(map[string]string),
		maxExchanges: defaultMaxExchanges,
	}
}

// SetFact stores a standing fact, e.g. SetFact("user_name", "Sam").
func (m *Memory) SetFact(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	m.mu.Lock()
	m.facts[key] = value
	m.mu.Unlock()
}

// Context returns facts whose key or value shares a keyword with the
// query, followed by the recent exchange window.
func (m *Memory) Context(ctx context.Context, query string) (string, error) {
	words := keywords(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	for key, value := range m.facts {
		if matchesAny(key+" "+value, words) {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\n")
		}
	}

	if len(m.exchanges) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, e := range m.exchanges {
			b.WriteString("User: ")
			b.WriteString(e.User)
			b.WriteString("\nAssistant: ")
			b.WriteString(e.Reply)
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String()), nil
}

// Remember appends the exchange, evicting the oldest past the window.
func (m *Memory) Remember(ctx context.Context, userText, reply string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exchanges = append(m.exchanges, exchange{User: userText, Reply: reply})
	if len(m.exchanges) > m.maxExchanges {
		m.exchanges = m.exchanges[len(m.exchanges)-m.maxExchanges:]
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// keywords lowercases and splits a query, dropping words too short to be
// meaningful matches.
func keywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func matchesAny(text string, words []string) bool {
	text = strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Verify Memory implements Provider at compile time.
var _ Provider = (*Memory)(nil)
