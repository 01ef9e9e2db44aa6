package contextcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "voicebridge"
	defaultRedisTTL    = 24 * time.Hour
)

// Redis is a Provider backed by a Redis instance, for deployments where
// multiple server replicas should share conversational context. Facts
// live in a hash and recent exchanges in a capped list, both under a
// configurable key prefix with TTL refresh on write.
type Redis struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	maxExchanges int64
	logger       *slog.Logger
}

// RedisOption configures a Redis provider.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix. Default is "voicebridge".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithTTL sets the expiry refreshed on each write. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = logger }
}

// NewRedis creates a Redis-backed context provider.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:       client,
		prefix:       defaultRedisPrefix,
		ttl:          defaultRedisTTL,
		maxExchanges: defaultMaxExchanges,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context returns matching facts plus the recent exchange window.
func (r *Redis) Context(ctx context.Context, query string) (string, error) {
	words := keywords(query)

	facts, err := r.client.HGetAll(ctx, r.factsKey()).Result()
	if err != nil {
		return "", fmt.Errorf("contextcache: redis facts lookup: %w", err)
	}

	raw, err := r.client.LRange(ctx, r.exchangesKey(), 0, r.maxExchanges-1).Result()
	if err != nil {
		return "", fmt.Errorf("contextcache: redis exchanges lookup: %w", err)
	}

	var b strings.Builder
	for key, value := range facts {
		if matchesAny(key+" "+value, words) {
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString("\n")
		}
	}

	if len(raw) > 0 {
		b.WriteString("Recent conversation:\n")
		// LPUSH stores newest first; replay oldest first.
		for i := len(raw) - 1; i >= 0; i-- {
			var e exchange
			if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
				r.logger.Warn("skipping malformed exchange entry", "error", err)
				continue
			}
			b.WriteString("User: ")
			b.WriteString(e.User)
			b.WriteString("\nAssistant: ")
			b.WriteString(e.Reply)
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String()), nil
}

// Remember pushes the exchange and trims to the window.
func (r *Redis) Remember(ctx context.Context, userText, reply string) error {
	data, err := json.Marshal(exchange{User: userText, Reply: reply})
	if err != nil {
		return fmt.Errorf("contextcache: marshal exchange: %w", err)
	}

	key := r.exchangesKey()
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.maxExchanges-1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
		pipe.Expire(ctx, r.factsKey(), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("contextcache: redis remember: %w", err)
	}
	return nil
}

// SetFact stores a standing fact.
func (r *Redis) SetFact(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := r.client.HSet(ctx, r.factsKey(), key, value).Err(); err != nil {
		return fmt.Errorf("contextcache: redis set fact: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) factsKey() string {
	return r.prefix + ":facts"
}

func (r *Redis) exchangesKey() string {
	return r.prefix + ":exchanges"
}

// Verify Redis implements Provider at compile time.
var _ Provider = (*Redis)(nil)
