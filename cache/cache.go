// Package cache provides a Redis-backed result cache for generation
// jobs. The key is a digest of the endpoint plus the full request
// payload, so an identical request (same prompt, same parameters, same
// seed) can reuse the asset URL of an earlier run instead of paying for
// a new generation.
//
// Cache failures never fail a job: a broken Redis degrades to a log line
// and a fresh generation. Entries expire well before a typical workflow
// would notice staleness; the upstream signed URLs themselves only live
// for minutes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "fluxnodes:result:"

// Entry is one cached generation result.
type Entry struct {
	AssetURL string `json:"asset_url"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Config configures the result cache.
type Config struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	// TTL of cached results. Defaults to 8 minutes, inside the signed
	// URL lifetime.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Addr: "localhost:6379",
		TTL:  8 * time.Minute,
	}
}

// Cache is a Redis-backed result cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache from config.
func New(cfg Config, logger *zap.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.TTL, logger)
}

// NewWithClient wraps an existing Redis client, used by tests with
// miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 8 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Key digests an endpoint and payload into a stable cache key. Map keys
// marshal in sorted order, so logically equal payloads share a key.
func Key(endpoint string, payload map[string]any) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	if raw, err := json.Marshal(payload); err == nil {
		h.Write(raw)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached entry for key, if any.
func (c *Cache) Lookup(ctx context.Context, key string) (Entry, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("result cache lookup failed", zap.Error(err))
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("result cache entry corrupt", zap.String("key", key), zap.Error(err))
		return Entry{}, false
	}
	return entry, true
}

// Store writes an entry under key with the configured TTL. Failures are
// logged and swallowed.
func (c *Cache) Store(ctx context.Context, key string, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("result cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("result cache store failed", zap.Error(err))
	}
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
