package explain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// ErrCacheMiss is returned by a CacheStore that holds nothing for the key.
var ErrCacheMiss = errors.New("explanation not cached")

// CacheStore is the slice of Redis the cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisCacheStore struct {
	client *redis.Client
}

// NewRedisCacheStore adapts a go-redis client to CacheStore.
func NewRedisCacheStore(client *redis.Client) CacheStore {
	return redisCacheStore{client: client}
}

func (s redisCacheStore) Get(ctx context.Context, key string) (string, error) {
	text, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return text, err
}

func (s redisCacheStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Cache remembers generated explanations so repeated requests for the same
// question skip the model. Only real answers are cached, never fallbacks.
type Cache struct {
	next   Explainer
	store  CacheStore
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Explainer = (*Cache)(nil)

func NewCache(next Explainer, store CacheStore, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "explain_cache").Logger(),
	}
}

func (c *Cache) Explain(ctx context.Context, req Request) (string, error) {
	key := CacheKey(req)
	if text, err := c.store.Get(ctx, key); err == nil && text != "" {
		return text, nil
	} else if err != nil && !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn().Err(err).Msg("explanation cache read failed")
	}

	text, err := c.next.Explain(ctx, req)
	if err != nil {
		return "", err
	}
	if text == "" || text == FallbackEmpty || text == FallbackUnavailable {
		return text, nil
	}
	if err := c.store.Set(ctx, key, text, c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("explanation cache write failed")
	}
	return text, nil
}

// CacheKey scopes an explanation to jurisdiction, question and answer text.
func CacheKey(req Request) string {
	sum := sha256.Sum256([]byte(req.Question + "\x00" + req.Answer))
	return "explain:" + req.Jurisdiction.Code + ":" + hex.EncodeToString(sum[:16])
}
