package explain

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newStubStore() *stubStore {
	return &stubStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	text, ok := s.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return text, nil
}

func (s *stubStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func countingExplainer(calls *atomic.Int32, text string, err error) Explainer {
	return ExplainerFunc(func(context.Context, Request) (string, error) {
		calls.Add(1)
		return text, err
	})
}

func stopSign() Request {
	return Request{Question: "What does a STOP sign mean?", Answer: "Stop completely", Jurisdiction: georgia()}
}

func TestCacheStoresGeneratedText(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	store := newStubStore()
	cache := NewCache(countingExplainer(&calls, "Stop at the line.", nil), store, time.Hour, zerolog.Nop())

	text, err := cache.Explain(ctx, stopSign())
	require.NoError(t, err)
	assert.Equal(t, "Stop at the line.", text)

	text, err = cache.Explain(ctx, stopSign())
	require.NoError(t, err)
	assert.Equal(t, "Stop at the line.", text)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, time.Hour, store.ttls[CacheKey(stopSign())])
}

func TestCacheDefaultTTL(t *testing.T) {
	var calls atomic.Int32
	store := newStubStore()
	cache := NewCache(countingExplainer(&calls, "ok", nil), store, 0, zerolog.Nop())

	_, err := cache.Explain(context.Background(), stopSign())
	require.NoError(t, err)
	assert.Equal(t, defaultCacheTTL, store.ttls[CacheKey(stopSign())])
}

func TestCacheSkipsFallbacks(t *testing.T) {
	for _, text := range []string{"", FallbackEmpty, FallbackUnavailable} {
		var calls atomic.Int32
		store := newStubStore()
		cache := NewCache(countingExplainer(&calls, text, nil), store, time.Hour, zerolog.Nop())

		got, err := cache.Explain(context.Background(), stopSign())
		require.NoError(t, err)
		assert.Equal(t, text, got)
		assert.Empty(t, store.data, "cached %q", text)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	var calls atomic.Int32
	store := newStubStore()
	cache := NewCache(countingExplainer(&calls, "", errors.New("quota exceeded")), store, time.Hour, zerolog.Nop())

	_, err := cache.Explain(context.Background(), stopSign())
	assert.Error(t, err)
	assert.Empty(t, store.data)
}

func TestCacheStoreFailuresFallThrough(t *testing.T) {
	var calls atomic.Int32
	store := newStubStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	cache := NewCache(countingExplainer(&calls, "Stop at the line.", nil), store, time.Hour, zerolog.Nop())

	text, err := cache.Explain(context.Background(), stopSign())
	require.NoError(t, err)
	assert.Equal(t, "Stop at the line.", text)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCacheKeyScopesByJurisdiction(t *testing.T) {
	other := stopSign()
	other.Jurisdiction.Code = "CA"
	assert.NotEqual(t, CacheKey(stopSign()), CacheKey(other))
	assert.Equal(t, CacheKey(stopSign()), CacheKey(stopSign()))
}
