package explain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
)

func georgia() jurisdiction.Jurisdiction {
	j, _ := jurisdiction.Lookup("GA")
	return j
}

func TestClientExplain(t *testing.T) {
	var gotPrompt, gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPrompt = body.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Stop fully at the line. "}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL}, zerolog.Nop())
	text, err := client.Explain(context.Background(), Request{
		Question:     "What does a STOP sign mean?",
		Answer:       "Stop completely",
		Jurisdiction: georgia(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Stop fully at the line.", text)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Contains(t, gotPrompt, "state of Georgia")
	assert.Contains(t, gotPrompt, "Georgia DDS regulations")
	assert.Contains(t, gotPrompt, `"Stop completely"`)
}

func TestClientEmptyTextFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zerolog.Nop())
	text, err := client.Explain(context.Background(), Request{Jurisdiction: georgia()})
	require.NoError(t, err)
	assert.Equal(t, FallbackEmpty, text)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zerolog.Nop())
	_, err := client.Explain(context.Background(), Request{Jurisdiction: georgia()})
	assert.Error(t, err)

	unconfigured := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	_, err = unconfigured.Explain(context.Background(), Request{Jurisdiction: georgia()})
	assert.Error(t, err)
}

func TestClientHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zerolog.Nop())
	_, err := client.Explain(context.Background(), Request{Jurisdiction: georgia()})
	assert.Error(t, err)
}

func TestClientCacheKeyScopesByJurisdiction(t *testing.T) {
	req := Request{Question: "q", Answer: "a", Jurisdiction: georgia()}
	other := req
	other.Jurisdiction = jurisdiction.Jurisdiction{Code: "CA"}

	assert.NotEqual(t, CacheKey(req), CacheKey(other))
	assert.Equal(t, CacheKey(req), CacheKey(req))
}
