//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const profileHeader = "X-Profile-ID"

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

// newProfile returns a profile id no other test run has used.
func newProfile(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

type sessionView struct {
	Status       string `json:"status"`
	Jurisdiction string `json:"jurisdiction"`
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Question     *struct {
		ID           int    `json:"id"`
		CorrectIndex *int   `json:"correct_index"`
		Explanation  string `json:"explanation"`
	} `json:"question"`
	BookmarkCount  int  `json:"bookmark_count"`
	CanGoBack      bool `json:"can_go_back"`
	BookmarkedOnly bool `json:"bookmarked_only"`
	Score          struct {
		Correct  int `json:"correct"`
		Answered int `json:"answered"`
		Total    int `json:"total"`
	} `json:"score"`
	Result *struct {
		Percentage int  `json:"percentage"`
		Passed     bool `json:"passed"`
	} `json:"result"`
}

type sessionResponse struct {
	Changed bool        `json:"changed"`
	Resumed bool        `json:"resumed"`
	Session sessionView `json:"session"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func doRequest(t *testing.T, method, path, profile string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL()+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if profile != "" {
		req.Header.Set(profileHeader, profile)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func expectJSON(t *testing.T, resp *http.Response, status int, out any) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, raw)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

func startSession(t *testing.T, profile, code string) sessionResponse {
	t.Helper()

	var out sessionResponse
	resp := doRequest(t, http.MethodPost, "/v1/practice/session", profile, map[string]string{"jurisdiction": code})
	expectJSON(t, resp, http.StatusOK, &out)
	return out
}

func exitSession(t *testing.T, profile string) {
	t.Helper()

	resp := doRequest(t, http.MethodDelete, "/v1/practice/session", profile, nil)
	expectJSON(t, resp, http.StatusNoContent, nil)
}
