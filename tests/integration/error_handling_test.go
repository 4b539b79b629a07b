//go:build integration
// +build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestMissingProfile(t *testing.T) {
	var errResp errorResponse
	expectJSON(t, doRequest(t, http.MethodPost, "/v1/practice/session", "", nil), http.StatusUnprocessableEntity, &errResp)

	if errResp.Error != "invalid_profile" {
		t.Fatalf("expected invalid_profile, got %q", errResp.Error)
	}
}

func TestOversizedProfile(t *testing.T) {
	var errResp errorResponse
	expectJSON(t, doRequest(t, http.MethodPost, "/v1/practice/session", strings.Repeat("p", 65), nil), http.StatusUnprocessableEntity, &errResp)

	if errResp.Field == "" {
		t.Fatal("field is missing from validation error")
	}
}

func TestSessionNotStarted(t *testing.T) {
	var errResp errorResponse
	expectJSON(t, doRequest(t, http.MethodGet, "/v1/practice/session", newProfile("idle"), nil), http.StatusConflict, &errResp)

	if errResp.Error != "session_not_started" {
		t.Fatalf("expected session_not_started, got %q", errResp.Error)
	}
}

func TestUnknownJurisdiction(t *testing.T) {
	var errResp errorResponse
	resp := doRequest(t, http.MethodPost, "/v1/practice/session", newProfile("zz"), map[string]string{"jurisdiction": "ZZ"})
	expectJSON(t, resp, http.StatusBadRequest, &errResp)

	if errResp.Error != "unknown_jurisdiction" {
		t.Fatalf("expected unknown_jurisdiction, got %q", errResp.Error)
	}
}

func TestComingSoonJurisdiction(t *testing.T) {
	var errResp errorResponse
	resp := doRequest(t, http.MethodPost, "/v1/practice/session", newProfile("ca"), map[string]string{"jurisdiction": "CA"})
	expectJSON(t, resp, http.StatusUnprocessableEntity, &errResp)

	if errResp.Error != "jurisdiction_unavailable" {
		t.Fatalf("expected jurisdiction_unavailable, got %q", errResp.Error)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/v1/admin/questions", "", nil)
	defer resp.Body.Close()

	// 404 when the deployment has no admin credentials configured.
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 401 or 404, got %d", resp.StatusCode)
	}
}

func TestExplanationBeforeAnswer(t *testing.T) {
	profile := newProfile("explain")
	defer exitSession(t, profile)
	startSession(t, profile, "GA")

	var errResp errorResponse
	expectJSON(t, doRequest(t, http.MethodPost, "/v1/practice/session/explanation", profile, nil), http.StatusConflict, &errResp)

	if errResp.Error != "question_not_submitted" {
		t.Fatalf("expected question_not_submitted, got %q", errResp.Error)
	}
}
