package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/permit-prep/internal/question"
	"github.com/gokatarajesh/permit-prep/internal/storage"
	httperrors "github.com/gokatarajesh/permit-prep/pkg/http/errors"
)

type fixture struct {
	mux    *http.ServeMux
	tokens *TokenManager
	kv     *storage.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	kv := storage.NewMemory()
	tokens := NewTokenManager(TokenConfig{Secret: []byte("test-secret")})
	h := NewHTTPHandlers(
		CredentialAuthenticator{Username: "admin", PasswordHash: quickHash(t, "letmein123")},
		tokens,
		question.NewCatalog(kv, nil, zerolog.Nop()),
		zerolog.Nop(),
	)
	guard := RequireAdmin(tokens, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/admin/login", h.Login)
	mux.Handle("GET /v1/admin/questions", guard(http.HandlerFunc(h.ListQuestions)))
	mux.Handle("POST /v1/admin/questions", guard(http.HandlerFunc(h.CreateQuestion)))
	mux.Handle("GET /v1/admin/questions/{id}", guard(http.HandlerFunc(h.GetQuestion)))
	mux.Handle("PUT /v1/admin/questions/{id}", guard(http.HandlerFunc(h.UpdateQuestion)))
	mux.Handle("DELETE /v1/admin/questions/{id}", guard(http.HandlerFunc(h.DeleteQuestion)))
	return fixture{mux: mux, tokens: tokens, kv: kv}
}

func (f fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f fixture) token(t *testing.T) string {
	t.Helper()
	tok, _, err := f.tokens.Issue("admin")
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httperrors.ErrorResponse {
	t.Helper()
	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/admin/login", LoginRequest{Username: "admin", Password: "letmein123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := f.tokens.Validate(resp.AccessToken)
	assert.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/v1/admin/login", LoginRequest{Username: "admin", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httperrors.ErrCodeLoginFailed, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/admin/login", LoginRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionsRequireToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/admin/questions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httperrors.ErrCodeAuthenticationRequired, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodGet, "/v1/admin/questions", nil, "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httperrors.ErrCodeInvalidToken, decodeError(t, rec).Error)
}

func TestQuestionCRUD(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t)

	rec := f.do(t, http.MethodGet, "/v1/admin/questions?q=road+signs", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Questions []question.Question `json:"questions"`
		Count     int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Positive(t, list.Count)
	for _, q := range list.Questions {
		assert.Equal(t, "Road Signs", q.Category)
	}

	newQ := question.Question{
		Text:         "What does a flashing yellow light mean?",
		Options:      []string{"Stop", "Proceed with caution", "Speed up", "Turn only"},
		CorrectIndex: 1,
		Category:     "Traffic Signals",
	}
	rec = f.do(t, http.MethodPost, "/v1/admin/questions", newQ, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created question.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 26, created.ID)

	rec = f.do(t, http.MethodGet, "/v1/admin/questions/26", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	created.CorrectIndex = 0
	rec = f.do(t, http.MethodPut, "/v1/admin/questions/26", created, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := question.NewCatalog(f.kv, nil, zerolog.Nop()).Get(context.Background(), 26)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CorrectIndex)

	rec = f.do(t, http.MethodDelete, "/v1/admin/questions/26", nil, tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/admin/questions/26", nil, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httperrors.ErrCodeQuestionNotFound, decodeError(t, rec).Error)
}

func TestCreateQuestionValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/admin/questions", question.Question{
		Options:      []string{"a", "b"},
		CorrectIndex: 5,
	}, f.token(t))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, httperrors.ErrCodeValidationFailed, body.Error)
	assert.Contains(t, body.Details, "text")
	assert.Contains(t, body.Details, "options")
	assert.Contains(t, body.Details, "correctIndex")
	assert.Contains(t, body.Details, "category")
}

func TestBadPathID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/admin/questions/abc", nil, f.token(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
