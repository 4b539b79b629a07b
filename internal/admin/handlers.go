package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/question"
	httperrors "github.com/gokatarajesh/permit-prep/pkg/http/errors"
)

// QuestionCatalog is the bank editor the CMS endpoints drive.
type QuestionCatalog interface {
	List(ctx context.Context, search string) ([]question.Question, error)
	Get(ctx context.Context, id int) (question.Question, error)
	Save(ctx context.Context, q question.Question) (question.Question, error)
	Delete(ctx context.Context, id int) error
}

// HTTPHandlers provides the admin login and question CMS endpoints.
type HTTPHandlers struct {
	auth    Authenticator
	tokens  *TokenManager
	catalog QuestionCatalog
	logger  zerolog.Logger
}

func NewHTTPHandlers(auth Authenticator, tokens *TokenManager, catalog QuestionCatalog, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		auth:    auth,
		tokens:  tokens,
		catalog: catalog,
		logger:  logger.With().Str("component", "admin").Logger(),
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login handles POST /v1/admin/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Username == "" || req.Password == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "username and password are required", "username")
		return
	}

	if err := h.auth.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		h.logger.Warn().Str("username", req.Username).Msg("admin login rejected")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid username or password")
		return
	}

	token, expires, err := h.tokens.Issue(req.Username)
	if err != nil {
		h.logger.Error().Err(err).Msg("sign admin token")
		httperrors.RespondInternalError(w, "Could not issue token")
		return
	}
	h.logger.Info().Str("username", req.Username).Msg("admin logged in")
	respondJSON(w, http.StatusOK, LoginResponse{AccessToken: token, ExpiresAt: expires})
}

// ListQuestions handles GET /v1/admin/questions?q=
func (h *HTTPHandlers) ListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.catalog.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error().Err(err).Msg("list questions")
		httperrors.RespondInternalError(w, "Could not load questions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"questions": qs, "count": len(qs)})
}

// GetQuestion handles GET /v1/admin/questions/{id}
func (h *HTTPHandlers) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// CreateQuestion handles POST /v1/admin/questions. The id is assigned when omitted.
func (h *HTTPHandlers) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q question.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	saved, err := h.catalog.Save(r.Context(), q)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

// UpdateQuestion handles PUT /v1/admin/questions/{id}
func (h *HTTPHandlers) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var q question.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	q.ID = id
	saved, err := h.catalog.Save(r.Context(), q)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// DeleteQuestion handles DELETE /v1/admin/questions/{id}
func (h *HTTPHandlers) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.respondCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) respondCatalogError(w http.ResponseWriter, err error) {
	var verr *question.ValidationError
	switch {
	case errors.As(err, &verr):
		httperrors.RespondFieldErrors(w, "Question is invalid", verr.Fields)
	case errors.Is(err, question.ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionNotFound, "Question not found")
	default:
		h.logger.Error().Err(err).Msg("question catalog")
		httperrors.RespondInternalError(w, "Question bank unavailable")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "id must be a positive integer", "id")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
