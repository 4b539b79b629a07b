package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gokatarajesh/permit-prep/internal/attempt"
	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
	"github.com/gokatarajesh/permit-prep/internal/logging"
	"github.com/gokatarajesh/permit-prep/internal/practice"
	httperrors "github.com/gokatarajesh/permit-prep/pkg/http/errors"
)

// ProfileHeader identifies the learner; any opaque string up to 64 bytes.
const ProfileHeader = "X-Profile-ID"

// AttemptLister reads attempt history.
type AttemptLister interface {
	ListByProfile(ctx context.Context, profileID string, limit int) ([]attempt.Attempt, error)
}

type practiceHandlers struct {
	svc                 *practice.Service
	attempts            AttemptLister
	defaultJurisdiction string
}

type startRequest struct {
	Jurisdiction string `json:"jurisdiction"`
}

type answerRequest struct {
	Option *int `json:"option"`
}

type restartRequest struct {
	BookmarkedOnly bool `json:"bookmarked_only"`
}

type sessionResponse struct {
	Changed bool          `json:"changed"`
	Session practice.View `json:"session"`
}

func listJurisdictions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"jurisdictions": jurisdiction.All()})
}

// start handles POST /v1/practice/session
func (h *practiceHandlers) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = h.defaultJurisdiction
	}

	m, resumed, err := h.svc.Start(r.Context(), r.Header.Get(ProfileHeader), req.Jurisdiction)
	if err != nil {
		respondPracticeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"resumed": resumed, "session": m.View()})
}

// view handles GET /v1/practice/session
func (h *practiceHandlers) view(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, m.View())
}

// exit handles DELETE /v1/practice/session
func (h *practiceHandlers) exit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Exit(r.Context(), r.Header.Get(ProfileHeader)); err != nil {
		respondPracticeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// answer handles POST /v1/practice/session/answer
func (h *practiceHandlers) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Option == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "option is required", "option")
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	changed := m.SubmitAnswer(r.Context(), *req.Option)
	respondJSON(w, http.StatusOK, sessionResponse{Changed: changed, Session: m.View()})
}

func (h *practiceHandlers) advance(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*practice.Manager).Advance)
}

func (h *practiceHandlers) skip(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*practice.Manager).Skip)
}

func (h *practiceHandlers) back(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*practice.Manager).GoBack)
}

func (h *practiceHandlers) step(w http.ResponseWriter, r *http.Request, op func(*practice.Manager, context.Context) bool) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	changed := op(m, r.Context())
	respondJSON(w, http.StatusOK, sessionResponse{Changed: changed, Session: m.View()})
}

// bookmark handles POST /v1/practice/session/bookmark
func (h *practiceHandlers) bookmark(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	on := m.ToggleBookmark(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"bookmarked": on, "session": m.View()})
}

// restart handles POST /v1/practice/session/restart
func (h *practiceHandlers) restart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	changed := m.Restart(r.Context(), req.BookmarkedOnly)
	respondJSON(w, http.StatusOK, sessionResponse{Changed: changed, Session: m.View()})
}

// explanation handles POST /v1/practice/session/explanation. A stored text is
// returned at once; otherwise 202 and the text follows over the socket, or in
// this response when ?wait=true.
func (h *practiceHandlers) explanation(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	questionID, ch, err := m.RequestExplanation(r.Context())
	if err != nil {
		respondPracticeError(w, r, err)
		return
	}

	reply := func(text string, ok bool) {
		if !ok {
			httperrors.RespondConflict(w, httperrors.ErrCodeSessionChanged, "The session was restarted before the explanation arrived")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"question_id": questionID, "explanation": text})
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case text, ok := <-ch:
			reply(text, ok)
		case <-r.Context().Done():
		}
		return
	}

	select {
	case text, ok := <-ch:
		reply(text, ok)
	default:
		respondJSON(w, http.StatusAccepted, map[string]any{"question_id": questionID, "status": "pending"})
	}
}

// score handles GET /v1/practice/session/score
func (h *practiceHandlers) score(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, m.Result())
}

// listAttempts handles GET /v1/practice/attempts?limit=
func (h *practiceHandlers) listAttempts(w http.ResponseWriter, r *http.Request) {
	profile, err := practice.ValidateProfile(r.Header.Get(ProfileHeader))
	if err != nil {
		respondPracticeError(w, r, err)
		return
	}
	if h.attempts == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Attempt history is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.attempts.ListByProfile(r.Context(), profile, limit)
	if err != nil {
		reqLog := logging.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("list attempts")
		httperrors.RespondInternalError(w, "Could not load attempt history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"attempts": list})
}

func (h *practiceHandlers) manager(w http.ResponseWriter, r *http.Request) (*practice.Manager, bool) {
	m, err := h.svc.Get(r.Context(), r.Header.Get(ProfileHeader))
	if err != nil {
		respondPracticeError(w, r, err)
		return nil, false
	}
	return m, true
}

func respondPracticeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, practice.ErrInvalidProfile):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidProfile, "X-Profile-ID header must be 1-64 characters", "X-Profile-ID")
	case errors.Is(err, practice.ErrNotStarted):
		httperrors.RespondConflict(w, httperrors.ErrCodeSessionNotStarted, "Start a practice session first")
	case errors.Is(err, practice.ErrNotSubmitted):
		httperrors.RespondConflict(w, httperrors.ErrCodeQuestionNotSubmitted, "Submit an answer before asking for an explanation")
	case errors.Is(err, jurisdiction.ErrUnknown):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownJurisdiction, err.Error())
	case errors.Is(err, jurisdiction.ErrComingSoon):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeJurisdictionUnavailable, err.Error())
	default:
		reqLog := logging.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("practice request failed")
		httperrors.RespondInternalError(w, "Practice session unavailable")
	}
}

// decodeOptional accepts an empty body as the zero request.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
	return false
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
