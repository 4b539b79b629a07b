package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/admin"
	"github.com/gokatarajesh/permit-prep/internal/config"
	"github.com/gokatarajesh/permit-prep/internal/logging"
	"github.com/gokatarajesh/permit-prep/internal/practice"
	ws "github.com/gokatarajesh/permit-prep/pkg/http/ws"
)

// WSUpgrader handles WebSocket upgrades.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Check is a named dependency probe for /v1/ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps are the services the API exposes. Nil members disable their routes.
type Deps struct {
	Practice    *practice.Service
	Attempts    AttemptLister
	Admin       *admin.HTTPHandlers
	AdminTokens *admin.TokenManager
	Hub         *ws.Hub
	Checks      []Check
}

// NewHTTPServer wires all routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the route table; split out so tests can drive it with httptest.
func NewHandler(cfg *config.App, logger zerolog.Logger, deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), deps.Checks); err != nil {
			reqLog := logging.FromContext(r.Context())
			reqLog.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	})

	mux.HandleFunc("GET /v1/jurisdictions", listJurisdictions)

	if deps.Practice != nil {
		h := &practiceHandlers{
			svc:                 deps.Practice,
			attempts:            deps.Attempts,
			defaultJurisdiction: cfg.Practice.DefaultJurisdiction,
		}
		mux.HandleFunc("POST /v1/practice/session", h.start)
		mux.HandleFunc("GET /v1/practice/session", h.view)
		mux.HandleFunc("DELETE /v1/practice/session", h.exit)
		mux.HandleFunc("POST /v1/practice/session/answer", h.answer)
		mux.HandleFunc("POST /v1/practice/session/advance", h.advance)
		mux.HandleFunc("POST /v1/practice/session/skip", h.skip)
		mux.HandleFunc("POST /v1/practice/session/back", h.back)
		mux.HandleFunc("POST /v1/practice/session/bookmark", h.bookmark)
		mux.HandleFunc("POST /v1/practice/session/restart", h.restart)
		mux.HandleFunc("POST /v1/practice/session/explanation", h.explanation)
		mux.HandleFunc("GET /v1/practice/session/score", h.score)
		mux.HandleFunc("GET /v1/practice/attempts", h.listAttempts)
	}

	if deps.Hub != nil {
		mux.HandleFunc("GET /ws/practice", practiceSocket(deps.Hub))
	}

	if deps.Admin != nil && deps.AdminTokens != nil {
		guard := admin.RequireAdmin(deps.AdminTokens, logger)
		mux.HandleFunc("POST /v1/admin/login", deps.Admin.Login)
		mux.Handle("GET /v1/admin/questions", guard(http.HandlerFunc(deps.Admin.ListQuestions)))
		mux.Handle("POST /v1/admin/questions", guard(http.HandlerFunc(deps.Admin.CreateQuestion)))
		mux.Handle("GET /v1/admin/questions/{id}", guard(http.HandlerFunc(deps.Admin.GetQuestion)))
		mux.Handle("PUT /v1/admin/questions/{id}", guard(http.HandlerFunc(deps.Admin.UpdateQuestion)))
		mux.Handle("DELETE /v1/admin/questions/{id}", guard(http.HandlerFunc(deps.Admin.DeleteQuestion)))
	}

	return requestLogger(logger, mux)
}

func pingDependencies(ctx context.Context, checks []Check) error {
	var errs []error
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}

// requestLogger puts a request-scoped logger in the context and logs each
// request once it completes.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))

		reqLogger.Debug().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
