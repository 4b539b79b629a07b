package practice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/attempt"
	"github.com/gokatarajesh/permit-prep/internal/explain"
	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
	"github.com/gokatarajesh/permit-prep/internal/storage"
)

// ProgressKeyPrefix namespaces saved sessions in the key-value store.
const ProgressKeyPrefix = "practice:progress:v1:"

var (
	// ErrNotStarted is returned for a profile with no active or saved session.
	ErrNotStarted = errors.New("practice session not started")
	// ErrInvalidProfile rejects empty or oversized profile ids.
	ErrInvalidProfile = errors.New("invalid profile id")
	// ErrNotSubmitted refuses an explanation before the question is answered.
	ErrNotSubmitted = errors.New("answer the question before asking for an explanation")
)

const maxProfileLen = 64

// ProgressKey is the storage key for profile's saved session.
func ProgressKey(profile string) string {
	return ProgressKeyPrefix + profile
}

// AttemptRecorder persists finished sessions.
type AttemptRecorder interface {
	Record(ctx context.Context, a attempt.Attempt) (attempt.Attempt, error)
}

// ServiceConfig carries the shared collaborators for every profile's Manager.
type ServiceConfig struct {
	Store          storage.KV
	Source         BankSource
	Explainer      explain.Explainer
	ExplainTimeout time.Duration
	PassPercent    int
	Recorder       AttemptRecorder
	Logger         zerolog.Logger

	// Notify is told when an explanation for profile is ready.
	Notify func(profile string, questionID int, text string)
}

// Service keeps one Manager per profile.
type Service struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "practice_service").Logger(),
		managers: make(map[string]*Manager),
	}
}

// ValidateProfile trims profile and checks it is usable as a storage key suffix.
func ValidateProfile(profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" || len(profile) > maxProfileLen {
		return "", ErrInvalidProfile
	}
	return profile, nil
}

// Start initializes profile's session for code, resuming a valid saved one.
func (s *Service) Start(ctx context.Context, profile, code string) (*Manager, bool, error) {
	profile, err := ValidateProfile(profile)
	if err != nil {
		return nil, false, err
	}
	j, err := jurisdiction.Lookup(code)
	if err != nil {
		return nil, false, err
	}
	m := s.manager(profile)
	resumed := m.Initialize(ctx, j)
	return m, resumed, nil
}

// Get returns profile's running session, reloading it from storage after a
// restart. ErrNotStarted means the client must Start first.
func (s *Service) Get(ctx context.Context, profile string) (*Manager, error) {
	profile, err := ValidateProfile(profile)
	if err != nil {
		return nil, err
	}
	m := s.manager(profile)
	if m.Status() != StatusNotStarted || m.Resume(ctx) {
		return m, nil
	}
	return nil, ErrNotStarted
}

// Exit clears profile's saved session and forgets its manager.
func (s *Service) Exit(ctx context.Context, profile string) error {
	profile, err := ValidateProfile(profile)
	if err != nil {
		return err
	}
	s.manager(profile).Exit(ctx)
	s.mu.Lock()
	delete(s.managers, profile)
	s.mu.Unlock()
	return nil
}

// Evict drops managers untouched for longer than idle. Their sessions stay in
// storage and are reloaded by the next Get.
func (s *Service) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for profile, m := range s.managers {
		last, quiet := m.idleSince()
		if quiet && last.Before(cutoff) {
			delete(s.managers, profile)
			n++
		}
	}
	return n
}

// Wait blocks until every manager's in-flight explanation has settled.
func (s *Service) Wait() {
	s.mu.Lock()
	ms := make([]*Manager, 0, len(s.managers))
	for _, m := range s.managers {
		ms = append(ms, m)
	}
	s.mu.Unlock()
	for _, m := range ms {
		m.Wait()
	}
}

func (s *Service) manager(profile string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[profile]; ok {
		return m
	}
	m := NewManager(Options{
		Store:          s.cfg.Store,
		Key:            ProgressKey(profile),
		Source:         s.cfg.Source,
		Explainer:      s.cfg.Explainer,
		ExplainTimeout: s.cfg.ExplainTimeout,
		PassPercent:    s.cfg.PassPercent,
		Logger:         s.cfg.Logger.With().Str("profile", profile).Logger(),
		OnComplete: func(ctx context.Context, code string, r Result, bookmarkedOnly bool) {
			s.record(ctx, profile, code, r, bookmarkedOnly)
		},
		OnExplanation: func(questionID int, text string) {
			if s.cfg.Notify != nil {
				s.cfg.Notify(profile, questionID, text)
			}
		},
	})
	s.managers[profile] = m
	return m
}

func (s *Service) record(ctx context.Context, profile, code string, r Result, bookmarkedOnly bool) {
	if s.cfg.Recorder == nil {
		return
	}
	_, err := s.cfg.Recorder.Record(context.WithoutCancel(ctx), attempt.Attempt{
		ProfileID:      profile,
		Jurisdiction:   code,
		Correct:        r.Correct,
		Answered:       r.Answered,
		Total:          r.Total,
		Percentage:     r.Percentage,
		Passed:         r.Passed,
		BookmarkedOnly: bookmarkedOnly,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("profile", profile).Msg("record attempt")
	}
}
