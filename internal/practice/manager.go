package practice

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/explain"
	"github.com/gokatarajesh/permit-prep/internal/jurisdiction"
	"github.com/gokatarajesh/permit-prep/internal/question"
	"github.com/gokatarajesh/permit-prep/internal/storage"
)

const defaultExplainTimeout = 8 * time.Second

// BankSource yields the question bank a fresh session is drawn from.
type BankSource interface {
	Active(ctx context.Context) []question.Question
}

// Options wires a Manager to its collaborators. Store, Key and Source are required.
type Options struct {
	Store          storage.KV
	Key            string
	Source         BankSource
	Explainer      explain.Explainer
	ExplainTimeout time.Duration
	Rand           Rand
	PassPercent    int
	Logger         zerolog.Logger

	// OnComplete runs after a mutation moves the session to complete.
	OnComplete func(ctx context.Context, stateCode string, result Result, bookmarkedOnly bool)
	// OnExplanation runs after an explanation has been stored for questionID.
	OnExplanation func(questionID int, text string)
}

// Manager owns one practice session. All methods are safe for concurrent use;
// each mutation holds the lock through the persist step.
type Manager struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	session  *Session
	gen      uint64
	inflight map[int][]chan string
	lastUsed time.Time

	wg sync.WaitGroup
}

func NewManager(opts Options) *Manager {
	if opts.Explainer == nil {
		opts.Explainer = explain.Unavailable
	}
	if opts.ExplainTimeout <= 0 {
		opts.ExplainTimeout = defaultExplainTimeout
	}
	if opts.PassPercent <= 0 {
		opts.PassPercent = 80
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "practice").Str("key", opts.Key).Logger(),
		inflight: make(map[int][]chan string),
		lastUsed: time.Now(),
	}
}

// Initialize resumes the saved session for j when it is still valid, otherwise
// starts and saves a freshly shuffled one. It reports whether it resumed.
func (m *Manager) Initialize(ctx context.Context, j jurisdiction.Jurisdiction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()

	if s, err := m.load(ctx); err == nil && s.StateCode == j.Code {
		m.session = s
		sessionsStarted.WithLabelValues(j.Code, "true").Inc()
		m.logger.Debug().Str("jurisdiction", j.Code).Int("index", s.CurrentIndex).Msg("resumed session")
		return true
	} else if err == nil {
		m.logger.Info().Str("saved", s.StateCode).Str("jurisdiction", j.Code).Msg("saved session is for another jurisdiction, starting fresh")
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn().Err(err).Msg("discarding saved session")
	}

	bank := m.opts.Source.Active(ctx)
	m.invalidate()
	m.session = newSession(j.Code, bank, m.opts.Rand)
	m.save(ctx)
	sessionsStarted.WithLabelValues(j.Code, "false").Inc()
	m.logger.Info().Str("jurisdiction", j.Code).Int("questions", len(bank)).Msg("started session")
	return false
}

// Resume loads the saved session under whatever jurisdiction it was started
// for. It reports false, leaving the manager not started, when nothing valid is saved.
func (m *Manager) Resume(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session != nil {
		return true
	}
	s, err := m.load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("discarding saved session")
		}
		return false
	}
	if _, err := jurisdiction.Lookup(s.StateCode); err != nil {
		m.logger.Warn().Err(err).Str("jurisdiction", s.StateCode).Msg("saved session has unusable jurisdiction")
		return false
	}
	m.session = s
	sessionsStarted.WithLabelValues(s.StateCode, "true").Inc()
	return true
}

// SubmitAnswer records option for the current question once.
func (m *Manager) SubmitAnswer(ctx context.Context, option int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session == nil || !m.session.Submit(option) {
		return false
	}
	q := m.session.Current()
	answersSubmitted.WithLabelValues(boolLabel(option == q.CorrectIndex)).Inc()
	m.save(ctx)
	return true
}

// Advance moves to the next question, completing the session at the last one.
func (m *Manager) Advance(ctx context.Context) bool {
	return m.forward(ctx)
}

// Skip moves on without requiring a submission. It behaves exactly like Advance.
func (m *Manager) Skip(ctx context.Context) bool {
	return m.forward(ctx)
}

func (m *Manager) forward(ctx context.Context) bool {
	m.mu.Lock()
	m.touch()
	if m.session == nil || !m.session.Advance() {
		m.mu.Unlock()
		return false
	}
	m.save(ctx)
	completed := m.session.Complete
	code, bookmarkedOnly := m.session.StateCode, m.session.BookmarkedOnly
	result := m.session.Score().Grade(m.opts.PassPercent)
	m.mu.Unlock()

	if completed {
		sessionsCompleted.WithLabelValues(boolLabel(result.Passed)).Inc()
		m.logger.Info().Int("correct", result.Correct).Int("total", result.Total).Bool("passed", result.Passed).Msg("session complete")
		if m.opts.OnComplete != nil {
			m.opts.OnComplete(ctx, code, result, bookmarkedOnly)
		}
	}
	return true
}

// GoBack returns to the most recently visited question.
func (m *Manager) GoBack(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session == nil || !m.session.GoBack() {
		return false
	}
	m.save(ctx)
	return true
}

// ToggleBookmark flips the current question's bookmark and reports whether it is now set.
func (m *Manager) ToggleBookmark(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session == nil {
		return false
	}
	on := m.session.ToggleBookmark()
	m.save(ctx)
	return on
}

// ComputeScore is valid at any time; a manager that has not started scores zero.
func (m *Manager) ComputeScore() Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Score{}
	}
	return m.session.Score()
}

// Result grades the current score against the configured pass mark.
func (m *Manager) Result() Result {
	return m.ComputeScore().Grade(m.opts.PassPercent)
}

// Restart begins again. A full restart reshuffles the active bank; a bookmarked
// restart reshuffles only the bookmarked questions and is a no-op when there are none.
func (m *Manager) Restart(ctx context.Context, bookmarkedOnly bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session == nil {
		return false
	}
	var pool []question.Question
	if bookmarkedOnly {
		pool = m.session.BookmarkedQuestions()
		if len(pool) == 0 {
			return false
		}
	} else {
		pool = m.opts.Source.Active(ctx)
	}
	m.invalidate()
	m.session.reset(pool, bookmarkedOnly, m.opts.Rand)
	m.save(ctx)
	m.logger.Info().Bool("bookmarked_only", bookmarkedOnly).Int("questions", len(pool)).Msg("restarted session")
	return true
}

// RequestExplanation asks the tutor to explain the current question and
// returns its id with a channel that yields the stored text once. A question is
// sent to the provider at most once per session; repeated requests share the
// in-flight call or get the stored text. The channel is closed without a value
// when the session is restarted or exited before the call returns.
//
// It fails with ErrNotStarted before Initialize and ErrNotSubmitted while the
// current question is unanswered, since the prompt carries the correct answer.
func (m *Manager) RequestExplanation(ctx context.Context) (int, <-chan string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	if m.session == nil {
		return 0, nil, ErrNotStarted
	}

	q := m.session.Current()
	st := m.session.State(q.ID)
	if !st.IsSubmitted {
		return q.ID, nil, ErrNotSubmitted
	}
	ch := make(chan string, 1)
	if st.AIExplanation != nil {
		ch <- *st.AIExplanation
		close(ch)
		return q.ID, ch, nil
	}
	if waiters, busy := m.inflight[q.ID]; busy {
		m.inflight[q.ID] = append(waiters, ch)
		return q.ID, ch, nil
	}
	m.inflight[q.ID] = []chan string{ch}

	j, err := jurisdiction.Find(m.session.StateCode)
	if err != nil {
		j = jurisdiction.Jurisdiction{Code: m.session.StateCode, Name: m.session.StateCode}
	}
	req := explain.Request{Question: q.Text, Answer: q.CorrectOption(), Jurisdiction: j}

	m.wg.Add(1)
	go m.explain(context.WithoutCancel(ctx), m.gen, q.ID, req)
	return q.ID, ch, nil
}

func (m *Manager) explain(ctx context.Context, gen uint64, questionID int, req explain.Request) {
	defer m.wg.Done()

	callCtx, cancel := context.WithTimeout(ctx, m.opts.ExplainTimeout)
	text, err := m.opts.Explainer.Explain(callCtx, req)
	cancel()

	if err != nil {
		m.logger.Warn().Err(err).Int("question_id", questionID).Msg("explanation failed, storing fallback")
	}
	text, outcome := settleExplanation(text, err)
	explanations.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	if gen != m.gen {
		// The session it was asked for is gone; its waiters were released by invalidate.
		m.mu.Unlock()
		m.logger.Debug().Int("question_id", questionID).Msg("dropping explanation for replaced session")
		return
	}
	waiters := m.inflight[questionID]
	delete(m.inflight, questionID)
	stored := false
	if m.session != nil && m.session.setExplanation(questionID, text) {
		m.save(ctx)
		stored = true
	} else if m.session != nil {
		// Lost a race with another write; hand out what was kept.
		if st := m.session.State(questionID); st.AIExplanation != nil {
			text = *st.AIExplanation
		}
	}
	m.mu.Unlock()

	for _, w := range waiters {
		w <- text
		close(w)
	}
	if stored && m.opts.OnExplanation != nil {
		m.opts.OnExplanation(questionID, text)
	}
}

// settleExplanation maps a provider answer to the text to store and its metric outcome.
func settleExplanation(text string, err error) (string, string) {
	switch {
	case err != nil:
		return explain.FallbackUnavailable, "fallback"
	case text == "" || text == explain.FallbackEmpty:
		return explain.FallbackEmpty, "empty"
	default:
		return text, "ok"
	}
}

// invalidate retires the current session's outstanding explanation calls.
// Callers hold m.mu.
func (m *Manager) invalidate() {
	m.gen++
	for id, waiters := range m.inflight {
		for _, w := range waiters {
			close(w)
		}
		delete(m.inflight, id)
	}
}

// Exit clears the saved session and returns the manager to not started.
func (m *Manager) Exit(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidate()
	m.session = nil
	if err := m.opts.Store.Delete(ctx, m.opts.Key); err != nil {
		m.logger.Warn().Err(err).Msg("clear saved session")
	}
}

// Status reports the session lifecycle.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status()
}

func (m *Manager) status() Status {
	switch {
	case m.session == nil:
		return StatusNotStarted
	case m.session.Complete:
		return StatusComplete
	default:
		return StatusInProgress
	}
}

// Wait blocks until every in-flight explanation has been written back.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) idleSince() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUsed, len(m.inflight) == 0
}

func (m *Manager) touch() {
	m.lastUsed = time.Now()
}

func (m *Manager) load(ctx context.Context) (*Session, error) {
	raw, err := m.opts.Store.Get(ctx, m.opts.Key)
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, errors.Join(errInvalidSnapshot, err)
	}
	return restore(snap, question.Index(m.opts.Source.Active(ctx)))
}

// save is best-effort: a failed write is logged and the session carries on in memory.
func (m *Manager) save(ctx context.Context) {
	raw, err := json.Marshal(m.session.snapshot())
	if err != nil {
		m.logger.Error().Err(err).Msg("encode session")
		return
	}
	if err := m.opts.Store.Set(context.WithoutCancel(ctx), m.opts.Key, raw); err != nil {
		m.logger.Warn().Err(err).Msg("save session")
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
