package practice

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gokatarajesh/permit-prep/internal/question"
)

// Status is the coarse lifecycle of a practice session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// QuestionState is the per-question record. Once submitted it never reverts.
type QuestionState struct {
	SelectedOption *int    `json:"selectedOption"`
	IsSubmitted    bool    `json:"isSubmitted"`
	AIExplanation  *string `json:"aiExplanation"`
}

// Score counts submissions over the whole session.
type Score struct {
	Correct  int `json:"correct"`
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Result is a Score graded against the pass mark.
type Result struct {
	Score
	Percentage int  `json:"percentage"`
	Passed     bool `json:"passed"`
}

// Grade rounds correct/total to a whole percentage and compares it to passPercent.
func (s Score) Grade(passPercent int) Result {
	pct := 0
	if s.Total > 0 {
		pct = int(math.Round(float64(s.Correct) / float64(s.Total) * 100))
	}
	return Result{Score: s, Percentage: pct, Passed: s.Total > 0 && pct >= passPercent}
}

// Session is one practice-test attempt. Methods are pure state transitions;
// persistence and locking live in Manager.
type Session struct {
	StateCode      string
	Questions      []question.Question
	CurrentIndex   int
	History        []int
	States         map[int]QuestionState
	Bookmarks      []int
	Complete       bool
	BookmarkedOnly bool
}

func newSession(stateCode string, pool []question.Question, r Rand) *Session {
	return &Session{
		StateCode: stateCode,
		Questions: Shuffle(pool, r),
		States:    make(map[int]QuestionState),
	}
}

// Current returns the question at CurrentIndex.
func (s *Session) Current() question.Question {
	return s.Questions[s.CurrentIndex]
}

// State returns the record for id, or the zero (unanswered) record.
func (s *Session) State(id int) QuestionState {
	return s.States[id]
}

// Submit records option for the current question. It reports false when the
// question was already submitted, the session is complete, or option is out of range.
func (s *Session) Submit(option int) bool {
	if s.Complete || option < 0 || option >= question.OptionCount {
		return false
	}
	q := s.Current()
	st := s.States[q.ID]
	if st.IsSubmitted {
		return false
	}
	selected := option
	st.SelectedOption = &selected
	st.IsSubmitted = true
	s.States[q.ID] = st
	return true
}

// Advance moves to the next question, or completes the session at the last one.
func (s *Session) Advance() bool {
	if s.Complete {
		return false
	}
	if s.CurrentIndex >= len(s.Questions)-1 {
		s.Complete = true
		return true
	}
	s.History = append(s.History, s.CurrentIndex)
	s.CurrentIndex++
	return true
}

// GoBack restores the last visited index. No-op on empty history or once complete.
func (s *Session) GoBack() bool {
	if s.Complete || len(s.History) == 0 {
		return false
	}
	last := len(s.History) - 1
	s.CurrentIndex = s.History[last]
	s.History = s.History[:last]
	return true
}

// ToggleBookmark flips the bookmark on the current question and reports the new value.
func (s *Session) ToggleBookmark() bool {
	id := s.Current().ID
	if i := slices.Index(s.Bookmarks, id); i >= 0 {
		s.Bookmarks = slices.Delete(s.Bookmarks, i, i+1)
		return false
	}
	s.Bookmarks = append(s.Bookmarks, id)
	return true
}

func (s *Session) IsBookmarked(id int) bool {
	return slices.Contains(s.Bookmarks, id)
}

// Score walks the session order; a submission is correct when it selected CorrectIndex.
func (s *Session) Score() Score {
	score := Score{Total: len(s.Questions)}
	for _, q := range s.Questions {
		st, ok := s.States[q.ID]
		if !ok || !st.IsSubmitted {
			continue
		}
		score.Answered++
		if st.SelectedOption != nil && *st.SelectedOption == q.CorrectIndex {
			score.Correct++
		}
	}
	return score
}

// HasProgress reports whether there is anything worth resuming.
func (s *Session) HasProgress() bool {
	return len(s.States) > 0 || s.CurrentIndex > 0
}

// BookmarkedQuestions returns the bookmarked questions in session order.
func (s *Session) BookmarkedQuestions() []question.Question {
	var out []question.Question
	for _, q := range s.Questions {
		if s.IsBookmarked(q.ID) {
			out = append(out, q)
		}
	}
	return out
}

// reset starts over on pool. Bookmarks are kept as they are.
func (s *Session) reset(pool []question.Question, bookmarkedOnly bool, r Rand) {
	s.Questions = Shuffle(pool, r)
	s.CurrentIndex = 0
	s.History = nil
	s.States = make(map[int]QuestionState)
	s.Complete = false
	s.BookmarkedOnly = bookmarkedOnly
}

func (s *Session) contains(id int) bool {
	for _, q := range s.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// setExplanation stores text for id unless one is already recorded.
func (s *Session) setExplanation(id int, text string) bool {
	if !s.contains(id) {
		return false
	}
	st := s.States[id]
	if st.AIExplanation != nil {
		return false
	}
	st.AIExplanation = &text
	s.States[id] = st
	return true
}

// snapshot is the persisted form: question ids only, resolved against the bank on load.
type snapshot struct {
	StateCode      string                `json:"stateCode"`
	QuestionIDs    []int                 `json:"questionIds"`
	CurrentIndex   int                   `json:"currentIndex"`
	History        []int                 `json:"history"`
	QuestionStates map[int]QuestionState `json:"questionStates"`
	BookmarkedIDs  []int                 `json:"bookmarkedIds"`
	IsTestComplete bool                  `json:"isTestComplete"`
	BookmarkedOnly bool                  `json:"bookmarkedOnly,omitempty"`
}

func (s *Session) snapshot() snapshot {
	ids := make([]int, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return snapshot{
		StateCode:      s.StateCode,
		QuestionIDs:    ids,
		CurrentIndex:   s.CurrentIndex,
		History:        append([]int{}, s.History...),
		QuestionStates: s.States,
		BookmarkedIDs:  append([]int{}, s.Bookmarks...),
		IsTestComplete: s.Complete,
		BookmarkedOnly: s.BookmarkedOnly,
	}
}

var errInvalidSnapshot = errors.New("invalid saved session")

// restore rebuilds a session from snap. Any inconsistency discards the whole
// snapshot; no partial recovery is attempted.
func restore(snap snapshot, bank map[int]question.Question) (*Session, error) {
	if len(snap.QuestionIDs) == 0 {
		return nil, fmt.Errorf("%w: no questions", errInvalidSnapshot)
	}
	qs := make([]question.Question, 0, len(snap.QuestionIDs))
	seen := make(map[int]struct{}, len(snap.QuestionIDs))
	for _, id := range snap.QuestionIDs {
		q, ok := bank[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %d no longer in bank", errInvalidSnapshot, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate question %d", errInvalidSnapshot, id)
		}
		seen[id] = struct{}{}
		qs = append(qs, q)
	}
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(qs) {
		return nil, fmt.Errorf("%w: current index %d out of range", errInvalidSnapshot, snap.CurrentIndex)
	}
	for _, h := range snap.History {
		if h < 0 || h >= len(qs) {
			return nil, fmt.Errorf("%w: history index %d out of range", errInvalidSnapshot, h)
		}
	}

	states := make(map[int]QuestionState, len(snap.QuestionStates))
	for id, st := range snap.QuestionStates {
		if _, ok := seen[id]; ok {
			states[id] = st
		}
	}
	var bookmarks []int
	for _, id := range snap.BookmarkedIDs {
		if _, ok := bank[id]; ok && !slices.Contains(bookmarks, id) {
			bookmarks = append(bookmarks, id)
		}
	}

	return &Session{
		StateCode:      snap.StateCode,
		Questions:      qs,
		CurrentIndex:   snap.CurrentIndex,
		History:        append([]int(nil), snap.History...),
		States:         states,
		Bookmarks:      bookmarks,
		Complete:       snap.IsTestComplete,
		BookmarkedOnly: snap.BookmarkedOnly,
	}, nil
}
