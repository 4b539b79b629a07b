package practice

// Shown in place of an empty built-in explanation once a question is submitted.
const defaultExplanation = "Please review the manual for more details on this rule."

// QuestionView is the client-facing form of a question. The answer key and
// the built-in explanation are withheld until the question is submitted.
type QuestionView struct {
	ID           int      `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Category     string   `json:"category"`
	Image        string   `json:"image,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// View is a read-only picture of the session for rendering.
type View struct {
	Status         Status         `json:"status"`
	Jurisdiction   string         `json:"jurisdiction,omitempty"`
	CurrentIndex   int            `json:"current_index"`
	Total          int            `json:"total"`
	Question       *QuestionView  `json:"question,omitempty"`
	State          *QuestionState `json:"state,omitempty"`
	Bookmarked     bool           `json:"bookmarked"`
	BookmarkCount  int            `json:"bookmark_count"`
	CanGoBack      bool           `json:"can_go_back"`
	HasProgress    bool           `json:"has_progress"`
	BookmarkedOnly bool           `json:"bookmarked_only"`
	Score          Score          `json:"score"`
	Result         *Result        `json:"result,omitempty"`
}

// View snapshots the session. A manager that has not started yields only its status.
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{Status: m.status()}
	s := m.session
	if s == nil {
		return v
	}

	q := s.Current()
	st := s.State(q.ID)
	qv := &QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Options:  append([]string(nil), q.Options...),
		Category: q.Category,
		Image:    q.Image,
	}
	if st.IsSubmitted {
		correct := q.CorrectIndex
		qv.CorrectIndex = &correct
		qv.Explanation = q.Explanation
		if qv.Explanation == "" {
			qv.Explanation = defaultExplanation
		}
	}

	v.Jurisdiction = s.StateCode
	v.CurrentIndex = s.CurrentIndex
	v.Total = len(s.Questions)
	v.Question = qv
	v.State = &st
	v.Bookmarked = s.IsBookmarked(q.ID)
	v.BookmarkCount = len(s.Bookmarks)
	v.CanGoBack = len(s.History) > 0 && !s.Complete
	v.HasProgress = s.HasProgress()
	v.BookmarkedOnly = s.BookmarkedOnly
	v.Score = s.Score()
	if s.Complete {
		r := v.Score.Grade(m.opts.PassPercent)
		v.Result = &r
	}
	return v
}
