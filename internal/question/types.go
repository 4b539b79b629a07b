package question

import "errors"

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

var ErrNotFound = errors.New("question not found")

// Question is one multiple-choice item. Immutable once a session has loaded it.
type Question struct {
	ID           int      `json:"id" validate:"gte=0"`
	Text         string   `json:"text" validate:"required,max=500"`
	Options      []string `json:"options" validate:"len=4,dive,required,max=200"`
	CorrectIndex int      `json:"correctIndex" validate:"min=0,max=3"`
	Category     string   `json:"category" validate:"required,max=100"`
	Explanation  string   `json:"explanation,omitempty" validate:"max=1000"`
	Image        string   `json:"image,omitempty" validate:"omitempty,url"`
}

// CorrectOption returns the text of the correct option, or "" for malformed records.
func (q Question) CorrectOption() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Index maps question ids to questions.
func Index(qs []Question) map[int]Question {
	out := make(map[int]Question, len(qs))
	for _, q := range qs {
		out[q.ID] = q
	}
	return out
}

func clone(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
