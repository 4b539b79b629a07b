package question

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/storage"
)

// OverrideKey holds the admin-edited bank as a JSON array of questions.
const OverrideKey = "cms:questions"

//go:embed default_bank.json
var defaultBankJSON []byte

var (
	defaultOnce sync.Once
	defaultBank []Question
)

// Default returns a copy of the built-in Georgia question bank.
func Default() []Question {
	defaultOnce.Do(func() {
		if err := json.Unmarshal(defaultBankJSON, &defaultBank); err != nil {
			panic("question: embedded default bank is malformed: " + err.Error())
		}
	})
	return clone(defaultBank)
}

// Source resolves the question bank a new session draws from.
type Source struct {
	kv     storage.KV
	logger zerolog.Logger
}

func NewSource(kv storage.KV, logger zerolog.Logger) *Source {
	return &Source{
		kv:     kv,
		logger: logger.With().Str("component", "question_source").Logger(),
	}
}

// Active returns the override bank when it is present, parseable and non-empty;
// otherwise the built-in bank. It never fails.
func (s *Source) Active(ctx context.Context) []Question {
	if s == nil || s.kv == nil {
		return Default()
	}
	qs, err := s.loadOverride(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("override bank unreadable, using default bank")
		}
		return Default()
	}
	if len(qs) == 0 {
		return Default()
	}
	return qs
}

func (s *Source) loadOverride(ctx context.Context) ([]Question, error) {
	raw, err := s.kv.Get(ctx, OverrideKey)
	if err != nil {
		return nil, err
	}
	var qs []Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, err
	}
	return dedupe(qs, s.logger), nil
}

// dedupe keeps the first record for each id; sessions key state by id.
func dedupe(qs []Question, logger zerolog.Logger) []Question {
	seen := make(map[int]struct{}, len(qs))
	out := qs[:0]
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			logger.Warn().Int("question_id", q.ID).Msg("duplicate question id in override bank dropped")
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
