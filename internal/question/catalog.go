package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/permit-prep/internal/storage"
)

// Catalog is the admin view of the bank. The first write copies the active bank
// into the override key; later sessions shuffle from that copy.
type Catalog struct {
	mu        sync.Mutex
	kv        storage.KV
	validator *Validator
	logger    zerolog.Logger
}

func NewCatalog(kv storage.KV, validator *Validator, logger zerolog.Logger) *Catalog {
	if validator == nil {
		validator = NewValidator()
	}
	return &Catalog{
		kv:        kv,
		validator: validator,
		logger:    logger.With().Str("component", "question_catalog").Logger(),
	}
}

// List returns the bank, filtered by a case-insensitive match on text or category.
func (c *Catalog) List(ctx context.Context, search string) ([]Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	qs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return qs, nil
	}
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if strings.Contains(strings.ToLower(q.Text), term) || strings.Contains(strings.ToLower(q.Category), term) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id int) (Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	qs, err := c.load(ctx)
	if err != nil {
		return Question{}, err
	}
	for _, q := range qs {
		if q.ID == id {
			return q, nil
		}
	}
	return Question{}, ErrNotFound
}

// Save inserts q, or replaces the record with the same id. A zero id is assigned
// the next free id.
func (c *Catalog) Save(ctx context.Context, q Question) (Question, error) {
	if err := c.validator.Validate(q); err != nil {
		return Question{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	qs, err := c.load(ctx)
	if err != nil {
		return Question{}, err
	}

	if q.ID == 0 {
		q.ID = nextID(qs)
	}

	replaced := false
	for i := range qs {
		if qs[i].ID == q.ID {
			qs[i] = q
			replaced = true
			break
		}
	}
	if !replaced {
		qs = append(qs, q)
	}

	if err := c.store(ctx, qs); err != nil {
		return Question{}, err
	}
	c.logger.Info().Int("question_id", q.ID).Bool("replaced", replaced).Msg("question saved")
	return q, nil
}

func (c *Catalog) Delete(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	qs, err := c.load(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, q := range qs {
		if q.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	qs = append(qs[:idx], qs[idx+1:]...)

	if err := c.store(ctx, qs); err != nil {
		return err
	}
	c.logger.Info().Int("question_id", id).Msg("question deleted")
	return nil
}

// load reads the stored list; a missing or unparseable entry yields the default bank.
func (c *Catalog) load(ctx context.Context) ([]Question, error) {
	raw, err := c.kv.Get(ctx, OverrideKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	var qs []Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		c.logger.Warn().Err(err).Msg("stored bank unparseable, editing from default bank")
		return Default(), nil
	}
	return qs, nil
}

func (c *Catalog) store(ctx context.Context, qs []Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}
	if err := c.kv.Set(ctx, OverrideKey, data); err != nil {
		return fmt.Errorf("store question bank: %w", err)
	}
	return nil
}

func nextID(qs []Question) int {
	maxID := 0
	for _, q := range qs {
		if q.ID > maxID {
			maxID = q.ID
		}
	}
	return maxID + 1
}
