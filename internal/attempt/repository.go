// Package attempt stores the history of completed practice sessions.
package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultListLimit = 20

// Attempt is one finished practice session.
type Attempt struct {
	ID             uuid.UUID `json:"id"`
	ProfileID      string    `json:"profile_id"`
	Jurisdiction   string    `json:"jurisdiction"`
	Correct        int       `json:"correct"`
	Answered       int       `json:"answered"`
	Total          int       `json:"total"`
	Percentage     int       `json:"percentage"`
	Passed         bool      `json:"passed"`
	BookmarkedOnly bool      `json:"bookmarked_only"`
	CompletedAt    time.Time `json:"completed_at"`
}

// DBTX is the subset of pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists attempts in Postgres.
type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Record inserts a, filling ID and CompletedAt when unset.
func (r *Repository) Record(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO practice_attempts
		   (id, profile_id, jurisdiction, correct, answered, total, percentage, passed, bookmarked_only, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ProfileID, a.Jurisdiction, a.Correct, a.Answered, a.Total, a.Percentage, a.Passed, a.BookmarkedOnly, a.CompletedAt,
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

// ListByProfile returns the most recent attempts for profileID, newest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID string, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, profile_id, jurisdiction, correct, answered, total, percentage, passed, bookmarked_only, completed_at
		 FROM practice_attempts
		 WHERE profile_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2`, profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Jurisdiction, &a.Correct, &a.Answered, &a.Total,
			&a.Percentage, &a.Passed, &a.BookmarkedOnly, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
