package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeUpstreamError   Outcome = "upstream_error"
)

// Invocation is one tool call's audit record. It carries metadata only;
// fetched banking data is never stored.
type Invocation struct {
	ID         string        `db:"id"`
	Tool       string        `db:"tool"`
	Outcome    Outcome       `db:"outcome"`
	Detail     string        `db:"detail"`
	DurationMS int64         `db:"duration_ms"`
	CreatedAt  time.Time     `db:"created_at"`
}

// OutcomeCount is one row of the stats aggregation.
type OutcomeCount struct {
	Tool    string  `db:"tool"`
	Outcome Outcome `db:"outcome"`
	Count   int     `db:"count"`
}

// InvocationRecorder is the write side consumed by the gateway.
type InvocationRecorder interface {
	Record(ctx context.Context, inv Invocation) error
}

type InvocationRepository interface {
	InvocationRecorder
	CountByOutcomeSince(ctx context.Context, since time.Time) ([]OutcomeCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type invocationRepo struct {
	db *sqlx.DB
}

func NewInvocationRepository(db *sqlx.DB) InvocationRepository {
	return &invocationRepo{db: db}
}

func (r *invocationRepo) Record(ctx context.Context, inv Invocation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tool_invocations (id, tool, outcome, detail, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.ID, inv.Tool, inv.Outcome, inv.Detail, inv.DurationMS, inv.CreatedAt)
	return err
}

func (r *invocationRepo) CountByOutcomeSince(ctx context.Context, since time.Time) ([]OutcomeCount, error) {
	var counts []OutcomeCount
	err := r.db.SelectContext(ctx, &counts, `
		SELECT tool, outcome, COUNT(*) AS count
		FROM tool_invocations
		WHERE created_at >= $1
		GROUP BY tool, outcome
		ORDER BY tool, outcome
	`, since)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *invocationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tool_invocations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NoopRecorder drops audit records. Used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Invocation) error { return nil }
