// Package service hosts the tool-invocation gateway: argument
// validation, per-tool admission control and upstream error mapping.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nklymok/monobank-mcp/internal/limiter"
	"github.com/nklymok/monobank-mcp/internal/model"
	"github.com/nklymok/monobank-mcp/internal/repository"
)

const (
	ToolClientInfo = "get_client_info"
	ToolStatement  = "get_statement"

	// MaxStatementSpanSeconds is the upstream's documented 31-day
	// statement range cap, checked locally to fail before a wasted
	// round trip.
	MaxStatementSpanSeconds int64 = 2_678_400
)

// BankAPI is the upstream surface the gateway depends on.
type BankAPI interface {
	GetClientInfo(ctx context.Context) (*model.ClientInfoResult, error)
	GetStatement(ctx context.Context, accountID string, from, to int64) ([]model.StatementItem, error)
}

// Gateway validates tool arguments, consults the rate limiter, performs
// the single upstream call and maps the outcome. A failed upstream call
// releases its reservation so it does not consume the rate budget.
type Gateway struct {
	api     BankAPI
	limiter limiter.Limiter
	clock   limiter.Clock
	audit   repository.InvocationRecorder
}

func NewGateway(api BankAPI, lim limiter.Limiter, clock limiter.Clock, audit repository.InvocationRecorder) *Gateway {
	if clock == nil {
		clock = limiter.SystemClock
	}
	if audit == nil {
		audit = repository.NoopRecorder{}
	}
	return &Gateway{api: api, limiter: lim, clock: clock, audit: audit}
}

// GetClientInfo returns the client snapshot: identity, accounts, jars.
func (g *Gateway) GetClientInfo(ctx context.Context) (*model.ClientInfoResult, error) {
	started := time.Now()

	if err := g.admit(ctx, ToolClientInfo); err != nil {
		g.record(ctx, ToolClientInfo, repository.OutcomeRateLimited, err.Error(), started)
		return nil, err
	}

	info, err := g.api.GetClientInfo(ctx)
	if err != nil {
		g.release(ctx, ToolClientInfo)
		upErr := upstreamError(err)
		g.record(ctx, ToolClientInfo, repository.OutcomeUpstreamError, upErr.Error(), started)
		return nil, upErr
	}

	g.recordSuccess(ctx, ToolClientInfo)
	g.record(ctx, ToolClientInfo, repository.OutcomeOK, "", started)
	return info, nil
}

// GetStatement returns the transaction history for one account or jar
// over an inclusive epoch-second range, newest first.
func (g *Gateway) GetStatement(ctx context.Context, accountID string, from, to int64) (*model.StatementResult, error) {
	started := time.Now()

	if err := validateStatementQuery(accountID, from, to); err != nil {
		g.record(ctx, ToolStatement, repository.OutcomeValidationError, err.Error(), started)
		return nil, err
	}

	if err := g.admit(ctx, ToolStatement); err != nil {
		g.record(ctx, ToolStatement, repository.OutcomeRateLimited, err.Error(), started)
		return nil, err
	}

	items, err := g.api.GetStatement(ctx, accountID, from, to)
	if err != nil {
		g.release(ctx, ToolStatement)
		upErr := upstreamError(err)
		g.record(ctx, ToolStatement, repository.OutcomeUpstreamError, upErr.Error(), started)
		return nil, upErr
	}

	g.recordSuccess(ctx, ToolStatement)
	g.record(ctx, ToolStatement, repository.OutcomeOK, "", started)

	// Upstream order is preserved: newest first, no local reordering.
	result := &model.StatementResult{Transactions: make([]model.Transaction, 0, len(items))}
	for _, item := range items {
		result.Transactions = append(result.Transactions, item.ToTransaction())
	}
	return result, nil
}

// validateStatementQuery applies the local preconditions in documented
// order, so no malformed query ever reaches the limiter or the network.
func validateStatementQuery(accountID string, from, to int64) error {
	if strings.TrimSpace(accountID) == "" {
		return &ValidationError{Field: "account_id", Reason: "must not be empty"}
	}
	if to < from {
		return &ValidationError{Field: "to_timestamp", Reason: "must not be before from_timestamp"}
	}
	if to-from > MaxStatementSpanSeconds {
		return &ValidationError{Field: "to_timestamp", Reason: "range too large: must not exceed 31 days"}
	}
	return nil
}

func (g *Gateway) admit(ctx context.Context, tool string) error {
	dec, err := g.limiter.CheckAndReserve(ctx, tool)
	if err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("rate limiter check failed")
	}
	if !dec.Allowed {
		return &RateLimitError{Tool: tool, RetryAfter: dec.RetryAfter}
	}
	return nil
}

func (g *Gateway) recordSuccess(ctx context.Context, tool string) {
	if err := g.limiter.RecordSuccess(ctx, tool, g.clock.Now()); err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("failed to record rate window")
	}
}

func (g *Gateway) release(ctx context.Context, tool string) {
	if err := g.limiter.Release(ctx, tool); err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("failed to release rate reservation")
	}
}

// record writes the audit trail entry. Audit failures are logged and
// never surfaced to the caller.
func (g *Gateway) record(ctx context.Context, tool string, outcome repository.Outcome, detail string, started time.Time) {
	inv := repository.Invocation{
		ID:         uuid.NewString(),
		Tool:       tool,
		Outcome:    outcome,
		Detail:     detail,
		DurationMS: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := g.audit.Record(ctx, inv); err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("failed to record invocation audit")
	}
}
