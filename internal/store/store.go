// Package store persists enrichment outcomes in PostgreSQL.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/equityline/caseenrich/internal/model"
)

// Pool is the pgx surface the store needs. *pgxpool.Pool satisfies it, as
// does pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Intake
	PendingCases(ctx context.Context, limit int) ([]model.CaseRecord, error)

	// Outcomes. Every processed case ends in exactly one of these.
	SaveFinal(ctx context.Context, result *model.FinalResult) error
	UpdateRedFlag(ctx context.Context, caseNumber, reason, caseSummary string, active bool) error
	MarkParseFailed(ctx context.Context, caseNumber, reason string) error

	// Supplemental equity match
	EquityCandidates(ctx context.Context) ([]model.EquityCandidate, error)
	ApplyEquity(ctx context.Context, caseNumber string, match model.ParcelMatch) error
	MarkEquityUnmatched(ctx context.Context, caseNumber string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
