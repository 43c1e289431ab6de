// Package db persists the execution audit trail in Postgres. Delegations and
// nonces live in the KV store; the audit log is the durable record used to
// investigate abuse and answer the executions endpoint.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// AuditRow is one persisted execution outcome.
type AuditRow struct {
	ID         uuid.UUID            `json:"id"`
	Account    string               `json:"account"`
	Action     types.ActionKind     `json:"action"`
	UserOpHash string               `json:"user_op_hash,omitempty"`
	TxHash     string               `json:"tx_hash,omitempty"`
	Phase      types.ExecutionPhase `json:"phase"`
	ErrorKind  string               `json:"error_kind,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// AuditStore writes and reads execution records through a pgx pool.
type AuditStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAuditStore connects to Postgres and verifies the connection.
func NewAuditStore(ctx context.Context, databaseURL string) (*AuditStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return &AuditStore{pool: pool, logger: logger.Log}, nil
}

// RecordExecution inserts one terminal execution outcome. Audit writes must
// never fail the request they describe; errors are logged and swallowed by
// the caller's contract.
func (s *AuditStore) RecordExecution(ctx context.Context, record services.ExecutionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO execution_audit (id, account, action, user_op_hash, tx_hash, phase, error_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, uuid.New(), record.Account, string(record.Action), record.UserOpHash, record.TxHash, string(record.Phase), record.ErrorKind)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// ListByAccount returns the most recent execution records for an account.
func (s *AuditStore) ListByAccount(ctx context.Context, account string, limit int) ([]AuditRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, account, action, user_op_hash, tx_hash, phase, error_kind, created_at
		FROM execution_audit
		WHERE account = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var row AuditRow
		var action, phase string
		if err := rows.Scan(&row.ID, &row.Account, &action, &row.UserOpHash, &row.TxHash, &phase, &row.ErrorKind, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		row.Action = types.ActionKind(action)
		row.Phase = types.ExecutionPhase(phase)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *AuditStore) Close() {
	s.pool.Close()
}

// NoopAuditStore discards records; used when no database is configured.
type NoopAuditStore struct{}

func (NoopAuditStore) RecordExecution(context.Context, services.ExecutionRecord) error {
	return nil
}
