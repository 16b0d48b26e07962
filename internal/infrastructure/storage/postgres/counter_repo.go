package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"invoicebook/internal/core/numerator"
)

// Compile-time check.
var _ numerator.Counter = (*CounterRepo)(nil)

// CounterRepo keeps one sys_sequences row per scope.
type CounterRepo struct {
	txm *TxManager
}

// NewCounterRepo creates a counter repository.
func NewCounterRepo(txm *TxManager) *CounterRepo {
	return &CounterRepo{txm: txm}
}

// Load returns current_val, locking the row for the rest of the transaction.
// A missing row reads as 0.
func (r *CounterRepo) Load(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := r.txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT current_val FROM sys_sequences WHERE key = $1 FOR UPDATE`, scope).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %s: %w", scope, mapError(err))
	}
	return value, nil
}

// Store upserts current_val.
func (r *CounterRepo) Store(ctx context.Context, scope string, value int64) error {
	_, err := r.txm.GetQuerier(ctx).Exec(ctx,
		`INSERT INTO sys_sequences (key, current_val) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET current_val = EXCLUDED.current_val`, scope, value)
	if err != nil {
		return fmt.Errorf("set counter %s: %w", scope, mapError(err))
	}
	return nil
}
