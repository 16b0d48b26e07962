// Package numerator implements document auto-numbering over a numerator.Counter port.
// This is the infrastructure layer - it implements core/numerator.Generator interface.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"invoicebook/internal/core/apperror"
	corenumerator "invoicebook/internal/core/numerator"
	"invoicebook/internal/core/tx"
)

// Service mints gapless numbers: read the counter, add one, write it back, all through
// the caller's transaction. It keeps no state of its own, so a transaction body that the
// store re-runs after a conflict simply allocates again from the fresh counter value.
type Service struct {
	counter corenumerator.Counter
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service backed by counter.
func New(counter corenumerator.Counter) *Service {
	return &Service{counter: counter}
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX/YY/NNN (e.g., BILL/25/001)
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil || s.counter == nil {
		return "", apperror.NewInternal(fmt.Errorf("numerator service is not initialized"))
	}
	if !tx.IsActive(ctx) {
		return "", apperror.NewInternal(fmt.Errorf("numerator: allocation for scope %q requires a transaction", scopeOf(cfg)))
	}

	scope := scopeOf(cfg)
	last, err := s.counter.Load(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("load counter %s: %w", scope, err)
	}

	next := last + 1
	if err := s.counter.Store(ctx, scope, next); err != nil {
		return "", fmt.Errorf("store counter %s: %w", scope, err)
	}

	return FormatNumber(cfg, period, next), nil
}

// SetNextNumber sets the last issued value (for migration purposes).
// The next allocation returns value+1.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, value int64) error {
	if value < 0 {
		return apperror.NewValidation("counter value must not be negative").WithDetail("value", value)
	}
	if !tx.IsActive(ctx) {
		return apperror.NewInternal(fmt.Errorf("numerator: counter reset for scope %q requires a transaction", scopeOf(cfg)))
	}

	scope := scopeOf(cfg)
	if err := s.counter.Store(ctx, scope, value); err != nil {
		return fmt.Errorf("store counter %s: %w", scope, err)
	}
	return nil
}

func scopeOf(cfg corenumerator.Config) string {
	if cfg.Scope == "" {
		return corenumerator.DefaultScope
	}
	return cfg.Scope
}

// FormatNumber creates the final number string.
func FormatNumber(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = 3
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s/%s/%0*d", cfg.Prefix, period.Format("06"), padWidth, num)
	}
	return fmt.Sprintf("%s/%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric suffix from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndex(formatted, "/")
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
