// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator mints sequential document numbers.
// This is the domain contract - implementations live in infrastructure layer.
//
// Both methods must be called from inside tx.Manager.RunInTransaction: the counter
// update and the write that consumes the number commit or abort together.
type Generator interface {
	// GetNextNumber reserves the next number of cfg.Scope and formats it
	// using period for the year component.
	// Pattern: PREFIX/YY/NNN (e.g., BILL/25/001)
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)

	// SetNextNumber overwrites the last issued value (for migration purposes).
	SetNextNumber(ctx context.Context, cfg Config, value int64) error
}

// Counter is the storage port for the singleton counter document of a scope.
// Implementations read and write through the transaction carried by ctx.
type Counter interface {
	// Load returns lastInvoiceNumber of scope, or 0 when the document does not exist.
	Load(ctx context.Context, scope string) (int64, error)

	// Store writes lastInvoiceNumber of scope, creating the document if needed.
	Store(ctx context.Context, scope string, value int64) error
}
