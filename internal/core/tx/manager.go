// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// document store implementations, following the Dependency Inversion Principle.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// Implementations run fn with read-then-write atomicity and re-run it when the
// store detects a conflicting concurrent commit, up to an implementation-defined
// number of attempts. fn must therefore be safe to execute more than once and
// must not keep side effects outside the store.
//
// Domain services depend on this interface, not concrete implementations.
// The actual implementations live in infrastructure/storage/*.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back and the error returned unchanged.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type activeKey struct{}

// MarkActive returns a context flagged as running inside a transaction body.
// Every Manager implementation calls it before invoking fn.
func MarkActive(ctx context.Context) context.Context {
	return context.WithValue(ctx, activeKey{}, true)
}

// IsActive reports whether ctx belongs to a transaction body.
func IsActive(ctx context.Context) bool {
	active, _ := ctx.Value(activeKey{}).(bool)
	return active
}
