package memory

import (
	"context"
	"time"

	"invoicebook/internal/core/numerator"
)

// Compile-time check.
var _ numerator.Counter = (*CounterRepo)(nil)

// CounterRepo keeps the singleton counter document of each numbering scope.
type CounterRepo struct {
	store *Store
}

// NewCounterRepo creates a counter repository over store.
func NewCounterRepo(store *Store) *CounterRepo {
	return &CounterRepo{store: store}
}

// Load returns the last issued value of scope; 0 when the scope was never used.
func (r *CounterRepo) Load(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := r.store.read(ctx, counterKey(scope), func() {
		value = r.store.counters[scope]
	})
	return value, err
}

// Store writes the last issued value of scope.
func (r *CounterRepo) Store(ctx context.Context, scope string, value int64) error {
	return r.store.apply(ctx, func(s *Store, _ time.Time) {
		s.counters[scope] = value
		s.bump(counterKey(scope))
	})
}
