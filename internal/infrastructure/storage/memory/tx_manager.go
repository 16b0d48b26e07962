package memory

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/tx"
	"invoicebook/pkg/logger"
)

var tracer = otel.Tracer("invoicebook/storage/memory")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// TxManager runs optimistic transactions against a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

type txKey struct{}

// txn is the state of one transaction attempt.
type txn struct {
	mu     sync.Mutex
	reads  map[string]int64
	writes []func(s *Store, commitAt time.Time)
}

func txFrom(ctx context.Context) *txn {
	t, _ := ctx.Value(txKey{}).(*txn)
	return t
}

// recordRead remembers the version of key seen by this attempt.
// The first observed version wins.
func (t *txn) recordRead(key string, version int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.reads[key]; !ok {
		t.reads[key] = version
	}
}

func (t *txn) addWrite(fn func(s *Store, commitAt time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, fn)
}

// RunInTransaction executes fn, then validates its read set and applies its
// buffered writes atomically. A stale read re-runs fn, at most maxAttempts times.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("db.system", "memory")))
	defer span.End()

	for attempt := 1; attempt <= m.store.maxAttempts; attempt++ {
		t := &txn{reads: make(map[string]int64)}
		txCtx := tx.MarkActive(context.WithValue(ctx, txKey{}, t))

		if err := fn(txCtx); err != nil {
			span.RecordError(err)
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.store.beforeCommit != nil {
			m.store.beforeCommit(attempt)
		}

		if m.store.commit(t) {
			span.SetAttributes(attribute.Int("tx.attempts", attempt))
			return nil
		}

		logger.Debug(ctx, "transaction conflict, retrying", logger.Attempt(attempt))
	}

	err := apperror.NewConcurrentModification("transaction", "memory").
		WithDetail("attempts", m.store.maxAttempts)
	span.RecordError(err)
	return err
}

// commit validates t's read set and applies its writes. It reports false on conflict.
func (s *Store) commit(t *txn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range t.reads {
		if s.versions[key] != seen {
			return false
		}
	}

	at := s.commitTime()
	for _, w := range t.writes {
		w(s, at)
	}
	return true
}
