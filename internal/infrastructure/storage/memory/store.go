// Package memory provides an in-process document store with optimistic
// transactions. It backs local development and the test suites of the
// packages above it.
package memory

import (
	"context"
	"sync"
	"time"

	"invoicebook/internal/domain/invoice"
)

const defaultMaxAttempts = 5

// Store holds header, item and counter documents.
//
// Every document key carries a version that changes on each committed write,
// deletes included. Transactions record the versions they read and are
// re-run when any of them changed before commit.
type Store struct {
	mu       sync.Mutex
	headers  map[string]invoice.Header
	order    []string
	items    map[string]map[string]invoice.LineItem
	counters map[string]int64
	versions map[string]int64
	clock    int64

	lastCommit  time.Time
	now         func() time.Time
	maxAttempts int
	listIndex   bool

	// beforeCommit runs under no lock right before validation; tests use it to
	// interleave a conflicting write.
	beforeCommit func(attempt int)
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts bounds how many times a conflicting transaction body is run.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock sets the source of commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithoutListIndex makes the sorted list query fail with IndexUnavailable,
// like a document store whose composite index is still building.
func WithoutListIndex() Option {
	return func(s *Store) {
		s.listIndex = false
	}
}

// WithBeforeCommit installs a hook called before each commit attempt.
func WithBeforeCommit(fn func(attempt int)) Option {
	return func(s *Store) {
		s.beforeCommit = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		headers:     make(map[string]invoice.Header),
		items:       make(map[string]map[string]invoice.LineItem),
		counters:    make(map[string]int64),
		versions:    make(map[string]int64),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		listIndex:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() {}

func headerKey(id string) string { return "invoices/" + id }
func counterKey(scope string) string { return "counters/" + scope }

// bump must be called with mu held.
func (s *Store) bump(key string) {
	s.clock++
	s.versions[key] = s.clock
}

// commitTime returns a timestamp strictly after the previous commit.
// Must be called with mu held.
func (s *Store) commitTime() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastCommit) {
		t = s.lastCommit.Add(time.Nanosecond)
	}
	s.lastCommit = t
	return t
}

// apply runs write through the transaction in ctx, or immediately when there is none.
// Reads inside a transaction observe committed state only, not the transaction's own writes.
func (s *Store) apply(ctx context.Context, write func(s *Store, commitAt time.Time)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t := txFrom(ctx); t != nil {
		t.addWrite(write)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	write(s, s.commitTime())
	return nil
}

// read runs fn under the store lock and records key's version in the transaction of ctx.
func (s *Store) read(ctx context.Context, key string, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	fn()
	version := s.versions[key]
	s.mu.Unlock()

	if t := txFrom(ctx); t != nil {
		t.recordRead(key, version)
	}
	return nil
}
