package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"invoicebook/internal/core/numerator"
)

// Compile-time check.
var _ numerator.Counter = (*CounterRepo)(nil)

// CounterRepo reads and writes counters/{scope}.
type CounterRepo struct {
	client *Client
}

// NewCounterRepo creates a counter repository.
func NewCounterRepo(client *Client) *CounterRepo {
	return &CounterRepo{client: client}
}

// Load returns lastInvoiceNumber, or 0 when the counter document does not exist.
func (r *CounterRepo) Load(ctx context.Context, scope string) (int64, error) {
	ref := r.client.counter(scope)

	var (
		snap *firestore.DocumentSnapshot
		err  error
	)
	if t := txFrom(ctx); t != nil {
		snap, err = t.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter %s: %w", scope, mapError(err))
	}

	var doc counterDoc
	if err := snap.DataTo(&doc); err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", scope, err)
	}
	return doc.LastInvoiceNumber, nil
}

// Store writes lastInvoiceNumber, creating the document when needed.
func (r *CounterRepo) Store(ctx context.Context, scope string, value int64) error {
	ref := r.client.counter(scope)
	doc := counterDoc{LastInvoiceNumber: value}

	var err error
	if t := txFrom(ctx); t != nil {
		err = t.Set(ref, doc)
	} else {
		_, err = ref.Set(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("set counter %s: %w", scope, mapError(err))
	}
	return nil
}
