package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invoicebook/internal/core/numerator"
)

// Compile-time check.
var _ numerator.Counter = (*CounterRepo)(nil)

// CounterRepo keeps one document per scope in the counters collection.
type CounterRepo struct {
	client *Client
}

// NewCounterRepo creates a counter repository.
func NewCounterRepo(client *Client) *CounterRepo {
	return &CounterRepo{client: client}
}

// Load returns lastInvoiceNumber, or 0 when the document does not exist.
func (r *CounterRepo) Load(ctx context.Context, scope string) (int64, error) {
	var doc counterDoc
	err := r.client.counters().FindOne(ctx, bson.M{"_id": scope}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("get counter %s: %w", scope, mapError(err))
	}
	return doc.LastInvoiceNumber, nil
}

// Store upserts lastInvoiceNumber.
func (r *CounterRepo) Store(ctx context.Context, scope string, value int64) error {
	_, err := r.client.counters().UpdateOne(ctx,
		bson.M{"_id": scope},
		bson.M{"$set": bson.M{"lastInvoiceNumber": value}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set counter %s: %w", scope, mapError(err))
	}
	return nil
}
