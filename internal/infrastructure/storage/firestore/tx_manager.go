package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/tx"
	"invoicebook/pkg/logger"
)

var tracer = otel.Tracer("invoicebook/storage/firestore")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// TxManager runs bodies in Firestore transactions. Firestore re-runs the body
// when a document it read changed before commit.
type TxManager struct {
	client *Client
}

// NewTxManager creates a transaction manager.
func NewTxManager(client *Client) *TxManager {
	return &TxManager{client: client}
}

type txKey struct{}

func txFrom(ctx context.Context) *firestore.Transaction {
	t, _ := ctx.Value(txKey{}).(*firestore.Transaction)
	return t
}

// RunInTransaction executes fn in a transaction. All reads in fn must happen
// before its first write.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("db.system", "firestore")))
	defer span.End()

	attempts := 0
	err := m.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		attempts++
		if attempts > 1 {
			logger.Debug(ctx, "transaction conflict, retrying", logger.Attempt(attempts))
		}
		return fn(tx.MarkActive(context.WithValue(ctx, txKey{}, t)))
	}, firestore.MaxAttempts(m.client.maxAttempts))

	span.SetAttributes(attribute.Int("tx.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		if apperror.IsAppError(err) {
			return err
		}
		return mapError(err)
	}
	return nil
}
