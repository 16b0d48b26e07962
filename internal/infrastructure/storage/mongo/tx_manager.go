package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/tx"
	"invoicebook/pkg/logger"
)

var tracer = otel.Tracer("invoicebook/storage/mongo")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// TxManager runs bodies in MongoDB multi-document transactions. Concurrent
// writers of the same document get a write conflict, labelled
// TransientTransactionError, and the body is run again.
type TxManager struct {
	client *Client
}

// NewTxManager creates a transaction manager.
func NewTxManager(client *Client) *TxManager {
	return &TxManager{client: client}
}

// RunInTransaction executes fn in a transaction, at most maxAttempts times.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(attribute.String("db.system", "mongodb")))
	defer span.End()

	session, err := m.client.StartSession()
	if err != nil {
		return mapError(err)
	}
	defer session.EndSession(context.Background())

	var lastErr error
	for attempt := 1; attempt <= m.client.maxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("tx.attempts", attempt))

		lastErr = mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
			if err := session.StartTransaction(); err != nil {
				return err
			}
			if err := fn(tx.MarkActive(sc)); err != nil {
				_ = session.AbortTransaction(context.Background())
				return err
			}
			return commitWithRetry(sc, session, m.client.maxAttempts)
		})
		if lastErr == nil {
			return nil
		}
		if !hasLabel(lastErr, driver.TransientTransactionError) {
			span.RecordError(lastErr)
			if apperror.IsAppError(lastErr) {
				return lastErr
			}
			return mapError(lastErr)
		}

		logger.Debug(ctx, "transaction conflict, retrying", logger.Attempt(attempt), logger.Err(lastErr))
	}

	span.RecordError(lastErr)
	return apperror.NewConcurrentModification("transaction", "mongo").
		WithDetail("attempts", m.client.maxAttempts).
		WithCause(lastErr)
}

// committer is the part of mongo.Session that commitWithRetry needs.
type committer interface {
	CommitTransaction(ctx context.Context) error
}

// commitWithRetry repeats a commit whose outcome is unknown, at most maxAttempts times.
// The last error keeps its label, so an exhausted retry still reads as transient.
func commitWithRetry(ctx context.Context, session committer, maxAttempts int) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = session.CommitTransaction(ctx)
		if err == nil || !hasLabel(err, driver.UnknownTransactionCommitResult) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debug(ctx, "commit result unknown, retrying", logger.Attempt(attempt))
	}
	return err
}

func hasLabel(err error, label string) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel(label)
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel(label)
	}
	return false
}
