package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"invoicebook/internal/core/apperror"
)

// badValue is the server code for an invalid hint, among other things.
const badValue = 2

// mapError converts driver errors into AppError codes.
func mapError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if hasLabel(err, driver.TransientTransactionError) {
		return apperror.NewConcurrentModification("transaction", "mongo").WithCause(err)
	}
	return apperror.NewDatabase(err)
}

// isMissingIndex reports whether err is the server rejecting a hint for an index that does not exist.
func isMissingIndex(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == badValue && strings.Contains(strings.ToLower(ce.Message), "hint")
}
