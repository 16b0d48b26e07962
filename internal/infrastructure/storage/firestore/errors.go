package firestore

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicebook/internal/core/apperror"
)

// mapError converts gRPC status errors into AppError codes.
// Errors that already are AppErrors pass through. FailedPrecondition outside a
// query (an expired or finished transaction) is a plain store failure.
func mapError(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	switch status.Code(err) {
	case codes.Aborted:
		return apperror.NewConcurrentModification("transaction", "firestore").WithCause(err)
	default:
		return apperror.NewDatabase(err)
	}
}

// mapQueryError is mapError for queries, tagging missing-index failures with the query shape.
func mapQueryError(err error, query string) error {
	if isMissingIndex(err) {
		return apperror.NewIndexUnavailable(query, err)
	}
	return mapError(err)
}

// isMissingIndex matches "The query requires an index. You can create it here: ...".
func isMissingIndex(err error) bool {
	if status.Code(err) != codes.FailedPrecondition {
		return false
	}
	return strings.Contains(strings.ToLower(status.Convert(err).Message()), "index")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
