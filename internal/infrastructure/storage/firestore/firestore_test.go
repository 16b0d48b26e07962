package firestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/types"
	"invoicebook/internal/domain/invoice"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"aborted is contention", status.Error(codes.Aborted, "too much contention"), apperror.IsConcurrentModification},
		{"expired transaction is database", status.Error(codes.FailedPrecondition, "the referenced transaction has expired or is no longer valid"), func(err error) bool {
			return apperror.GetHTTPStatus(err) == 503 && !apperror.IsIndexUnavailable(err)
		}},
		{"failed precondition outside a query is not an index error", status.Error(codes.FailedPrecondition, "The query requires an index"), func(err error) bool {
			return !apperror.IsIndexUnavailable(err)
		}},
		{"unavailable is database", status.Error(codes.Unavailable, "connection reset"), func(err error) bool {
			return apperror.GetHTTPStatus(err) == 503 && !apperror.IsIndexUnavailable(err)
		}},
		{"wrapped status", fmt.Errorf("iterate: %w", status.Error(codes.Aborted, "x")), apperror.IsConcurrentModification},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(mapError(tt.err)))
		})
	}

	assert.Nil(t, mapError(nil))
	notFound := apperror.NewNotFound("invoice", "x")
	assert.Same(t, notFound, mapError(notFound))
	assert.ErrorIs(t, mapError(context.Canceled), context.Canceled)
}

func TestMapQueryError_TagsShape(t *testing.T) {
	err := mapQueryError(status.Error(codes.FailedPrecondition, "index"), sortedListQuery)

	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.CodeIndexUnavailable, appErr.Code)
	assert.Equal(t, sortedListQuery, appErr.Details["query"])

	expired := mapQueryError(status.Error(codes.FailedPrecondition, "the referenced transaction has expired"), sortedListQuery)
	assert.False(t, apperror.IsIndexUnavailable(expired))
	assert.Equal(t, apperror.CodeDatabase, appErrCode(expired))

	wrapped := mapQueryError(fmt.Errorf("next: %w", status.Error(codes.FailedPrecondition, "The query requires an index. You can create it here")), sortedListQuery)
	assert.True(t, apperror.IsIndexUnavailable(wrapped))
}

func appErrCode(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, isNotFound(errors.New("missing")))
}

func TestHeaderDoc_RoundTrip(t *testing.T) {
	created := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	h := &invoice.Header{
		ID:             "ignored",
		InvoiceNumber:  "BILL/25/007",
		InvoiceDate:    "2025-05-04",
		CustomerName:   "Acme",
		CurrencySymbol: "$",
		SubTotal:       types.MustMoney("250"),
		DiscountType:   invoice.DiscountPercentage,
		DiscountValue:  types.MustMoney("10"),
		DiscountAmount: types.MustMoney("25"),
		GrandTotal:     types.MustMoney("225"),
		CreatedAt:      created,
		UserID:         "alice",
	}

	doc := toHeaderDoc(h)
	assert.True(t, doc.CreatedAt.IsZero(), "server assigns createdAt")
	assert.Equal(t, "225", doc.GrandTotal)

	doc.CreatedAt = created
	got := doc.toDomain("abc")
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, h.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, h.UserID, got.UserID)
	assert.True(t, got.GrandTotal.Equal(h.GrandTotal))
	assert.Equal(t, invoice.DiscountPercentage, got.DiscountType)
	assert.Equal(t, created, got.CreatedAt)
}

func TestItemDoc_RoundTrip(t *testing.T) {
	item := invoice.LineItem{
		Position:    2,
		Description: "Hosting",
		Quantity:    types.MustMoney("1.5"),
		Price:       types.MustMoney("20"),
		Total:       types.MustMoney("30"),
	}

	got := toItemDoc(item).toDomain("item-1")
	assert.Equal(t, "item-1", got.ID)
	assert.Equal(t, 2, got.Position)
	assert.True(t, got.Total.Equal(item.Total))
	assert.True(t, got.Quantity.Equal(item.Quantity))
}
