package mongo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/types"
	"invoicebook/internal/domain/invoice"
)

func TestIsMissingIndex(t *testing.T) {
	hintErr := mongo.CommandError{
		Code:    2,
		Name:    "BadValue",
		Message: "error processing query: planner returned error :: caused by :: hint provided does not correspond to an existing index",
	}

	assert.True(t, isMissingIndex(hintErr))
	assert.True(t, isMissingIndex(fmt.Errorf("find: %w", hintErr)))
	assert.False(t, isMissingIndex(mongo.CommandError{Code: 2, Message: "bad filter"}))
	assert.False(t, isMissingIndex(errors.New("hint")))
}

func TestMapError(t *testing.T) {
	conflict := mongo.CommandError{
		Code:   112,
		Name:   "WriteConflict",
		Labels: []string{driver.TransientTransactionError},
	}

	err := mapError(conflict)
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.True(t, hasLabel(err, driver.TransientTransactionError), "label survives wrapping")

	assert.Equal(t, apperror.CodeDatabase, mustCode(t, mapError(errors.New("connection refused"))))
	assert.Nil(t, mapError(nil))
}

func TestHasLabel(t *testing.T) {
	assert.Equal(t, "TransientTransactionError", driver.TransientTransactionError)
	assert.Equal(t, "UnknownTransactionCommitResult", driver.UnknownTransactionCommitResult)

	conflict := mongo.CommandError{Code: 112, Labels: []string{"TransientTransactionError"}}
	assert.True(t, hasLabel(conflict, driver.TransientTransactionError))
	assert.True(t, hasLabel(fmt.Errorf("save lines: %w", conflict), driver.TransientTransactionError))
	assert.False(t, hasLabel(conflict, driver.UnknownTransactionCommitResult))
	assert.False(t, hasLabel(errors.New("x"), driver.TransientTransactionError))
	assert.True(t, hasLabel(mongo.CommandError{Labels: []string{driver.UnknownTransactionCommitResult}}, driver.UnknownTransactionCommitResult))

	assert.True(t, apperror.IsConcurrentModification(mapError(fmt.Errorf("create: %w", conflict))))
	assert.Equal(t, apperror.CodeDatabase, mustCode(t, mapError(mongo.CommandError{Code: 11600, Name: "InterruptedAtShutdown"})))
}

type scriptedCommit struct {
	errs  []error
	calls int
}

func (s *scriptedCommit) CommitTransaction(context.Context) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestCommitWithRetry(t *testing.T) {
	unknown := mongo.CommandError{Code: 91, Labels: []string{driver.UnknownTransactionCommitResult}}
	ctx := context.Background()

	t.Run("retries unknown result until it commits", func(t *testing.T) {
		s := &scriptedCommit{errs: []error{unknown, unknown}}
		require.NoError(t, commitWithRetry(ctx, s, 5))
		assert.Equal(t, 3, s.calls)
	})

	t.Run("stops after max attempts", func(t *testing.T) {
		s := &scriptedCommit{errs: []error{unknown, unknown, unknown, unknown}}
		err := commitWithRetry(ctx, s, 3)
		require.Error(t, err)
		assert.Equal(t, 3, s.calls)
		assert.True(t, hasLabel(err, driver.UnknownTransactionCommitResult))
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		boom := errors.New("network")
		s := &scriptedCommit{errs: []error{boom}}
		assert.ErrorIs(t, commitWithRetry(ctx, s, 5), boom)
		assert.Equal(t, 1, s.calls)
	})

	t.Run("cancelled context ends the loop", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := &scriptedCommit{errs: []error{unknown, unknown}}
		assert.ErrorIs(t, commitWithRetry(cctx, s, 5), context.Canceled)
		assert.Equal(t, 1, s.calls)
	})
}

func TestHeaderDoc_RoundTrip(t *testing.T) {
	h := &invoice.Header{
		ID:             "0190a5a0-0000-7000-8000-000000000001",
		InvoiceNumber:  "BILL/25/001",
		CustomerName:   "Acme",
		CurrencySymbol: "$",
		SubTotal:       types.MustMoney("250.50"),
		DiscountType:   invoice.DiscountFixed,
		DiscountValue:  types.MustMoney("0.50"),
		DiscountAmount: types.MustMoney("0.50"),
		GrandTotal:     types.MustMoney("250"),
		UserID:         "alice",
	}

	doc := toHeaderDoc(h)
	assert.True(t, doc.CreatedAt.IsZero())

	doc.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	got := doc.toDomain()
	assert.Equal(t, h.ID, got.ID)
	assert.True(t, got.SubTotal.Equal(h.SubTotal), got.SubTotal.String())
	assert.True(t, got.GrandTotal.Equal(h.GrandTotal))
	assert.Equal(t, "alice", got.UserID)
}

func TestItemDoc_RoundTrip(t *testing.T) {
	item := invoice.LineItem{ID: "line-1", Position: 1, Description: "x",
		Quantity: types.MustMoney("3"), Price: types.MustMoney("0.1"), Total: types.MustMoney("0.3")}

	doc := toItemDoc("inv-1", item)
	assert.Equal(t, "inv-1", doc.InvoiceID)

	got := doc.toDomain()
	assert.Equal(t, item.ID, got.ID)
	assert.True(t, got.Total.Equal(types.MustMoney("0.3")))
}

func mustCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	return appErr.Code
}
