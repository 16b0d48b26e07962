package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/domain/invoice"
)

func TestListByOwner_SQL(t *testing.T) {
	sql, args, err := listByOwner("alice", invoice.ListOptions{NewestFirst: true}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, "), sql)
	assert.True(t, strings.HasSuffix(sql, " FROM invoices WHERE user_id = $1 ORDER BY created_at DESC, id DESC"), sql)
	assert.Equal(t, []any{"alice"}, args)

	unordered, _, err := listByOwner("alice", invoice.ListOptions{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, unordered, "ORDER BY")
}

func TestInsertHeader_LeavesCreatedAtToDatabase(t *testing.T) {
	h := &invoice.Header{ID: "inv-1", UserID: "alice", InvoiceNumber: "INV-0001"}

	sql, args, err := insertHeader(h).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO invoices ("), sql)
	assert.NotContains(t, sql, "created_at")
	assert.Contains(t, sql, "user_id")
	assert.Contains(t, sql, "invoice_number")
	assert.Len(t, args, len(headerColumns)-1)
	assert.Contains(t, args, "inv-1")
	assert.Contains(t, args, "INV-0001")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: sqlStateSerializationFailure}))
	assert.True(t, isRetryable(fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: sqlStateDeadlockDetected})))
	assert.False(t, isRetryable(&pgconn.PgError{Code: sqlStateUniqueViolation}))
	assert.False(t, isRetryable(errors.New("broken pipe")))
}

func TestMapError(t *testing.T) {
	serialization := mapError(&pgconn.PgError{Code: sqlStateSerializationFailure})
	assert.True(t, apperror.IsConcurrentModification(serialization))
	assert.True(t, isRetryable(serialization), "cause stays reachable for the retry loop")

	dup := mapError(&pgconn.PgError{Code: sqlStateUniqueViolation, TableName: "invoices", ConstraintName: "invoices_pkey"})
	assert.True(t, apperror.IsDuplicate(dup))

	assert.Equal(t, 503, apperror.GetHTTPStatus(mapError(errors.New("connection refused"))))

	notFound := apperror.NewNotFound("invoice", "x")
	assert.Same(t, notFound, mapError(notFound))
}
