package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrappedCodeHelpers(t *testing.T) {
	notFound := fmt.Errorf("get header: %w", NewNotFound("invoice", "abc"))

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsForbidden(notFound))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(notFound))

	assert.True(t, IsForbidden(NewNotOwner("invoice", "abc")))
	assert.True(t, IsDuplicate(NewDuplicate("invoice", "invoiceNumber", "BILL/25/001")))
	assert.True(t, IsConcurrentModification(NewConcurrentModification("transaction", "create")))
	assert.True(t, IsValidation(NewValidation("bad")))
}

func TestAppError_UnwrapCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewDatabase(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))
	assert.Contains(t, err.Error(), "deadline exceeded")
}

func TestAppError_IndexUnavailableCarriesQuery(t *testing.T) {
	err := NewIndexUnavailable("invoices by userId order by createdAt desc", errors.New("FAILED_PRECONDITION"))

	assert.True(t, IsIndexUnavailable(err))
	assert.Equal(t, "invoices by userId order by createdAt desc", err.Details["query"])
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}
