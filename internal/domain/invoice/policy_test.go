package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invoicebook/internal/core/apperror"
)

func TestAuthorize(t *testing.T) {
	h := &Header{ID: "inv-1", UserID: "alice"}

	assert.NoError(t, Authorize(h, "alice"))
	assert.True(t, apperror.IsForbidden(Authorize(h, "bob")))
	assert.True(t, apperror.IsForbidden(Authorize(h, "")))
	assert.True(t, apperror.IsForbidden(Authorize(nil, "alice")))
}

func TestCanModify(t *testing.T) {
	assert.True(t, CanModify(&Header{UserID: "alice"}, "alice"))
	assert.False(t, CanModify(&Header{UserID: ""}, ""))
	assert.False(t, CanModify(nil, "alice"))
}
