package invoice

import (
	"invoicebook/internal/core/apperror"
)

// Ownable is implemented by records that carry an owning user id.
type Ownable interface {
	GetUserID() string
}

// CanModify reports whether callerID owns resource.
// A nil resource or an empty caller is always denied.
func CanModify(resource Ownable, callerID string) bool {
	if resource == nil || callerID == "" {
		return false
	}
	return resource.GetUserID() == callerID
}

// Authorize is the guard run at the top of every mutating operation.
func Authorize(h *Header, callerID string) error {
	if h == nil || !CanModify(h, callerID) {
		var headerID string
		if h != nil {
			headerID = h.ID
		}
		return apperror.NewNotOwner("invoice", headerID)
	}
	return nil
}
