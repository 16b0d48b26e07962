package invoice

import (
	"context"
)

// Repository is the storage port for invoice headers and their items.
//
// Every method uses the transaction carried by ctx when there is one
// (see tx.Manager) and talks to the store directly otherwise.
type Repository interface {
	// Create stores a new header and sets h.ID. CreatedAt is assigned by the
	// store's clock when the header is written (Firestore and memory stamp the
	// commit, Postgres and MongoDB the insert statement); callers must not rely
	// on h.CreatedAt afterwards.
	Create(ctx context.Context, h *Header) error

	// SaveLines creates one child document per item under headerID.
	SaveLines(ctx context.Context, headerID string, items []LineItem) error

	// GetByID returns apperror NotFound when the header does not exist.
	GetByID(ctx context.Context, headerID string) (*Header, error)

	// GetLines returns the items of headerID ordered by Position.
	GetLines(ctx context.Context, headerID string) ([]LineItem, error)

	// DeleteLine removes one item. Deleting a missing item is a no-op.
	DeleteLine(ctx context.Context, headerID, lineID string) error

	// Delete removes the header document only; items must be deleted first.
	Delete(ctx context.Context, headerID string) error

	// UpdateNumber changes invoiceNumber and nothing else.
	UpdateNumber(ctx context.Context, headerID, number string) error

	// FindByNumber returns the owner's headers carrying number.
	FindByNumber(ctx context.Context, owner, number string) ([]*Header, error)

	// ListByOwner returns the owner's headers without items.
	ListByOwner(ctx context.Context, owner string, opts ListOptions) ([]*Header, error)
}

// ListOptions shapes the list query.
type ListOptions struct {
	// NewestFirst asks the store to order by createdAt descending. Stores that need
	// a composite index for userId+createdAt return apperror IndexUnavailable when
	// it is missing. With NewestFirst unset the order is unspecified.
	NewestFirst bool
}
