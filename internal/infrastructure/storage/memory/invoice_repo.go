package memory

import (
	"context"
	"sort"
	"time"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/id"
	"invoicebook/internal/domain/invoice"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo stores invoice headers and their items in a Store.
type InvoiceRepo struct {
	store *Store
}

// NewInvoiceRepo creates a repository over store.
func NewInvoiceRepo(store *Store) *InvoiceRepo {
	return &InvoiceRepo{store: store}
}

// Create stores h under a new id. CreatedAt is the commit time.
func (r *InvoiceRepo) Create(ctx context.Context, h *invoice.Header) error {
	if h.ID == "" {
		h.ID = id.NewString()
	}
	doc := *h

	return r.store.apply(ctx, func(s *Store, commitAt time.Time) {
		doc.CreatedAt = commitAt
		s.headers[doc.ID] = doc
		s.order = append(s.order, doc.ID)
		s.bump(headerKey(doc.ID))
	})
}

// SaveLines stores one item document per line under headerID.
func (r *InvoiceRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	docs := make([]invoice.LineItem, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = id.NewString()
		}
		docs[i] = item
	}

	return r.store.apply(ctx, func(s *Store, _ time.Time) {
		lines := s.items[headerID]
		if lines == nil {
			lines = make(map[string]invoice.LineItem, len(docs))
			s.items[headerID] = lines
		}
		for _, doc := range docs {
			lines[doc.ID] = doc
		}
	})
}

// GetByID returns the header or NotFound.
func (r *InvoiceRepo) GetByID(ctx context.Context, headerID string) (*invoice.Header, error) {
	var (
		h  invoice.Header
		ok bool
	)
	if err := r.store.read(ctx, headerKey(headerID), func() {
		h, ok = r.store.headers[headerID]
	}); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NewNotFound("invoice", headerID)
	}
	return &h, nil
}

// GetLines returns the items of headerID ordered by position.
func (r *InvoiceRepo) GetLines(ctx context.Context, headerID string) ([]invoice.LineItem, error) {
	var lines []invoice.LineItem
	if err := r.store.read(ctx, headerKey(headerID), func() {
		lines = make([]invoice.LineItem, 0, len(r.store.items[headerID]))
		for _, item := range r.store.items[headerID] {
			lines = append(lines, item)
		}
	}); err != nil {
		return nil, err
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Position < lines[j].Position
	})
	return lines, nil
}

// DeleteLine removes one item; a missing item is ignored.
func (r *InvoiceRepo) DeleteLine(ctx context.Context, headerID, lineID string) error {
	return r.store.apply(ctx, func(s *Store, _ time.Time) {
		lines := s.items[headerID]
		delete(lines, lineID)
		if len(lines) == 0 {
			delete(s.items, headerID)
		}
	})
}

// Delete removes the header document. Items are not touched.
func (r *InvoiceRepo) Delete(ctx context.Context, headerID string) error {
	return r.store.apply(ctx, func(s *Store, _ time.Time) {
		if _, ok := s.headers[headerID]; !ok {
			return
		}
		delete(s.headers, headerID)
		for i, hid := range s.order {
			if hid == headerID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.bump(headerKey(headerID))
	})
}

// UpdateNumber sets invoiceNumber of headerID, leaving every other field as is.
func (r *InvoiceRepo) UpdateNumber(ctx context.Context, headerID, number string) error {
	if _, err := r.GetByID(ctx, headerID); err != nil {
		return err
	}

	return r.store.apply(ctx, func(s *Store, _ time.Time) {
		h, ok := s.headers[headerID]
		if !ok {
			return
		}
		h.InvoiceNumber = number
		s.headers[headerID] = h
		s.bump(headerKey(headerID))
	})
}

// FindByNumber returns owner's headers numbered number, in insertion order.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, owner, number string) ([]*invoice.Header, error) {
	return r.scan(ctx, func(h *invoice.Header) bool {
		return h.UserID == owner && h.InvoiceNumber == number
	})
}

// ListByOwner returns owner's headers. The sorted form needs the list index.
func (r *InvoiceRepo) ListByOwner(ctx context.Context, owner string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	if opts.NewestFirst && !r.store.listIndex {
		return nil, apperror.NewIndexUnavailable("invoices where userId == ? order by createdAt desc", nil)
	}

	headers, err := r.scan(ctx, func(h *invoice.Header) bool {
		return h.UserID == owner
	})
	if err != nil {
		return nil, err
	}

	if opts.NewestFirst {
		invoice.SortNewestFirst(headers)
	}
	return headers, nil
}

func (r *InvoiceRepo) scan(ctx context.Context, match func(h *invoice.Header) bool) ([]*invoice.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []*invoice.Header
	for _, hid := range r.store.order {
		h := r.store.headers[hid]
		if match(&h) {
			result = append(result, &h)
		}
	}
	return result, nil
}
