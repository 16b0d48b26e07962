package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/domain/invoice"
)

const (
	sortedListQuery   = "invoices where userId == ? order by createdAt desc"
	unsortedListQuery = "invoices where userId == ?"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo stores headers in the invoices collection and items in their
// items subcollection.
type InvoiceRepo struct {
	client *Client
}

// NewInvoiceRepo creates a repository.
func NewInvoiceRepo(client *Client) *InvoiceRepo {
	return &InvoiceRepo{client: client}
}

// Create adds a header document with a generated id.
func (r *InvoiceRepo) Create(ctx context.Context, h *invoice.Header) error {
	ref := r.client.headers().NewDoc()
	doc := toHeaderDoc(h)

	var err error
	if t := txFrom(ctx); t != nil {
		err = t.Create(ref, doc)
	} else {
		_, err = ref.Create(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("create invoice: %w", mapError(err))
	}

	h.ID = ref.ID
	return nil
}

// SaveLines adds one item document per line.
func (r *InvoiceRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	col := r.client.items(headerID)

	if t := txFrom(ctx); t != nil {
		for _, item := range items {
			if err := t.Create(col.NewDoc(), toItemDoc(item)); err != nil {
				return fmt.Errorf("create item %d: %w", item.Position, mapError(err))
			}
		}
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(items))
	for _, item := range items {
		job, err := bw.Create(col.NewDoc(), toItemDoc(item))
		if err != nil {
			bw.End()
			return fmt.Errorf("create item %d: %w", item.Position, mapError(err))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("create item: %w", mapError(err))
		}
	}
	return nil
}

// GetByID returns the header or NotFound.
func (r *InvoiceRepo) GetByID(ctx context.Context, headerID string) (*invoice.Header, error) {
	if headerID == "" {
		return nil, apperror.NewNotFound("invoice", headerID)
	}
	ref := r.client.headers().Doc(headerID)

	var (
		snap *firestore.DocumentSnapshot
		err  error
	)
	if t := txFrom(ctx); t != nil {
		snap, err = t.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("invoice", headerID)
		}
		return nil, fmt.Errorf("get invoice: %w", mapError(err))
	}

	var doc headerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("decode invoice %s: %w", headerID, err))
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// GetLines returns the items of headerID ordered by position.
func (r *InvoiceRepo) GetLines(ctx context.Context, headerID string) ([]invoice.LineItem, error) {
	q := r.client.items(headerID).OrderBy("position", firestore.Asc)

	snaps, err := r.documents(ctx, q).GetAll()
	if err != nil {
		return nil, fmt.Errorf("get items: %w", mapError(err))
	}

	items := make([]invoice.LineItem, 0, len(snaps))
	for _, snap := range snaps {
		var doc itemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("decode item %s: %w", snap.Ref.ID, err))
		}
		items = append(items, doc.toDomain(snap.Ref.ID))
	}
	return items, nil
}

// DeleteLine removes one item. Firestore deletes of missing documents succeed.
func (r *InvoiceRepo) DeleteLine(ctx context.Context, headerID, lineID string) error {
	return r.delete(ctx, r.client.items(headerID).Doc(lineID))
}

// Delete removes the header document. Its items subcollection is not touched.
func (r *InvoiceRepo) Delete(ctx context.Context, headerID string) error {
	return r.delete(ctx, r.client.headers().Doc(headerID))
}

func (r *InvoiceRepo) delete(ctx context.Context, ref *firestore.DocumentRef) error {
	var err error
	if t := txFrom(ctx); t != nil {
		err = t.Delete(ref)
	} else {
		_, err = ref.Delete(ctx)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref.Path, mapError(err))
	}
	return nil
}

// UpdateNumber sets invoiceNumber only.
func (r *InvoiceRepo) UpdateNumber(ctx context.Context, headerID, number string) error {
	ref := r.client.headers().Doc(headerID)
	updates := []firestore.Update{{Path: "invoiceNumber", Value: number}}

	var err error
	if t := txFrom(ctx); t != nil {
		err = t.Update(ref, updates)
	} else {
		_, err = ref.Update(ctx, updates)
	}
	if err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("invoice", headerID)
		}
		return fmt.Errorf("update invoice number: %w", mapError(err))
	}
	return nil
}

// FindByNumber returns owner's headers numbered number.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, owner, number string) ([]*invoice.Header, error) {
	q := r.client.headers().
		Where("userId", "==", owner).
		Where("invoiceNumber", "==", number)

	headers, err := r.queryHeaders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find by number: %w", mapError(err))
	}
	return headers, nil
}

// ListByOwner returns owner's headers. The sorted form needs the composite
// index (userId ASC, createdAt DESC) and fails with IndexUnavailable without it.
func (r *InvoiceRepo) ListByOwner(ctx context.Context, owner string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	q := r.client.headers().Where("userId", "==", owner)
	shape := unsortedListQuery
	if opts.NewestFirst {
		q = q.OrderBy("createdAt", firestore.Desc)
		shape = sortedListQuery
	}

	headers, err := r.queryHeaders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", mapQueryError(err, shape))
	}
	return headers, nil
}

func (r *InvoiceRepo) queryHeaders(ctx context.Context, q firestore.Query) ([]*invoice.Header, error) {
	iter := r.documents(ctx, q)
	defer iter.Stop()

	var headers []*invoice.Header
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		var doc headerDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("decode invoice %s: %w", snap.Ref.ID, err))
		}
		headers = append(headers, doc.toDomain(snap.Ref.ID))
	}
	return headers, nil
}

func (r *InvoiceRepo) documents(ctx context.Context, q firestore.Query) *firestore.DocumentIterator {
	if t := txFrom(ctx); t != nil {
		return t.Documents(q)
	}
	return q.Documents(ctx)
}
