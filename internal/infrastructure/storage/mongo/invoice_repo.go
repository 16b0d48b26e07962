package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/id"
	"invoicebook/internal/domain/invoice"
)

const sortedListQuery = "invoices where userId == ? order by createdAt desc"

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo stores headers in invoices and lines in invoice_items.
type InvoiceRepo struct {
	client *Client
}

// NewInvoiceRepo creates a repository.
func NewInvoiceRepo(client *Client) *InvoiceRepo {
	return &InvoiceRepo{client: client}
}

// Create inserts the header. createdAt comes from the server clock at write time.
func (r *InvoiceRepo) Create(ctx context.Context, h *invoice.Header) error {
	if h.ID == "" {
		h.ID = id.NewString()
	}

	doc := toHeaderDoc(h)
	doc.ID = ""
	update := bson.M{
		"$setOnInsert": doc,
		"$currentDate":  bson.M{"createdAt": true},
	}

	_, err := r.client.headers().UpdateOne(ctx, bson.M{"_id": h.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("insert invoice: %w", mapError(err))
	}
	return nil
}

// SaveLines inserts one document per line.
func (r *InvoiceRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]any, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = id.NewString()
		}
		docs = append(docs, toItemDoc(headerID, item))
	}

	if _, err := r.client.items().InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert items: %w", mapError(err))
	}
	return nil
}

// GetByID returns the header or NotFound.
func (r *InvoiceRepo) GetByID(ctx context.Context, headerID string) (*invoice.Header, error) {
	var doc headerDoc
	err := r.client.headers().FindOne(ctx, bson.M{"_id": headerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFound("invoice", headerID)
		}
		return nil, fmt.Errorf("get invoice: %w", mapError(err))
	}
	return doc.toDomain(), nil
}

// GetLines returns the lines of headerID ordered by position.
func (r *InvoiceRepo) GetLines(ctx context.Context, headerID string) ([]invoice.LineItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := r.client.items().Find(ctx, bson.M{"invoiceId": headerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", mapError(err))
	}

	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", mapError(err))
	}

	items := make([]invoice.LineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return items, nil
}

// DeleteLine removes one line; deleting a missing line matches nothing and succeeds.
func (r *InvoiceRepo) DeleteLine(ctx context.Context, headerID, lineID string) error {
	_, err := r.client.items().DeleteOne(ctx, bson.M{"_id": lineID, "invoiceId": headerID})
	if err != nil {
		return fmt.Errorf("delete item: %w", mapError(err))
	}
	return nil
}

// Delete removes the header document.
func (r *InvoiceRepo) Delete(ctx context.Context, headerID string) error {
	if _, err := r.client.headers().DeleteOne(ctx, bson.M{"_id": headerID}); err != nil {
		return fmt.Errorf("delete invoice: %w", mapError(err))
	}
	return nil
}

// UpdateNumber sets invoiceNumber only.
func (r *InvoiceRepo) UpdateNumber(ctx context.Context, headerID, number string) error {
	res, err := r.client.headers().UpdateOne(ctx,
		bson.M{"_id": headerID},
		bson.M{"$set": bson.M{"invoiceNumber": number}})
	if err != nil {
		return fmt.Errorf("update invoice number: %w", mapError(err))
	}
	if res.MatchedCount == 0 {
		return apperror.NewNotFound("invoice", headerID)
	}
	return nil
}

// FindByNumber returns owner's headers numbered number.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, owner, number string) ([]*invoice.Header, error) {
	headers, err := r.find(ctx, bson.M{"userId": owner, "invoiceNumber": number})
	if err != nil {
		return nil, fmt.Errorf("find by number: %w", mapError(err))
	}
	return headers, nil
}

// ListByOwner returns owner's headers. The sorted query is pinned to the
// userId/createdAt index and fails with IndexUnavailable when it is missing.
func (r *InvoiceRepo) ListByOwner(ctx context.Context, owner string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	var findOpts []*options.FindOptions
	if opts.NewestFirst {
		findOpts = append(findOpts, options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
			SetHint(listIndexName))
	}

	headers, err := r.find(ctx, bson.M{"userId": owner}, findOpts...)
	if err != nil {
		if isMissingIndex(err) {
			return nil, apperror.NewIndexUnavailable(sortedListQuery, err)
		}
		return nil, fmt.Errorf("list invoices: %w", mapError(err))
	}
	return headers, nil
}

func (r *InvoiceRepo) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*invoice.Header, error) {
	cursor, err := r.client.headers().Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	var docs []headerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	headers := make([]*invoice.Header, 0, len(docs))
	for _, doc := range docs {
		headers = append(headers, doc.toDomain())
	}
	return headers, nil
}
