package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/id"
	"invoicebook/internal/domain/invoice"
)

const (
	headersTable = "invoices"
	itemsTable   = "invoice_items"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo stores headers in invoices and lines in invoice_items.
// The list query is always served by idx_invoices_user_created, so it never
// reports IndexUnavailable.
type InvoiceRepo struct {
	txm *TxManager
}

// NewInvoiceRepo creates a repository using txm for connections.
func NewInvoiceRepo(txm *TxManager) *InvoiceRepo {
	return &InvoiceRepo{txm: txm}
}

// builder returns a squirrel builder with PostgreSQL placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the header. created_at is the database clock at insert time.
func (r *InvoiceRepo) Create(ctx context.Context, h *invoice.Header) error {
	if h.ID == "" {
		h.ID = id.NewString()
	}

	sql, args, err := insertHeader(h).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert invoice: %w", mapError(err))
	}
	return nil
}

// insertHeader builds the header INSERT. created_at is left to the column default.
func insertHeader(h *invoice.Header) squirrel.InsertBuilder {
	data := StructToMap(toHeaderRow(h))
	delete(data, "created_at")
	return builder().Insert(headersTable).SetMap(data)
}

// SaveLines inserts lines with COPY.
func (r *InvoiceRepo) SaveLines(ctx context.Context, headerID string, items []invoice.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = id.NewString()
		}
		rows = append(rows, StructToRow(itemRow{
			ID:          item.ID,
			InvoiceID:   headerID,
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Total:       item.Total,
		}, itemColumns))
	}

	_, err := r.txm.GetQuerier(ctx).CopyFrom(ctx, pgx.Identifier{itemsTable}, itemColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy items: %w", mapError(err))
	}
	return nil
}

// GetByID returns the header or NotFound.
func (r *InvoiceRepo) GetByID(ctx context.Context, headerID string) (*invoice.Header, error) {
	sql, args, err := builder().
		Select(headerColumns...).
		From(headersTable).
		Where(squirrel.Eq{"id": headerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row headerRow
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", headerID)
		}
		return nil, fmt.Errorf("get invoice: %w", mapError(err))
	}
	return row.toDomain(), nil
}

// GetLines returns the lines of headerID ordered by position.
func (r *InvoiceRepo) GetLines(ctx context.Context, headerID string) ([]invoice.LineItem, error) {
	sql, args, err := builder().
		Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"invoice_id": headerID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", mapError(err))
	}

	items := make([]invoice.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

// DeleteLine removes one line. Zero affected rows is not an error.
func (r *InvoiceRepo) DeleteLine(ctx context.Context, headerID, lineID string) error {
	return r.exec(ctx, "delete item", builder().
		Delete(itemsTable).
		Where(squirrel.Eq{"id": lineID, "invoice_id": headerID}))
}

// Delete removes the header row. Fails while lines still reference it.
func (r *InvoiceRepo) Delete(ctx context.Context, headerID string) error {
	return r.exec(ctx, "delete invoice", builder().
		Delete(headersTable).
		Where(squirrel.Eq{"id": headerID}))
}

// UpdateNumber sets invoice_number only.
func (r *InvoiceRepo) UpdateNumber(ctx context.Context, headerID, number string) error {
	sql, args, err := builder().
		Update(headersTable).
		Set("invoice_number", number).
		Where(squirrel.Eq{"id": headerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update invoice number: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("invoice", headerID)
	}
	return nil
}

// FindByNumber returns owner's headers numbered number.
func (r *InvoiceRepo) FindByNumber(ctx context.Context, owner, number string) ([]*invoice.Header, error) {
	return r.selectHeaders(ctx, "find by number", builder().
		Select(headerColumns...).
		From(headersTable).
		Where(squirrel.Eq{"user_id": owner, "invoice_number": number}))
}

// ListByOwner returns owner's headers, newest first when asked.
func (r *InvoiceRepo) ListByOwner(ctx context.Context, owner string, opts invoice.ListOptions) ([]*invoice.Header, error) {
	return r.selectHeaders(ctx, "list invoices", listByOwner(owner, opts))
}

func listByOwner(owner string, opts invoice.ListOptions) squirrel.SelectBuilder {
	q := builder().
		Select(headerColumns...).
		From(headersTable).
		Where(squirrel.Eq{"user_id": owner})
	if opts.NewestFirst {
		q = q.OrderBy("created_at DESC", "id DESC")
	}
	return q
}

func (r *InvoiceRepo) selectHeaders(ctx context.Context, op string, q squirrel.SelectBuilder) ([]*invoice.Header, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}

	var rows []headerRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	headers := make([]*invoice.Header, 0, len(rows))
	for _, row := range rows {
		headers = append(headers, row.toDomain())
	}
	return headers, nil
}

func (r *InvoiceRepo) exec(ctx context.Context, op string, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}
