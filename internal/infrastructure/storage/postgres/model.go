package postgres

import (
	"time"

	"invoicebook/internal/core/types"
	"invoicebook/internal/domain/invoice"
)

type headerRow struct {
	ID              string      `db:"id"`
	InvoiceNumber   string      `db:"invoice_number"`
	InvoiceDate     string      `db:"invoice_date"`
	CustomerName    string      `db:"customer_name"`
	CustomerAddress string      `db:"customer_address"`
	CustomerPhone   string      `db:"customer_phone"`
	CurrencySymbol  string      `db:"currency_symbol"`
	SubTotal        types.Money `db:"sub_total"`
	DiscountType    string      `db:"discount_type"`
	DiscountValue   types.Money `db:"discount_value"`
	DiscountAmount  types.Money `db:"discount_amount"`
	GrandTotal      types.Money `db:"grand_total"`
	CreatedAt       time.Time   `db:"created_at"`
	UserID          string      `db:"user_id"`
}

type itemRow struct {
	ID          string      `db:"id"`
	InvoiceID   string      `db:"invoice_id"`
	Position    int         `db:"position"`
	Description string      `db:"description"`
	Quantity    types.Money `db:"quantity"`
	Price       types.Money `db:"price"`
	Total       types.Money `db:"total"`
}

var (
	headerColumns = ExtractDBColumns[headerRow]()
	itemColumns   = ExtractDBColumns[itemRow]()
)

func toHeaderRow(h *invoice.Header) headerRow {
	return headerRow{
		ID:              h.ID,
		InvoiceNumber:   h.InvoiceNumber,
		InvoiceDate:     h.InvoiceDate,
		CustomerName:    h.CustomerName,
		CustomerAddress: h.CustomerAddress,
		CustomerPhone:   h.CustomerPhone,
		CurrencySymbol:  h.CurrencySymbol,
		SubTotal:        h.SubTotal,
		DiscountType:    string(h.DiscountType),
		DiscountValue:   h.DiscountValue,
		DiscountAmount:  h.DiscountAmount,
		GrandTotal:      h.GrandTotal,
		UserID:          h.UserID,
	}
}

func (r headerRow) toDomain() *invoice.Header {
	return &invoice.Header{
		ID:              r.ID,
		InvoiceNumber:   r.InvoiceNumber,
		InvoiceDate:     r.InvoiceDate,
		CustomerName:    r.CustomerName,
		CustomerAddress: r.CustomerAddress,
		CustomerPhone:   r.CustomerPhone,
		CurrencySymbol:  r.CurrencySymbol,
		SubTotal:        r.SubTotal,
		DiscountType:    invoice.DiscountType(r.DiscountType),
		DiscountValue:   r.DiscountValue,
		DiscountAmount:  r.DiscountAmount,
		GrandTotal:      r.GrandTotal,
		CreatedAt:       r.CreatedAt.UTC(),
		UserID:          r.UserID,
	}
}

func (r itemRow) toDomain() invoice.LineItem {
	return invoice.LineItem{
		ID:          r.ID,
		Position:    r.Position,
		Description: r.Description,
		Quantity:    r.Quantity,
		Price:       r.Price,
		Total:       r.Total,
	}
}
