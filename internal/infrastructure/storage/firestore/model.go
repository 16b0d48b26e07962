package firestore

import (
	"time"

	"invoicebook/internal/core/types"
	"invoicebook/internal/domain/invoice"
)

// headerDoc is the stored shape of invoices/{id}. Amounts are decimal strings.
type headerDoc struct {
	InvoiceNumber   string    `firestore:"invoiceNumber"`
	InvoiceDate     string    `firestore:"invoiceDate"`
	CustomerName    string    `firestore:"customerName"`
	CustomerAddress string    `firestore:"customerAddress,omitempty"`
	CustomerPhone   string    `firestore:"customerPhone,omitempty"`
	CurrencySymbol  string    `firestore:"currencySymbol"`
	SubTotal        string    `firestore:"subTotal"`
	DiscountType    string    `firestore:"discountType"`
	DiscountValue   string    `firestore:"discountValue"`
	DiscountAmount  string    `firestore:"discountAmount"`
	GrandTotal      string    `firestore:"grandTotal"`
	CreatedAt       time.Time `firestore:"createdAt,serverTimestamp"`
	UserID          string    `firestore:"userId"`
}

// itemDoc is the stored shape of invoices/{id}/items/{itemId}.
type itemDoc struct {
	Position    int    `firestore:"position"`
	Description string `firestore:"description"`
	Quantity    string `firestore:"quantity"`
	Price       string `firestore:"price"`
	Total       string `firestore:"total"`
}

// counterDoc is the stored shape of counters/{scope}.
type counterDoc struct {
	LastInvoiceNumber int64 `firestore:"lastInvoiceNumber"`
}

// toHeaderDoc leaves CreatedAt zero so the server assigns the commit time.
func toHeaderDoc(h *invoice.Header) headerDoc {
	return headerDoc{
		InvoiceNumber:   h.InvoiceNumber,
		InvoiceDate:     h.InvoiceDate,
		CustomerName:    h.CustomerName,
		CustomerAddress: h.CustomerAddress,
		CustomerPhone:   h.CustomerPhone,
		CurrencySymbol:  h.CurrencySymbol,
		SubTotal:        h.SubTotal.String(),
		DiscountType:    string(h.DiscountType),
		DiscountValue:   h.DiscountValue.String(),
		DiscountAmount:  h.DiscountAmount.String(),
		GrandTotal:      h.GrandTotal.String(),
		UserID:          h.UserID,
	}
}

func (d headerDoc) toDomain(docID string) *invoice.Header {
	return &invoice.Header{
		ID:              docID,
		InvoiceNumber:   d.InvoiceNumber,
		InvoiceDate:     d.InvoiceDate,
		CustomerName:    d.CustomerName,
		CustomerAddress: d.CustomerAddress,
		CustomerPhone:   d.CustomerPhone,
		CurrencySymbol:  d.CurrencySymbol,
		SubTotal:        types.CoerceMoney(d.SubTotal),
		DiscountType:    invoice.DiscountType(d.DiscountType),
		DiscountValue:   types.CoerceMoney(d.DiscountValue),
		DiscountAmount:  types.CoerceMoney(d.DiscountAmount),
		GrandTotal:      types.CoerceMoney(d.GrandTotal),
		CreatedAt:       d.CreatedAt,
		UserID:          d.UserID,
	}
}

func toItemDoc(item invoice.LineItem) itemDoc {
	return itemDoc{
		Position:    item.Position,
		Description: item.Description,
		Quantity:    item.Quantity.String(),
		Price:       item.Price.String(),
		Total:       item.Total.String(),
	}
}

func (d itemDoc) toDomain(docID string) invoice.LineItem {
	return invoice.LineItem{
		ID:          docID,
		Position:    d.Position,
		Description: d.Description,
		Quantity:    types.CoerceMoney(d.Quantity),
		Price:       types.CoerceMoney(d.Price),
		Total:       types.CoerceMoney(d.Total),
	}
}
