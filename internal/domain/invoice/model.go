// Package invoice provides the Invoice document: header, line items, and the
// service that numbers, stores, lists, renames and deletes them.
package invoice

import (
	"sort"
	"time"

	"invoicebook/internal/core/types"
)

// DiscountType selects how DiscountValue is applied to the subtotal.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Header is the invoice record excluding its line items.
type Header struct {
	// ID is assigned by the store at creation and never changes.
	ID string `json:"id"`

	// InvoiceNumber is PREFIX/YY/NNN, unique per owner. Changed only by RenameNumber.
	InvoiceNumber string `json:"invoiceNumber"`

	// InvoiceDate is the user-supplied calendar date, stored as given.
	InvoiceDate string `json:"invoiceDate"`

	CustomerName    string `json:"customerName"`
	CustomerAddress string `json:"customerAddress,omitempty"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	CurrencySymbol  string `json:"currencySymbol"`

	// Totals (calculated from lines at write time)
	SubTotal       types.Money  `json:"subTotal"`
	DiscountType   DiscountType `json:"discountType"`
	DiscountValue  types.Money  `json:"discountValue"`
	DiscountAmount types.Money  `json:"discountAmount"`
	GrandTotal     types.Money  `json:"grandTotal"`

	// CreatedAt is server-assigned when the header is written, never by the caller.
	CreatedAt time.Time `json:"createdAt"`

	// UserID is the owner. Set at creation, never taken from client input afterwards.
	UserID string `json:"userId"`
}

// GetUserID implements Ownable.
func (h *Header) GetUserID() string {
	return h.UserID
}

// LineItem is one child row of a header. Total is persisted, never recomputed on read.
type LineItem struct {
	ID          string      `json:"id"`
	Position    int         `json:"position"`
	Description string      `json:"description"`
	Quantity    types.Money `json:"quantity"`
	Price       types.Money `json:"price"`
	Total       types.Money `json:"total"`
}

// Invoice is a header merged with its items in insertion order.
type Invoice struct {
	Header
	Items []LineItem `json:"items"`
}

// ItemInput is a raw line as submitted. Quantity and Price are free text and
// coerce to zero when blank or non-numeric.
type ItemInput struct {
	Description string
	Quantity    string
	Price       string
}

// Draft is everything a caller supplies to create an invoice.
type Draft struct {
	InvoiceDate     string
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	CurrencySymbol  string
	DiscountType    DiscountType
	DiscountValue   string
	Items           []ItemInput
}

// SortNewestFirst orders headers by CreatedAt descending, ties broken by ID descending.
// It is the order of the server-sorted list query, reproduced client-side when the
// store cannot serve that query.
func SortNewestFirst(headers []*Header) {
	sort.SliceStable(headers, func(i, j int) bool {
		a, b := headers[i], headers[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
