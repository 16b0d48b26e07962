package dto

import (
	"time"

	"invoicebook/internal/domain/invoice"
)

// --- Request DTOs ---

// CreateInvoiceRequest represents a request to create an invoice.
// The owner is taken from the token, never from the body.
type CreateInvoiceRequest struct {
	InvoiceDate     string               `json:"invoiceDate"`
	CustomerName    string               `json:"customerName"`
	CustomerAddress string               `json:"customerAddress"`
	CustomerPhone   string               `json:"customerPhone"`
	CurrencySymbol  string               `json:"currencySymbol"`
	DiscountType    string               `json:"discountType"`
	DiscountValue   Numeric              `json:"discountValue"`
	Items           []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest represents a line in a create request.
type InvoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    Numeric `json:"quantity"`
	Price       Numeric `json:"price"`
}

// ToDraft converts request to a domain draft.
func (r *CreateInvoiceRequest) ToDraft() invoice.Draft {
	draft := invoice.Draft{
		InvoiceDate:     r.InvoiceDate,
		CustomerName:    r.CustomerName,
		CustomerAddress: r.CustomerAddress,
		CustomerPhone:   r.CustomerPhone,
		CurrencySymbol:  r.CurrencySymbol,
		DiscountType:    invoice.DiscountType(r.DiscountType),
		DiscountValue:   r.DiscountValue.String(),
		Items:           make([]invoice.ItemInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		draft.Items = append(draft.Items, invoice.ItemInput{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Price:       item.Price.String(),
		})
	}
	return draft
}

// RenameNumberRequest changes an invoice number.
type RenameNumberRequest struct {
	InvoiceNumber string `json:"invoiceNumber" binding:"required"`
}

// NumberExistsQuery is the query of the number availability check.
type NumberExistsQuery struct {
	Number    string `form:"number" binding:"required"`
	ExcludeID string `form:"excludeId"`
}

// --- Response DTOs ---

// InvoiceHeaderResponse is one row of the invoice list.
type InvoiceHeaderResponse struct {
	ID              string    `json:"id"`
	InvoiceNumber   string    `json:"invoiceNumber"`
	InvoiceDate     string    `json:"invoiceDate"`
	CustomerName    string    `json:"customerName"`
	CustomerAddress string    `json:"customerAddress,omitempty"`
	CustomerPhone   string    `json:"customerPhone,omitempty"`
	CurrencySymbol  string    `json:"currencySymbol"`
	SubTotal        string    `json:"subTotal"`
	DiscountType    string    `json:"discountType"`
	DiscountValue   string    `json:"discountValue"`
	DiscountAmount  string    `json:"discountAmount"`
	GrandTotal      string    `json:"grandTotal"`
	CreatedAt       time.Time `json:"createdAt"`
}

// InvoiceItemResponse is one stored line.
type InvoiceItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	Total       string `json:"total"`
}

// InvoiceResponse is a header with its items.
type InvoiceResponse struct {
	InvoiceHeaderResponse
	Items []InvoiceItemResponse `json:"items"`
}

// InvoiceListResponse wraps the list.
type InvoiceListResponse struct {
	Items []InvoiceHeaderResponse `json:"items"`
	Count int                     `json:"count"`
}

// NumberExistsResponse answers the availability check.
type NumberExistsResponse struct {
	Number string `json:"number"`
	Exists bool   `json:"exists"`
}

// FromInvoiceHeader converts a header to its response.
func FromInvoiceHeader(h *invoice.Header) InvoiceHeaderResponse {
	return InvoiceHeaderResponse{
		ID:              h.ID,
		InvoiceNumber:   h.InvoiceNumber,
		InvoiceDate:     h.InvoiceDate,
		CustomerName:    h.CustomerName,
		CustomerAddress: h.CustomerAddress,
		CustomerPhone:   h.CustomerPhone,
		CurrencySymbol:  h.CurrencySymbol,
		SubTotal:        h.SubTotal.StringFixed(2),
		DiscountType:    string(h.DiscountType),
		DiscountValue:   h.DiscountValue.String(),
		DiscountAmount:  h.DiscountAmount.StringFixed(2),
		GrandTotal:      h.GrandTotal.StringFixed(2),
		CreatedAt:       h.CreatedAt,
	}
}

// FromInvoice converts a full invoice to its response.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		InvoiceHeaderResponse: FromInvoiceHeader(&inv.Header),
		Items:                 make([]InvoiceItemResponse, 0, len(inv.Items)),
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Price:       item.Price.StringFixed(2),
			Total:       item.Total.StringFixed(2),
		})
	}
	return resp
}

// FromInvoiceHeaders converts the list.
func FromInvoiceHeaders(headers []*invoice.Header) InvoiceListResponse {
	items := make([]InvoiceHeaderResponse, 0, len(headers))
	for _, h := range headers {
		items = append(items, FromInvoiceHeader(h))
	}
	return InvoiceListResponse{Items: items, Count: len(items)}
}
