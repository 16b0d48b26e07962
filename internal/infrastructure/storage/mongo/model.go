package mongo

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"invoicebook/internal/domain/invoice"
)

type headerDoc struct {
	ID              string               `bson:"_id,omitempty"`
	InvoiceNumber   string               `bson:"invoiceNumber"`
	InvoiceDate     string               `bson:"invoiceDate"`
	CustomerName    string               `bson:"customerName"`
	CustomerAddress string               `bson:"customerAddress,omitempty"`
	CustomerPhone   string               `bson:"customerPhone,omitempty"`
	CurrencySymbol  string               `bson:"currencySymbol"`
	SubTotal        primitive.Decimal128 `bson:"subTotal"`
	DiscountType    string               `bson:"discountType"`
	DiscountValue   primitive.Decimal128 `bson:"discountValue"`
	DiscountAmount  primitive.Decimal128 `bson:"discountAmount"`
	GrandTotal      primitive.Decimal128 `bson:"grandTotal"`
	CreatedAt       time.Time            `bson:"createdAt,omitempty"`
	UserID          string               `bson:"userId"`
}

type itemDoc struct {
	ID          string               `bson:"_id"`
	InvoiceID   string               `bson:"invoiceId"`
	Position    int                  `bson:"position"`
	Description string               `bson:"description"`
	Quantity    primitive.Decimal128 `bson:"quantity"`
	Price       primitive.Decimal128 `bson:"price"`
	Total       primitive.Decimal128 `bson:"total"`
}

type counterDoc struct {
	Scope             string `bson:"_id"`
	LastInvoiceNumber int64  `bson:"lastInvoiceNumber"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		// Out of Decimal128 range; unreachable for invoice amounts.
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// toHeaderDoc leaves CreatedAt unset; the insert assigns it from the server clock.
func toHeaderDoc(h *invoice.Header) headerDoc {
	return headerDoc{
		ID:              h.ID,
		InvoiceNumber:   h.InvoiceNumber,
		InvoiceDate:     h.InvoiceDate,
		CustomerName:    h.CustomerName,
		CustomerAddress: h.CustomerAddress,
		CustomerPhone:   h.CustomerPhone,
		CurrencySymbol:  h.CurrencySymbol,
		SubTotal:        toDecimal128(h.SubTotal),
		DiscountType:    string(h.DiscountType),
		DiscountValue:   toDecimal128(h.DiscountValue),
		DiscountAmount:  toDecimal128(h.DiscountAmount),
		GrandTotal:      toDecimal128(h.GrandTotal),
		UserID:          h.UserID,
	}
}

func (d headerDoc) toDomain() *invoice.Header {
	return &invoice.Header{
		ID:              d.ID,
		InvoiceNumber:   d.InvoiceNumber,
		InvoiceDate:     d.InvoiceDate,
		CustomerName:    d.CustomerName,
		CustomerAddress: d.CustomerAddress,
		CustomerPhone:   d.CustomerPhone,
		CurrencySymbol:  d.CurrencySymbol,
		SubTotal:        fromDecimal128(d.SubTotal),
		DiscountType:    invoice.DiscountType(d.DiscountType),
		DiscountValue:   fromDecimal128(d.DiscountValue),
		DiscountAmount:  fromDecimal128(d.DiscountAmount),
		GrandTotal:      fromDecimal128(d.GrandTotal),
		CreatedAt:       d.CreatedAt.UTC(),
		UserID:          d.UserID,
	}
}

func toItemDoc(headerID string, item invoice.LineItem) itemDoc {
	return itemDoc{
		ID:          item.ID,
		InvoiceID:   headerID,
		Position:    item.Position,
		Description: item.Description,
		Quantity:    toDecimal128(item.Quantity),
		Price:       toDecimal128(item.Price),
		Total:       toDecimal128(item.Total),
	}
}

func (d itemDoc) toDomain() invoice.LineItem {
	return invoice.LineItem{
		ID:          d.ID,
		Position:    d.Position,
		Description: d.Description,
		Quantity:    fromDecimal128(d.Quantity),
		Price:       fromDecimal128(d.Price),
		Total:       fromDecimal128(d.Total),
	}
}
