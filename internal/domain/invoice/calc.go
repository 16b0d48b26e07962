package invoice

import (
	"strings"

	"github.com/shopspring/decimal"

	"invoicebook/internal/core/apperror"
	"invoicebook/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// Totals holds the header amounts derived from line items and the discount.
type Totals struct {
	SubTotal       types.Money
	DiscountAmount types.Money
	GrandTotal     types.Money
}

// NormalizeItems coerces raw inputs and computes each line total.
// Positions are 1-based in submission order.
func NormalizeItems(inputs []ItemInput) []LineItem {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		qty := types.CoerceMoney(in.Quantity)
		price := types.CoerceMoney(in.Price)
		items = append(items, LineItem{
			Position:    i + 1,
			Description: strings.TrimSpace(in.Description),
			Quantity:    qty,
			Price:       price,
			Total:       qty.Mul(price),
		})
	}
	return items
}

// ComputeTotals applies the discount to the sum of line totals.
// grandTotal = max(0, subTotal - discountAmount).
func ComputeTotals(items []LineItem, discountType DiscountType, discountValue types.Money) Totals {
	subTotal := types.Zero()
	for _, item := range items {
		subTotal = subTotal.Add(item.Total)
	}

	discountAmount := discountValue
	if discountType == DiscountPercentage {
		discountAmount = subTotal.Mul(discountValue).Div(hundred)
	}

	return Totals{
		SubTotal:       subTotal,
		DiscountAmount: discountAmount,
		GrandTotal:     types.ClampZero(subTotal.Sub(discountAmount)),
	}
}

// normalizeDiscountType maps blank input to DiscountFixed and rejects unknown kinds.
func normalizeDiscountType(dt DiscountType) (DiscountType, error) {
	switch DiscountType(strings.ToLower(strings.TrimSpace(string(dt)))) {
	case "", DiscountFixed:
		return DiscountFixed, nil
	case DiscountPercentage:
		return DiscountPercentage, nil
	default:
		return "", apperror.NewValidation("unknown discount type").
			WithDetail("field", "discountType").
			WithDetail("value", string(dt))
	}
}

// validateItems enforces non-empty descriptions and non-negative amounts.
func validateItems(items []LineItem) error {
	for _, item := range items {
		if item.Description == "" {
			return apperror.NewValidation("description is required").
				WithDetail("field", "items").
				WithDetail("position", item.Position)
		}
		if item.Quantity.IsNegative() || item.Price.IsNegative() {
			return apperror.NewValidation("quantity and price must not be negative").
				WithDetail("field", "items").
				WithDetail("position", item.Position)
		}
	}
	return nil
}
