package service

import (
	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

// Totals are the server-computed amounts of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// CalculateTotals sums line totals and adds tax and shipping. Negative tax or
// shipping counts as zero.
func CalculateTotals(items []domain.LineItem, tax, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax = clampNonNegative(tax).Round(2)
	shipping = clampNonNegative(shipping).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
