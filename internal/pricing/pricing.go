// Package pricing resolves effective discounts and computes line and order
// totals. All functions are pure over the entities passed in.
package pricing

import "tokopos/backend/internal/domain"

// EffectiveDiscount returns the single discount percentage applied to a
// line. A category discount overrides the size's own discount only when it
// is set and greater than zero; a category discount of exactly zero leaves
// the size discount in effect. This is shop policy, not an accident.
func EffectiveDiscount(size domain.ItemSize, category *domain.Category) float64 {
	if category != nil && category.Discount != nil && *category.Discount > 0 {
		return *category.Discount
	}
	if size.Discount != nil {
		return *size.Discount
	}
	return 0
}

// LineTotal computes price * (1 - discount/100) * quantity.
func LineTotal(unitPrice float64, discount float64, quantity int) float64 {
	return unitPrice * (1 - discount/100) * float64(quantity)
}

// LineRefund values a return line from the snapshotted purchase price and
// discount, never from the current catalog.
func LineRefund(line domain.OrderItem, quantity int) float64 {
	return LineTotal(line.PriceAtPurchase, line.DiscountApplied, quantity)
}

// OrderTotal sums line totals and floors the result at zero.
func OrderTotal(lineTotals []float64) float64 {
	var total float64
	for _, t := range lineTotals {
		total += t
	}
	if total < 0 {
		return 0
	}
	return total
}
