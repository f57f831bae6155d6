// Package money provides fixed-point currency arithmetic for order totals.
//
// All amounts are shopspring decimals rounded to 2 decimal places. Every
// intermediate sum is rounded to cents before being summed further, so
// float drift can never accumulate across items or payments.
package money

import "github.com/shopspring/decimal"

// TaxRate is the fixed sales tax applied to the discounted subtotal.
// Not restaurant-configurable.
var TaxRate = decimal.RequireFromString("0.085")

// CentTolerance absorbs rounding noise when comparing balances: two amounts
// within one cent of each other are considered settled.
var CentTolerance = decimal.RequireFromString("0.01")

// Totals holds the derived financial fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Tip      decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds an amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal computes quantity × unit price, rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Sum adds amounts, rounding after every step.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a).Round(2)
	}
	return total
}

// Calculate derives tax and grand total from a subtotal, discount and tip:
//
//	taxable = round(subtotal - discount, 2), floored at zero
//	tax     = round(taxable * TaxRate, 2)
//	total   = taxable + tax + tip
func Calculate(subtotal, discount, tip decimal.Decimal) Totals {
	subtotal = subtotal.Round(2)
	discount = discount.Round(2)
	tip = tip.Round(2)

	taxable := subtotal.Sub(discount).Round(2)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Tip:      tip,
		Total:    taxable.Add(tax).Add(tip),
	}
}

// WithinCent reports whether a and b differ by at most one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(CentTolerance)
}
