// Package costing is the single implementation of line-item arithmetic.
// Every document type (invoice, order) derives its totals through it.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// DefaultScale is the rounding scale used when a document has no currency.
const DefaultScale int32 = 2

// LineInput holds the numeric fields of one line after coercion.
type LineInput struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
}

// LineCost holds the derived amounts of one line.
type LineCost struct {
	Subtotal decimal.Decimal `json:"line_subtotal"`
	Discount decimal.Decimal `json:"line_discount"`
	Taxable  decimal.Decimal `json:"line_taxable"`
	Tax      decimal.Decimal `json:"line_tax"`
	Total    decimal.Decimal `json:"line_total"`
}

// Totals is the elementwise sum of LineCost over a document.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount_amount"`
	Tax      decimal.Decimal `json:"tax_amount"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeLine derives a line's amounts in a fixed order:
//
//	subtotal = qty × price
//	discount = subtotal × discount% / 100
//	taxable  = subtotal − discount
//	tax      = taxable × tax% / 100
//	total    = taxable + tax
//
// Subtotal, discount and tax are rounded to scale as they are produced;
// taxable and total are exact sums of rounded values, so the identity
// total = subtotal − discount + tax always holds for every line.
// Negative quantity or price are treated as zero and percentages are
// clamped to [0, 100]; validation rejects such input before it gets here.
func ComputeLine(in LineInput, scale int32) LineCost {
	qty := nonNegative(in.Quantity)
	price := nonNegative(in.UnitPrice)
	discountPct := valueobject.ClampPercent(in.DiscountPercent)
	taxPct := valueobject.ClampPercent(in.TaxRate)

	subtotal := qty.Mul(price).Round(scale)
	discount := subtotal.Mul(valueobject.Percent(discountPct)).Round(scale)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(valueobject.Percent(taxPct)).Round(scale)

	return LineCost{
		Subtotal: subtotal,
		Discount: discount,
		Taxable:  taxable,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

// Sum aggregates line costs. Total is the sum of line totals and is never
// recomputed from the other aggregates.
func Sum(lines []LineCost) Totals {
	totals := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, l := range lines {
		totals.Subtotal = totals.Subtotal.Add(l.Subtotal)
		totals.Discount = totals.Discount.Add(l.Discount)
		totals.Tax = totals.Tax.Add(l.Tax)
		totals.Total = totals.Total.Add(l.Total)
	}
	return totals
}

// Compute costs every input and aggregates the result.
func Compute(inputs []LineInput, scale int32) ([]LineCost, Totals) {
	costs := make([]LineCost, len(inputs))
	for i, in := range inputs {
		costs[i] = ComputeLine(in, scale)
	}
	return costs, Sum(costs)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
