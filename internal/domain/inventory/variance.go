package inventory

import "github.com/shopspring/decimal"

// VarianceSummary aggregates the counts of a completed stock-take.
// TotalNegativeVariance is reported as a negative number so that
// NetVariance = TotalPositiveVariance + TotalNegativeVariance.
type VarianceSummary struct {
	TotalItems            int             `json:"total_items"`
	CountedItems          int             `json:"counted_items"`
	ItemsWithVariance     int             `json:"items_with_variance"`
	TotalPositiveVariance decimal.Decimal `json:"total_positive_variance"`
	TotalNegativeVariance decimal.Decimal `json:"total_negative_variance"`
	NetVariance           decimal.Decimal `json:"net_variance"`
	VarianceValue         decimal.Decimal `json:"variance_value"`
}

// Summarize aggregates counts. Uncounted lines only contribute to TotalItems.
func Summarize(counts []StockCount) VarianceSummary {
	s := VarianceSummary{
		TotalItems:            len(counts),
		TotalPositiveVariance: decimal.Zero,
		TotalNegativeVariance: decimal.Zero,
		NetVariance:           decimal.Zero,
		VarianceValue:         decimal.Zero,
	}
	for i := range counts {
		c := &counts[i]
		if !c.Counted() {
			continue
		}
		s.CountedItems++
		if c.Variance.IsZero() {
			continue
		}
		s.ItemsWithVariance++
		if c.Variance.IsPositive() {
			s.TotalPositiveVariance = s.TotalPositiveVariance.Add(c.Variance)
		} else {
			s.TotalNegativeVariance = s.TotalNegativeVariance.Add(c.Variance)
		}
		s.VarianceValue = s.VarianceValue.Add(c.Variance.Mul(c.UnitCost))
	}
	s.NetVariance = s.TotalPositiveVariance.Add(s.TotalNegativeVariance)
	return s
}
