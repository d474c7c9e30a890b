package domain

import "time"

// PricingRates carries the configured percentages applied when pricing an order.
type PricingRates struct {
	PlatformFeeRate float64
	TaxRate         float64
	TaxScheme       string
	TaxRegion       string
	TaxInclusive    bool
}

// CostBreakdown captures the monetary results of pricing an order. Every
// amount is expressed in minor currency units.
type CostBreakdown struct {
	Currency    string
	Labor       int64
	PlatformFee int64
	Subtotal    int64
	Tax         int64
	Total       int64
	TaxRate     float64
	TaxScheme   string
	TaxRegion   string
	ComputedAt  time.Time
}

// Totals converts the breakdown into the persisted order totals shape.
func (b CostBreakdown) Totals() OrderTotals {
	return OrderTotals{
		Subtotal:    b.Subtotal,
		PlatformFee: b.PlatformFee,
		Tax:         b.Tax,
		Total:       b.Total,
		TaxScheme:   b.TaxScheme,
		TaxRate:     b.TaxRate,
		TaxRegion:   b.TaxRegion,
		ComputedAt:  b.ComputedAt,
	}
}
