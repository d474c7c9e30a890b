package services

import (
	"errors"
	"testing"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
)

func newTestPricingEngine(t *testing.T) PricingEngine {
	t.Helper()
	engine, err := NewPricingEngine(PricingEngineDeps{})
	if err != nil {
		t.Fatalf("new pricing engine: %v", err)
	}
	return engine
}

func TestPricingEngineComputeCostsHourlyFractional(t *testing.T) {
	engine := newTestPricingEngine(t)

	breakdown, err := engine.ComputeCosts(PricingInput{
		Mode:            domain.PricingModeHourly,
		Hours:           1.333,
		HourlyRateMinor: 7550,
	})
	if err != nil {
		t.Fatalf("compute costs: %v", err)
	}

	if breakdown.Labor != 10064 {
		t.Fatalf("expected labor 10064, got %d", breakdown.Labor)
	}
	if breakdown.PlatformFee != 1006 {
		t.Fatalf("expected platform fee 1006, got %d", breakdown.PlatformFee)
	}
	if breakdown.Subtotal != 11070 {
		t.Fatalf("expected subtotal 11070, got %d", breakdown.Subtotal)
	}
	if breakdown.Tax != 2435 {
		t.Fatalf("expected tax 2435, got %d", breakdown.Tax)
	}
	if breakdown.Total != 13505 {
		t.Fatalf("expected total 13505, got %d", breakdown.Total)
	}
	if breakdown.Currency != "EUR" {
		t.Fatalf("expected EUR currency, got %s", breakdown.Currency)
	}
}

func TestPricingEngineComputeCostsHourlyWhole(t *testing.T) {
	engine := newTestPricingEngine(t)

	breakdown, err := engine.ComputeCosts(PricingInput{
		Mode:            domain.PricingModeHourly,
		Hours:           3,
		HourlyRateMinor: 10000,
	})
	if err != nil {
		t.Fatalf("compute costs: %v", err)
	}

	if breakdown.Labor != 30000 || breakdown.PlatformFee != 3000 {
		t.Fatalf("unexpected labor/fee: %d/%d", breakdown.Labor, breakdown.PlatformFee)
	}
	if breakdown.Subtotal != 33000 || breakdown.Tax != 7260 || breakdown.Total != 40260 {
		t.Fatalf("unexpected subtotal/tax/total: %d/%d/%d", breakdown.Subtotal, breakdown.Tax, breakdown.Total)
	}
}

func TestPricingEngineBreakdownFromQuote(t *testing.T) {
	engine := newTestPricingEngine(t)

	breakdown, err := engine.BreakdownFromQuote(50000)
	if err != nil {
		t.Fatalf("breakdown from quote: %v", err)
	}

	if breakdown.Labor != 50000 || breakdown.PlatformFee != 5000 {
		t.Fatalf("unexpected labor/fee: %d/%d", breakdown.Labor, breakdown.PlatformFee)
	}
	if breakdown.Subtotal != 55000 || breakdown.Tax != 12100 || breakdown.Total != 67100 {
		t.Fatalf("unexpected subtotal/tax/total: %d/%d/%d", breakdown.Subtotal, breakdown.Tax, breakdown.Total)
	}
}

func TestPricingEngineBuildLineItemsMatchesBreakdown(t *testing.T) {
	engine := newTestPricingEngine(t)

	input := PricingInput{
		Mode:             domain.PricingModeFixed,
		QuoteAmountMinor: 50000,
	}

	items, err := engine.BuildLineItems(input)
	if err != nil {
		t.Fatalf("build line items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 line items, got %d", len(items))
	}

	breakdown, err := engine.BreakdownFromQuote(input.QuoteAmountMinor)
	if err != nil {
		t.Fatalf("breakdown from quote: %v", err)
	}

	byType := map[LineItemType]OrderLineItem{}
	for _, item := range items {
		byType[item.Type] = item
	}

	if byType[domain.LineItemTypeLabor].TotalAmount != breakdown.Labor {
		t.Fatalf("labor mismatch: %d vs %d", byType[domain.LineItemTypeLabor].TotalAmount, breakdown.Labor)
	}
	if byType[domain.LineItemTypePlatformFee].TotalAmount != breakdown.PlatformFee {
		t.Fatalf("fee mismatch: %d vs %d", byType[domain.LineItemTypePlatformFee].TotalAmount, breakdown.PlatformFee)
	}
	if byType[domain.LineItemTypeTax].TotalAmount != breakdown.Tax {
		t.Fatalf("tax mismatch: %d vs %d", byType[domain.LineItemTypeTax].TotalAmount, breakdown.Tax)
	}
	if byType[domain.LineItemTypeTax].Taxable {
		t.Fatalf("expected tax line to be non-taxable")
	}
}

func TestPricingEngineBuildLineItemsHourlyDescriptions(t *testing.T) {
	engine := newTestPricingEngine(t)

	items, err := engine.BuildLineItems(PricingInput{
		Mode:            domain.PricingModeHourly,
		Hours:           1.5,
		HourlyRateMinor: 7550,
	})
	if err != nil {
		t.Fatalf("build line items: %v", err)
	}

	if items[0].Description != "Labor (1.5 hours × 75.50/hour)" {
		t.Fatalf("unexpected labor description: %q", items[0].Description)
	}
	if items[0].Quantity != 1.5 || items[0].UnitAmount != 7550 {
		t.Fatalf("unexpected labor quantity/unit: %v/%d", items[0].Quantity, items[0].UnitAmount)
	}
	if items[1].Description != "Platform fee (10%)" {
		t.Fatalf("unexpected fee description: %q", items[1].Description)
	}
	if items[2].Description != "Tax (22%)" {
		t.Fatalf("unexpected tax description: %q", items[2].Description)
	}
}

func TestPricingEngineBuildLineItemsSpanishLocale(t *testing.T) {
	engine := newTestPricingEngine(t)

	items, err := engine.BuildLineItems(PricingInput{
		Mode:             domain.PricingModeFixed,
		QuoteAmountMinor: 50000,
		Locale:           "es-ES",
	})
	if err != nil {
		t.Fatalf("build line items: %v", err)
	}

	if items[0].Description != "Mano de obra (presupuesto fijo)" {
		t.Fatalf("unexpected labor description: %q", items[0].Description)
	}
	if items[1].Description != "Comisión de la plataforma (10%)" {
		t.Fatalf("unexpected fee description: %q", items[1].Description)
	}
	if items[2].Description != "Impuestos (22%)" {
		t.Fatalf("unexpected tax description: %q", items[2].Description)
	}
}

func TestPricingEngineRejectsInvalidInput(t *testing.T) {
	engine := newTestPricingEngine(t)

	cases := []PricingInput{
		{Mode: domain.PricingModeHourly, Hours: 0, HourlyRateMinor: 7550},
		{Mode: domain.PricingModeHourly, Hours: 2, HourlyRateMinor: 0},
		{Mode: domain.PricingModeFixed, QuoteAmountMinor: 0},
		{Mode: "unknown"},
	}
	for _, input := range cases {
		if _, err := engine.ComputeCosts(input); !errors.Is(err, ErrPricingInvalidInput) {
			t.Fatalf("expected invalid input error for %+v, got %v", input, err)
		}
	}
}

func TestNewPricingEngineValidatesRates(t *testing.T) {
	_, err := NewPricingEngine(PricingEngineDeps{Rates: PricingRates{PlatformFeeRate: 1.5, TaxRate: 0.22}})
	if !errors.Is(err, ErrPricingInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	_, err = NewPricingEngine(PricingEngineDeps{Rates: PricingRates{PlatformFeeRate: 0.1, TaxRate: -0.1}})
	if !errors.Is(err, ErrPricingInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}
