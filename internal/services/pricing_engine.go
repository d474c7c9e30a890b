package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
)

// ErrPricingInvalidInput signals a non-positive labor basis or malformed rates.
var ErrPricingInvalidInput = errors.New("pricing: invalid input")

const (
	defaultPlatformFeeRate = 0.10
	defaultTaxRate         = 0.22
	defaultTaxScheme       = "vat"
	defaultTaxRegion       = "ES"
	defaultCurrency        = "EUR"

	laborHourlyDescription = "Labor (%s hours × %s/hour)"
	laborFixedDescription  = "Labor (fixed quote)"
	platformFeeDescription = "Platform fee (%s%%)"
	taxDescription         = "Tax (%s%%)"
)

var pricingLocales = []language.Tag{language.English, language.Spanish}

func init() {
	message.SetString(language.Spanish, laborHourlyDescription, "Mano de obra (%s horas × %s/hora)")
	message.SetString(language.Spanish, laborFixedDescription, "Mano de obra (presupuesto fijo)")
	message.SetString(language.Spanish, platformFeeDescription, "Comisión de la plataforma (%s%%)")
	message.SetString(language.Spanish, taxDescription, "Impuestos (%s%%)")
}

// PricingEngineDeps bundles the configured rates and currency for the engine.
type PricingEngineDeps struct {
	Rates    PricingRates
	Currency string
}

type pricingEngine struct {
	rates    PricingRates
	currency string
	matcher  language.Matcher
}

// NewPricingEngine validates the configured rates and returns a pure pricing engine.
func NewPricingEngine(deps PricingEngineDeps) (PricingEngine, error) {
	rates := deps.Rates
	if rates.PlatformFeeRate == 0 {
		rates.PlatformFeeRate = defaultPlatformFeeRate
	}
	if rates.TaxRate == 0 {
		rates.TaxRate = defaultTaxRate
	}
	if rates.TaxScheme == "" {
		rates.TaxScheme = defaultTaxScheme
	}
	if rates.TaxRegion == "" {
		rates.TaxRegion = defaultTaxRegion
	}
	if rates.PlatformFeeRate < 0 || rates.PlatformFeeRate >= 1 {
		return nil, fmt.Errorf("%w: platform fee rate must be within [0, 1)", ErrPricingInvalidInput)
	}
	if rates.TaxRate < 0 || rates.TaxRate >= 1 {
		return nil, fmt.Errorf("%w: tax rate must be within [0, 1)", ErrPricingInvalidInput)
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	return &pricingEngine{
		rates:    rates,
		currency: currency,
		matcher:  language.NewMatcher(pricingLocales),
	}, nil
}

// ComputeCosts applies the fixed order of operations: labor, then platform
// fee, then tax over labor+fee. Each step rounds half away from zero to the
// nearest minor unit before feeding the next; a single rounding of a float
// total would not reproduce historical receipts.
func (e *pricingEngine) ComputeCosts(input PricingInput) (CostBreakdown, error) {
	labor, err := e.laborAmount(input)
	if err != nil {
		return CostBreakdown{}, err
	}

	fee := roundHalfAwayFromZero(float64(labor) * e.rates.PlatformFeeRate)
	taxableBase := labor + fee
	tax := roundHalfAwayFromZero(float64(taxableBase) * e.rates.TaxRate)
	subtotal := labor + fee

	return CostBreakdown{
		Currency:    e.currency,
		Labor:       labor,
		PlatformFee: fee,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal + tax,
		TaxRate:     e.rates.TaxRate,
		TaxScheme:   e.rates.TaxScheme,
		TaxRegion:   e.rates.TaxRegion,
	}, nil
}

// BuildLineItems produces the three display line items for a finalized order.
// The caller assigns IDs, order references, and timestamps.
func (e *pricingEngine) BuildLineItems(input PricingInput) ([]OrderLineItem, error) {
	breakdown, err := e.ComputeCosts(input)
	if err != nil {
		return nil, err
	}

	printer := e.printer(input.Locale)

	labor := OrderLineItem{
		Type:        domain.LineItemTypeLabor,
		Currency:    e.currency,
		TotalAmount: breakdown.Labor,
		Taxable:     true,
	}
	switch input.Mode {
	case domain.PricingModeFixed:
		labor.Description = printer.Sprintf(laborFixedDescription)
		labor.Quantity = 1
		labor.UnitAmount = breakdown.Labor
	default:
		labor.Description = printer.Sprintf(laborHourlyDescription, formatHours(input.Hours), formatMinorAmount(input.HourlyRateMinor))
		labor.Quantity = input.Hours
		labor.UnitAmount = input.HourlyRateMinor
	}

	fee := OrderLineItem{
		Type:        domain.LineItemTypePlatformFee,
		Description: printer.Sprintf(platformFeeDescription, formatRate(e.rates.PlatformFeeRate)),
		Quantity:    1,
		UnitAmount:  breakdown.PlatformFee,
		TotalAmount: breakdown.PlatformFee,
		Currency:    e.currency,
		Taxable:     true,
	}

	// The tax line itself is non-taxable to avoid tax-on-tax.
	tax := OrderLineItem{
		Type:        domain.LineItemTypeTax,
		Description: printer.Sprintf(taxDescription, formatRate(e.rates.TaxRate)),
		Quantity:    1,
		UnitAmount:  breakdown.Tax,
		TotalAmount: breakdown.Tax,
		Currency:    e.currency,
		Taxable:     false,
	}

	return []OrderLineItem{labor, fee, tax}, nil
}

// BreakdownFromQuote derives the full breakdown directly from a quoted amount.
// It produces numbers identical to BuildLineItems for the same labor basis.
func (e *pricingEngine) BreakdownFromQuote(quoteAmountMinor int64) (CostBreakdown, error) {
	return e.ComputeCosts(PricingInput{
		Mode:             domain.PricingModeFixed,
		QuoteAmountMinor: quoteAmountMinor,
	})
}

func (e *pricingEngine) laborAmount(input PricingInput) (int64, error) {
	switch input.Mode {
	case domain.PricingModeHourly:
		if input.Hours <= 0 {
			return 0, fmt.Errorf("%w: hours must be positive", ErrPricingInvalidInput)
		}
		if input.HourlyRateMinor <= 0 {
			return 0, fmt.Errorf("%w: hourly rate must be positive", ErrPricingInvalidInput)
		}
		return roundHalfAwayFromZero(input.Hours * float64(input.HourlyRateMinor)), nil
	case domain.PricingModeFixed:
		if input.QuoteAmountMinor <= 0 {
			return 0, fmt.Errorf("%w: quote amount must be positive", ErrPricingInvalidInput)
		}
		return input.QuoteAmountMinor, nil
	default:
		return 0, fmt.Errorf("%w: unknown pricing mode %q", ErrPricingInvalidInput, input.Mode)
	}
}

func (e *pricingEngine) printer(locale string) *message.Printer {
	tag := language.English
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		if parsed, err := language.Parse(trimmed); err == nil {
			tag, _, _ = e.matcher.Match(parsed)
		}
	}
	return message.NewPrinter(tag)
}

func roundHalfAwayFromZero(value float64) int64 {
	return int64(math.Round(value))
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', -1, 64)
}

// formatMinorAmount renders a minor-unit amount in major units, dropping the
// fraction when it is zero (10000 -> "100", 7550 -> "75.50").
func formatMinorAmount(minor int64) string {
	major := minor / 100
	fraction := minor % 100
	if fraction < 0 {
		fraction = -fraction
	}
	if fraction == 0 {
		return strconv.FormatInt(major, 10)
	}
	return fmt.Sprintf("%d.%02d", major, fraction)
}
