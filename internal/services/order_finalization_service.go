package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

var (
	// ErrAlreadyFinalized indicates the order already went through finalization.
	ErrAlreadyFinalized = errors.New("order: already finalized")
	// ErrCannotFinalize indicates the order is missing the data finalization needs.
	ErrCannotFinalize = errors.New("order: cannot finalize")
)

// OrderFinalizationServiceDeps bundles collaborators for the finalization service.
type OrderFinalizationServiceDeps struct {
	Orders      repositories.OrderRepository
	LineItems   repositories.OrderLineItemRepository
	Receipts    repositories.ReceiptRepository
	Payments    PaymentService
	Earnings    EarningService
	Pricing     PricingEngine
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderFinalizationService struct {
	orders    repositories.OrderRepository
	lineItems repositories.OrderLineItemRepository
	receipts  repositories.ReceiptRepository
	payments  PaymentService
	earnings  EarningService
	pricing   PricingEngine
	unit      repositories.UnitOfWork
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewOrderFinalizationService wires dependencies into the finalization service.
func NewOrderFinalizationService(deps OrderFinalizationServiceDeps) (OrderFinalizationService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order finalization service: order repository is required")
	}
	if deps.LineItems == nil {
		return nil, errors.New("order finalization service: line item repository is required")
	}
	if deps.Receipts == nil {
		return nil, errors.New("order finalization service: receipt repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order finalization service: pricing engine is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderFinalizationService{
		orders:    deps.Orders,
		lineItems: deps.LineItems,
		receipts:  deps.Receipts,
		payments:  deps.Payments,
		earnings:  deps.Earnings,
		pricing:   deps.Pricing,
		unit:      unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Finalize converts the approved work into line items, totals, and the
// immutable receipt, then transitions the order to completed. Safe to call
// more than once: the status guard and the receipt conflict check make a
// repeat call a no-op failure or a silent success respectively.
func (s *orderFinalizationService) Finalize(ctx context.Context, cmd FinalizeOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}

	if order.Status == domain.OrderStatusCompleted || order.Status == domain.OrderStatusPaid {
		return Order{}, fmt.Errorf("%w: order is %s", ErrAlreadyFinalized, order.Status)
	}
	if err := AssertTransition(order.Status, domain.OrderStatusCompleted); err != nil {
		return Order{}, err
	}

	now := s.clock()

	input, err := s.resolvePricingInput(&order, cmd)
	if err != nil {
		return Order{}, err
	}

	order.UpdatedAt = now
	if err := s.update(ctx, order); err != nil {
		return Order{}, err
	}

	drafts, err := s.pricing.BuildLineItems(input)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrCannotFinalize, err)
	}
	items := make([]OrderLineItem, len(drafts))
	for i, draft := range drafts {
		draft.ID = lineItemIDPrefix + s.newID()
		draft.OrderID = order.ID
		draft.CreatedAt = now
		items[i] = draft
	}

	// Wholesale replacement keeps the line item set aligned with the latest
	// finalization even on re-entry.
	if err := s.unit.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.lineItems.ReplaceAll(txCtx, order.ID, items); err != nil {
			return mapOrderRepositoryError(err)
		}
		return nil
	}); err != nil {
		return Order{}, err
	}

	persisted, err := s.lineItems.List(ctx, order.ID)
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	totals := totalsFromLineItems(persisted, input, now, s.pricing)
	order.Totals = &totals
	order.UpdatedAt = now
	if err := s.update(ctx, order); err != nil {
		return Order{}, err
	}

	receipt := Receipt{
		ID:            receiptIDPrefix + s.newID(),
		OrderID:       order.ID,
		LineItems:     persisted,
		Subtotal:      totals.Subtotal,
		PlatformFee:   totals.PlatformFee,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Currency:      order.Currency,
		ApprovedHours: cloneOptFloat(order.ApprovedHours),
		FinalizedAt:   now,
	}
	if err := s.receipts.Insert(ctx, receipt); err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			// A receipt already exists: an earlier finalization got this far,
			// so re-entry keeps going instead of failing.
			s.logger(ctx, "order.finalize.receipt_exists", map[string]any{"orderId": order.ID})
		} else {
			return Order{}, mapOrderRepositoryError(err)
		}
	}

	order.Status = domain.OrderStatusCompleted
	order.CompletedAt = &now
	order.UpdatedAt = now
	if err := s.update(ctx, order); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.finalized", map[string]any{
		"orderId": order.ID,
		"total":   totals.Total,
		"actorId": cmd.Actor.ID,
	})

	s.settleBestEffort(ctx, order, cmd.Actor)

	return order, nil
}

// resolvePricingInput locks the approved hours and approval method onto the
// order and selects the labor basis for pricing.
func (s *orderFinalizationService) resolvePricingInput(order *Order, cmd FinalizeOrderCommand) (PricingInput, error) {
	method := cmd.Method
	if method == "" {
		method = order.ApprovalMethod
	}
	if method == "" {
		method = domain.ApprovalMethodClientManual
	}
	order.ApprovalMethod = method

	switch order.PricingMode {
	case domain.PricingModeHourly:
		hours := cmd.ApprovedHours
		if hours == nil {
			hours = order.ApprovedHours
		}
		if hours == nil {
			hours = order.FinalHours
		}
		if hours == nil || *hours <= 0 {
			return PricingInput{}, fmt.Errorf("%w: approved hours are required for hourly orders", ErrCannotFinalize)
		}
		if order.HourlyRateMinor <= 0 {
			return PricingInput{}, fmt.Errorf("%w: order has no hourly rate snapshot", ErrCannotFinalize)
		}
		order.ApprovedHours = cloneOptFloat(hours)
		return PricingInput{
			Mode:            domain.PricingModeHourly,
			Hours:           *hours,
			HourlyRateMinor: order.HourlyRateMinor,
		}, nil
	case domain.PricingModeFixed:
		if order.QuoteAmountMinor == nil || *order.QuoteAmountMinor <= 0 {
			return PricingInput{}, fmt.Errorf("%w: fixed-price orders need a positive quote", ErrCannotFinalize)
		}
		return PricingInput{
			Mode:             domain.PricingModeFixed,
			QuoteAmountMinor: *order.QuoteAmountMinor,
		}, nil
	default:
		return PricingInput{}, fmt.Errorf("%w: unknown pricing mode %q", ErrCannotFinalize, order.PricingMode)
	}
}

func (s *orderFinalizationService) update(ctx context.Context, order Order) error {
	return s.unit.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return mapOrderRepositoryError(err)
		}
		return nil
	})
}

// settleBestEffort requests payment capture and earning creation after a
// successful finalization. Every failure here is logged and swallowed; the
// finalized order is never rolled back by a downstream dependency.
func (s *orderFinalizationService) settleBestEffort(ctx context.Context, order Order, actor Actor) {
	if s.payments == nil {
		return
	}

	payment, err := s.payments.FindByOrder(ctx, order.ID)
	if err != nil {
		s.logSideEffectFailure(ctx, "payment_lookup", order.ID, err)
		return
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		s.logger(ctx, "order.finalize.capture_skipped", map[string]any{
			"orderId":       order.ID,
			"paymentStatus": string(payment.Status),
		})
		return
	}

	if _, err := s.payments.Capture(ctx, CapturePaymentCommand{OrderID: order.ID, PaymentID: payment.ID, ActorID: actor.ID}); err != nil {
		s.logSideEffectFailure(ctx, "payment_capture", order.ID, err)
		return
	}

	if s.earnings == nil {
		return
	}
	if _, err := s.earnings.CreateForOrder(ctx, CreateEarningCommand{ActorID: actor.ID, OrderID: order.ID}); err != nil {
		s.logSideEffectFailure(ctx, "earning_creation", order.ID, err)
	}
}

func (s *orderFinalizationService) logSideEffectFailure(ctx context.Context, step, orderID string, err error) {
	s.logger(ctx, "order.finalize.side_effect_failed", map[string]any{
		"step":    step,
		"orderId": orderID,
		"error":   err.Error(),
	})
}

// totalsFromLineItems recomputes the persisted totals from the stored line
// items rather than trusting in-memory values.
func totalsFromLineItems(items []OrderLineItem, input PricingInput, now time.Time, engine PricingEngine) OrderTotals {
	var labor, fee, tax int64
	for _, item := range items {
		switch item.Type {
		case domain.LineItemTypeLabor:
			labor += item.TotalAmount
		case domain.LineItemTypePlatformFee:
			fee += item.TotalAmount
		case domain.LineItemTypeTax:
			tax += item.TotalAmount
		}
	}

	totals := OrderTotals{
		Subtotal:    labor + fee,
		PlatformFee: fee,
		Tax:         tax,
		Total:       labor + fee + tax,
		ComputedAt:  now,
	}
	if breakdown, err := engine.ComputeCosts(input); err == nil {
		totals.TaxScheme = breakdown.TaxScheme
		totals.TaxRate = breakdown.TaxRate
		totals.TaxRegion = breakdown.TaxRegion
	}
	return totals
}
