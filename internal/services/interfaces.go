package services

import (
	"context"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination       = domain.Pagination
	SortOrder        = domain.SortOrder
	Order            = domain.Order
	OrderStatus      = domain.OrderStatus
	OrderLineItem    = domain.OrderLineItem
	LineItemType     = domain.LineItemType
	OrderTotals      = domain.OrderTotals
	Receipt          = domain.Receipt
	Payment          = domain.Payment
	PaymentStatus    = domain.PaymentStatus
	Earning          = domain.Earning
	EarningStatus    = domain.EarningStatus
	ProviderProfile  = domain.ProviderProfile
	ServiceCategory  = domain.ServiceCategory
	CategorySnapshot = domain.CategorySnapshot
	Address          = domain.Address
	GeoPoint         = domain.GeoPoint
	ServiceWindow    = domain.ServiceWindow
	PricingMode      = domain.PricingMode
	ApprovalMethod   = domain.ApprovalMethod
	Dispute          = domain.Dispute
	DisputeStatus    = domain.DisputeStatus
	CostBreakdown    = domain.CostBreakdown
	PricingRates     = domain.PricingRates
)

// Actor identifies the authenticated party performing an operation, with the
// roles resolved by the gateway.
type Actor struct {
	ID    string
	Roles []string
}

// Role values recognised by the access policy.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OrderService covers order creation and read flows.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
}

// OrderLifecycleService exposes one operation per client/provider-facing
// lifecycle action. Every operation validates the status transition, checks
// authorization, applies the minimal mutation, and returns the refreshed order.
type OrderLifecycleService interface {
	Accept(ctx context.Context, cmd AcceptOrderCommand) (Order, error)
	Confirm(ctx context.Context, cmd ConfirmOrderCommand) (Order, error)
	Start(ctx context.Context, cmd StartOrderCommand) (Order, error)
	MarkArrived(ctx context.Context, cmd MarkArrivedCommand) (Order, error)
	SubmitHours(ctx context.Context, cmd SubmitHoursCommand) (Order, error)
	SubmitQuote(ctx context.Context, cmd SubmitQuoteCommand) (Order, error)
	AcceptQuote(ctx context.Context, cmd AcceptQuoteCommand) (Order, error)
	SubmitCompletion(ctx context.Context, cmd SubmitCompletionCommand) (Order, error)
	ApproveHours(ctx context.Context, cmd ApproveHoursCommand) (Order, error)
	OpenDispute(ctx context.Context, cmd OpenDisputeCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// OrderFinalizationService converts approved work into line items, totals, and
// an immutable receipt, exactly once per order.
type OrderFinalizationService interface {
	Finalize(ctx context.Context, cmd FinalizeOrderCommand) (Order, error)
}

// PricingEngine computes labor, platform fee, tax, subtotal, and total over
// integer minor units. Pure; no I/O.
type PricingEngine interface {
	ComputeCosts(input PricingInput) (CostBreakdown, error)
	BuildLineItems(input PricingInput) ([]OrderLineItem, error)
	BreakdownFromQuote(quoteAmountMinor int64) (CostBreakdown, error)
}

// OrderAccessPolicy decides whether an actor may perform a lifecycle action on
// an order. Admin bypasses every check.
type OrderAccessPolicy interface {
	RequireProvider(ctx context.Context, actor Actor, order Order, action string) error
	RequireClient(ctx context.Context, actor Actor, order Order, action string) error
	RequireParticipant(ctx context.Context, actor Actor, order Order, action string) error
}

// EarningService maintains the provider earnings ledger.
type EarningService interface {
	CreateForOrder(ctx context.Context, cmd CreateEarningCommand) (Earning, error)
	GetByOrder(ctx context.Context, orderID string) (Earning, error)
	ListByProvider(ctx context.Context, filter EarningListFilter) (domain.CursorPage[Earning], error)
}

// PaymentService wraps payment persistence and the PSP capture path.
type PaymentService interface {
	FindByOrder(ctx context.Context, orderID string) (Payment, error)
	Capture(ctx context.Context, cmd CapturePaymentCommand) (Payment, error)
}

// ProviderProfileService resolves provider identities for read paths.
type ProviderProfileService interface {
	GetByID(ctx context.Context, profileID string) (ProviderProfile, error)
	GetByUser(ctx context.Context, userID string) (ProviderProfile, error)
}

// SystemService surfaces runtime metadata and dependency health for probes.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// CounterService manages monotonic sequences and the human-facing codes
// derived from them.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderCode(ctx context.Context) (string, error)
}

// CounterValue carries a raw sequence value and its formatted representation.
type CounterValue struct {
	Value     int64
	Formatted string
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step         int64
	Prefix       string
	Suffix       string
	PadLength    int
	MaxValue     *int64
	InitialValue *int64
	Formatter    func(now time.Time, seq int64) string
}

// Command and DTO definitions ------------------------------------------------

type CreateOrderCommand struct {
	ClientID          string
	ProviderProfileID string
	CategoryID        string
	SubcategoryID     *string
	Window            ServiceWindow
	Address           Address
	Description       string
	EstimatedHours    *float64
}

type OrderListFilter = repositories.OrderListFilter

type AcceptOrderCommand struct {
	OrderID string
	Actor   Actor
}

type ConfirmOrderCommand struct {
	OrderID string
	Actor   Actor
}

type StartOrderCommand struct {
	OrderID string
	Actor   Actor
}

type MarkArrivedCommand struct {
	OrderID string
	Actor   Actor
}

type SubmitHoursCommand struct {
	OrderID       string
	Actor         Actor
	Hours         float64
	WorkProofURLs []string
}

type SubmitQuoteCommand struct {
	OrderID     string
	Actor       Actor
	AmountMinor int64
	Message     string
}

type AcceptQuoteCommand struct {
	OrderID string
	Actor   Actor
}

type SubmitCompletionCommand struct {
	OrderID       string
	Actor         Actor
	WorkProofURLs []string
}

type ApproveHoursCommand struct {
	OrderID string
	Actor   Actor
	// Hours overrides the provider-submitted final hours when set; hourly
	// orders fall back to the submitted value.
	Hours  *float64
	Method ApprovalMethod
}

type OpenDisputeCommand struct {
	OrderID string
	Actor   Actor
	Reason  string
}

type CancelOrderCommand struct {
	OrderID string
	Actor   Actor
	Reason  string
}

type FinalizeOrderCommand struct {
	OrderID       string
	Actor         Actor
	ApprovedHours *float64
	Method        ApprovalMethod
}

// PricingInput selects the labor basis for a pricing computation. Hourly mode
// uses Hours and HourlyRateMinor; fixed mode uses QuoteAmountMinor.
type PricingInput struct {
	Mode             PricingMode
	Hours            float64
	HourlyRateMinor  int64
	QuoteAmountMinor int64
	Locale           string
}

type CreateEarningCommand struct {
	ActorID string
	OrderID string
}

type EarningListFilter struct {
	ProviderProfileID string
	Pagination        Pagination
}

type CapturePaymentCommand struct {
	OrderID   string
	PaymentID string
	ActorID   string
}
