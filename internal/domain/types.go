package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// PricingMode determines how an order is priced. It is snapshotted from the
// category at creation time and never changes afterwards.
type PricingMode string

const (
	// PricingModeHourly prices the order from approved hours times the hourly rate.
	PricingModeHourly PricingMode = "hourly"
	// PricingModeFixed prices the order from a provider-submitted quote.
	PricingModeFixed PricingMode = "fixed"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusDraft indicates the order is still being composed by the client.
	OrderStatusDraft OrderStatus = "draft"
	// OrderStatusPendingConfirmation indicates the order awaits a provider accepting it.
	OrderStatusPendingConfirmation OrderStatus = "pending_confirmation"
	// OrderStatusAccepted indicates a provider has taken the order.
	OrderStatusAccepted OrderStatus = "accepted"
	// OrderStatusConfirmed indicates the client confirmed and payment was authorized.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusInProgress indicates the provider started the work.
	OrderStatusInProgress OrderStatus = "in_progress"
	// OrderStatusAwaitingApproval indicates submitted work awaits client review.
	OrderStatusAwaitingApproval OrderStatus = "awaiting_approval"
	// OrderStatusCompleted indicates the work was approved and the order finalized.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusDisputed indicates either party contested the submitted work.
	OrderStatusDisputed OrderStatus = "disputed"
	// OrderStatusPaid indicates the captured payment settled. Terminal.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCanceled indicates the order was canceled. Terminal.
	OrderStatusCanceled OrderStatus = "canceled"
)

// ApprovalMethod records how the final hours were approved.
type ApprovalMethod string

const (
	// ApprovalMethodClientManual indicates the client approved the hours explicitly.
	ApprovalMethodClientManual ApprovalMethod = "client_manual"
	// ApprovalMethodAuto indicates the hours were approved by an expiry sweep.
	ApprovalMethodAuto ApprovalMethod = "auto"
)

// DisputeStatus tracks the state of a dispute attached to an order.
type DisputeStatus string

const (
	// DisputeStatusOpen indicates the dispute awaits resolution.
	DisputeStatusOpen DisputeStatus = "open"
	// DisputeStatusResolved indicates the dispute was settled.
	DisputeStatusResolved DisputeStatus = "resolved"
)

// GeoPoint stores a WGS84 coordinate pair for the service address.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Address captures where the service takes place.
type Address struct {
	Line1      string
	Line2      *string
	City       string
	PostalCode string
	Country    string
	Location   *GeoPoint
}

// ServiceWindow bounds the agreed execution window for an order.
type ServiceWindow struct {
	StartAt *time.Time
	EndAt   *time.Time
}

// CategorySnapshot freezes the category attributes relevant to pricing at the
// moment the order is created.
type CategorySnapshot struct {
	Name            string
	PricingMode     PricingMode
	HourlyRateMinor int64
}

// ServiceCategory describes a bookable service type offered on the platform.
type ServiceCategory struct {
	ID              string
	Name            string
	PricingMode     PricingMode
	HourlyRateMinor int64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderTotals stores the priced amounts for an order in minor currency units.
type OrderTotals struct {
	Subtotal     int64
	PlatformFee  int64
	Tax          int64
	Total        int64
	TaxScheme    string
	TaxRate      float64
	TaxRegion    string
	TaxInclusive bool
	ComputedAt   time.Time
}

// Dispute stores the contested-work state attached to an order.
type Dispute struct {
	Status   DisputeStatus
	Reason   string
	OpenedBy string
	OpenedAt time.Time
}

// Order captures the full order aggregate shared across layers.
type Order struct {
	ID                string
	DisplayCode       string
	ClientID          string
	ProviderProfileID *string
	CategoryID        string
	SubcategoryID     *string
	Category          CategorySnapshot
	Window            ServiceWindow
	Address           Address
	Description       string
	Status            OrderStatus
	PricingMode       PricingMode

	// Hourly pricing fields.
	HourlyRateMinor int64
	EstimatedHours  *float64
	FinalHours      *float64
	ApprovedHours   *float64
	ApprovalMethod  ApprovalMethod

	// Fixed pricing fields.
	QuoteAmountMinor *int64
	QuoteMessage     *string
	QuotedAt         *time.Time
	QuoteAcceptedAt  *time.Time

	Currency      string
	Totals        *OrderTotals
	Dispute       *Dispute
	FirstOrder    bool
	WorkProofURLs []string
	CancelReason  *string

	AcceptedAt  *time.Time
	ConfirmedAt *time.Time
	StartedAt   *time.Time
	ArrivedAt   *time.Time
	SubmittedAt *time.Time
	CompletedAt *time.Time
	PaidAt      *time.Time
	CanceledAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineItemType identifies the role of a billing line within an order.
type LineItemType string

const (
	// LineItemTypeLabor is the base service charge.
	LineItemTypeLabor LineItemType = "labor"
	// LineItemTypePlatformFee is the marketplace commission line.
	LineItemTypePlatformFee LineItemType = "platform_fee"
	// LineItemTypeTax is the tax line computed over the taxable base.
	LineItemTypeTax LineItemType = "tax"
)

// OrderLineItem stores one billing line persisted under an order. Line items
// are replaced wholesale whenever the order is finalized.
type OrderLineItem struct {
	ID          string
	OrderID     string
	Type        LineItemType
	Description string
	Quantity    float64
	UnitAmount  int64
	TotalAmount int64
	Currency    string
	Taxable     bool
	CreatedAt   time.Time
}

// Receipt is the immutable settlement record written exactly once per order.
type Receipt struct {
	ID            string
	OrderID       string
	LineItems     []OrderLineItem
	Subtotal      int64
	PlatformFee   int64
	Tax           int64
	Total         int64
	Currency      string
	ApprovedHours *float64
	FinalizedAt   time.Time
}

// PaymentStatus enumerates PSP payment lifecycle states tracked locally.
type PaymentStatus string

const (
	// PaymentStatusCreated indicates the payment intent exists but is unfunded.
	PaymentStatusCreated PaymentStatus = "created"
	// PaymentStatusAuthorized indicates funds are held and capturable.
	PaymentStatusAuthorized PaymentStatus = "authorized"
	// PaymentStatusCaptured indicates funds were captured.
	PaymentStatusCaptured PaymentStatus = "captured"
	// PaymentStatusFailed indicates the payment failed or was declined.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded indicates the captured payment was refunded.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment mirrors the PSP payment record attached to an order.
type Payment struct {
	ID         string
	OrderID    string
	Provider   string
	IntentID   string
	Status     PaymentStatus
	Amount     int64
	Currency   string
	CapturedAt *time.Time
	CreatedAt  time.Time
}

// ProviderProfile links a platform user to their provider identity.
type ProviderProfile struct {
	ID          string
	UserID      string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}

// EarningStatus tracks whether a ledger entry is withdrawable yet.
type EarningStatus string

const (
	// EarningStatusPending indicates funds are inside the availability delay.
	EarningStatusPending EarningStatus = "pending"
	// EarningStatusAvailable indicates funds can be withdrawn.
	EarningStatusAvailable EarningStatus = "available"
)

// Earning is one provider ledger entry created at order finalization. All
// amounts are minor currency units.
type Earning struct {
	ID                string
	ProviderProfileID string
	OrderID           string
	GrossAmountMinor  int64
	FeeAmountMinor    int64
	NetAmountMinor    int64
	Currency          string
	Status            EarningStatus
	AvailableAt       time.Time
	CreatedAt         time.Time
}
