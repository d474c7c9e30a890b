package repositories

import (
	"context"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	OrderLineItems() OrderLineItemRepository
	Receipts() ReceiptRepository
	Payments() PaymentRepository
	ProviderProfiles() ProviderProfileRepository
	Earnings() EarningRepository
	Categories() CategoryRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order aggregates and provides query helpers for clients and providers.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	ExistsForClient(ctx context.Context, clientID string) (bool, error)
}

// OrderLineItemRepository stores billing lines underneath an order document.
// ReplaceAll removes every existing line before writing the new set.
type OrderLineItemRepository interface {
	ReplaceAll(ctx context.Context, orderID string, items []domain.OrderLineItem) error
	List(ctx context.Context, orderID string) ([]domain.OrderLineItem, error)
}

// ReceiptRepository stores the single settlement receipt per order. Insert must
// fail with a conflict error when a receipt already exists for the order.
type ReceiptRepository interface {
	Insert(ctx context.Context, receipt domain.Receipt) error
	FindByOrder(ctx context.Context, orderID string) (domain.Receipt, error)
}

// PaymentRepository mirrors PSP payment records attached to orders.
type PaymentRepository interface {
	Insert(ctx context.Context, payment domain.Payment) error
	Update(ctx context.Context, payment domain.Payment) error
	FindByOrder(ctx context.Context, orderID string) (domain.Payment, error)
}

// ProviderProfileRepository resolves provider identities for authorization checks.
type ProviderProfileRepository interface {
	FindByID(ctx context.Context, profileID string) (domain.ProviderProfile, error)
	FindByUser(ctx context.Context, userID string) (domain.ProviderProfile, error)
}

// EarningRepository appends provider ledger entries created at settlement.
type EarningRepository interface {
	Insert(ctx context.Context, earning domain.Earning) error
	FindByOrder(ctx context.Context, orderID string) (domain.Earning, error)
	ListByProvider(ctx context.Context, providerProfileID string, pager domain.Pagination) (domain.CursorPage[domain.Earning], error)
}

// CategoryRepository reads service category definitions used to snapshot pricing.
type CategoryRepository interface {
	FindByID(ctx context.Context, categoryID string) (domain.ServiceCategory, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (HealthReport, error)
}

// HealthReport summarises dependency status for readiness probes.
type HealthReport struct {
	Healthy    bool
	Components map[string]string
	CheckedAt  time.Time
}

// OrderListFilter narrows order listings by participant, status and date range.
type OrderListFilter struct {
	ClientID          string
	ProviderProfileID string
	Status            []domain.OrderStatus
	DateRange         domain.RangeQuery[time.Time]
	Pagination        domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
