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

const (
	orderIDPrefix    = "ord_"
	lineItemIDPrefix = "oli_"
	receiptIDPrefix  = "rcp_"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates concurrent-update conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Categories  repositories.CategoryRepository
	Profiles    repositories.ProviderProfileRepository
	Counters    CounterService
	UnitOfWork  repositories.UnitOfWork
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	categories repositories.CategoryRepository
	profiles   repositories.ProviderProfileRepository
	counters   CounterService
	unitOfWork repositories.UnitOfWork
	currency   string
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Categories == nil {
		return nil, errors.New("order service: category repository is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("order service: provider profile repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter service is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
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

	return &orderService{
		orders:     deps.Orders,
		categories: deps.Categories,
		profiles:   deps.Profiles,
		counters:   deps.Counters,
		unitOfWork: unit,
		currency:   currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	clientID := strings.TrimSpace(cmd.ClientID)
	if clientID == "" {
		return Order{}, fmt.Errorf("%w: client id is required", ErrOrderInvalidInput)
	}
	profileID := strings.TrimSpace(cmd.ProviderProfileID)
	if profileID == "" {
		return Order{}, fmt.Errorf("%w: provider profile id is required", ErrOrderInvalidInput)
	}
	categoryID := strings.TrimSpace(cmd.CategoryID)
	if categoryID == "" {
		return Order{}, fmt.Errorf("%w: category id is required", ErrOrderInvalidInput)
	}
	if cmd.Window.StartAt == nil || cmd.Window.StartAt.IsZero() {
		return Order{}, fmt.Errorf("%w: service window start is required", ErrOrderInvalidInput)
	}
	if cmd.Window.EndAt != nil && !cmd.Window.EndAt.After(*cmd.Window.StartAt) {
		return Order{}, fmt.Errorf("%w: service window end must come after its start", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Address.Line1) == "" {
		return Order{}, fmt.Errorf("%w: address line is required", ErrOrderInvalidInput)
	}
	if cmd.EstimatedHours != nil && *cmd.EstimatedHours <= 0 {
		return Order{}, fmt.Errorf("%w: estimated hours must be positive", ErrOrderInvalidInput)
	}

	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Order{}, fmt.Errorf("%w: unknown category %q", ErrOrderInvalidInput, categoryID)
		}
		return Order{}, s.mapRepositoryError(err)
	}
	if !category.Active {
		return Order{}, fmt.Errorf("%w: category %q is not bookable", ErrOrderInvalidInput, categoryID)
	}
	if category.PricingMode == domain.PricingModeHourly && category.HourlyRateMinor <= 0 {
		return Order{}, fmt.Errorf("%w: category %q has no hourly rate configured", ErrOrderInvalidInput, categoryID)
	}

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Order{}, fmt.Errorf("%w: unknown provider profile %q", ErrOrderInvalidInput, profileID)
		}
		return Order{}, s.mapRepositoryError(err)
	}
	if !profile.Active {
		return Order{}, fmt.Errorf("%w: provider profile %q is not active", ErrOrderInvalidInput, profileID)
	}

	hasOrders, err := s.orders.ExistsForClient(ctx, clientID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	displayCode, err := s.counters.NextOrderCode(ctx)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := Order{
		ID:                s.nextOrderID(),
		DisplayCode:       displayCode,
		ClientID:          clientID,
		ProviderProfileID: valuePtr(profile.ID),
		CategoryID:        categoryID,
		SubcategoryID:     cloneOptString(cmd.SubcategoryID),
		Category: CategorySnapshot{
			Name:            category.Name,
			PricingMode:     category.PricingMode,
			HourlyRateMinor: category.HourlyRateMinor,
		},
		Window:      cmd.Window,
		Address:     cmd.Address,
		Description: strings.TrimSpace(cmd.Description),
		Status:      domain.OrderStatusPendingConfirmation,
		PricingMode: category.PricingMode,
		Currency:    s.currency,
		FirstOrder:  !hasOrders,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The rate is frozen at creation; later catalog edits never reprice an
	// in-flight order.
	if category.PricingMode == domain.PricingModeHourly {
		order.HourlyRateMinor = category.HourlyRateMinor
		order.EstimatedHours = cloneOptFloat(cmd.EstimatedHours)
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderId":     order.ID,
		"displayCode": order.DisplayCode,
		"clientId":    order.ClientID,
		"pricingMode": string(order.PricingMode),
		"firstOrder":  order.FirstOrder,
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	return mapOrderRepositoryError(err)
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

// mapOrderRepositoryError translates categorised persistence failures into the
// order sentinel errors shared by the lifecycle and finalization services.
func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func valuePtr[T any](v T) *T {
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	ref := v
	return &ref
}

func cloneOptString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneOptFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	ref := *value
	return &ref
}
