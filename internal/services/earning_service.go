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
	earningIDPrefix = "ern_"

	defaultEarningsAvailabilityDelay = 72 * time.Hour
)

var (
	// ErrEarningInvalidInput signals bad request data for ledger operations.
	ErrEarningInvalidInput = errors.New("earning: invalid input")
	// ErrEarningNotFound indicates no ledger entry exists for the lookup.
	ErrEarningNotFound = errors.New("earning: not found")
	// ErrEarningConflict indicates a duplicate ledger entry was attempted.
	ErrEarningConflict = errors.New("earning: conflict")
)

// EarningServiceDeps bundles collaborators required to construct the earning service.
type EarningServiceDeps struct {
	Earnings          repositories.EarningRepository
	Orders            repositories.OrderRepository
	LineItems         repositories.OrderLineItemRepository
	AvailabilityDelay time.Duration
	Clock             func() time.Time
	IDGenerator       func() string
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type earningService struct {
	earnings  repositories.EarningRepository
	orders    repositories.OrderRepository
	lineItems repositories.OrderLineItemRepository
	delay     time.Duration
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewEarningService wires dependencies into a concrete EarningService implementation.
func NewEarningService(deps EarningServiceDeps) (EarningService, error) {
	if deps.Earnings == nil {
		return nil, errors.New("earning service: earning repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("earning service: order repository is required")
	}
	if deps.LineItems == nil {
		return nil, errors.New("earning service: line item repository is required")
	}

	delay := deps.AvailabilityDelay
	if delay <= 0 {
		delay = defaultEarningsAvailabilityDelay
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

	return &earningService{
		earnings:  deps.Earnings,
		orders:    deps.Orders,
		lineItems: deps.LineItems,
		delay:     delay,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateForOrder posts one ledger entry for a finalized order. Gross is the
// labor line total, the fee is the platform-fee line total, net is their
// difference; everything stays in minor units. Calling it again for the same
// order returns the existing entry.
func (s *earningService) CreateForOrder(ctx context.Context, cmd CreateEarningCommand) (Earning, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Earning{}, fmt.Errorf("%w: order id is required", ErrEarningInvalidInput)
	}

	if existing, err := s.earnings.FindByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !isRepositoryNotFound(err) {
		return Earning{}, s.mapRepositoryError(err)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Earning{}, mapOrderRepositoryError(err)
	}
	if order.ProviderProfileID == nil {
		return Earning{}, fmt.Errorf("%w: order %s has no assigned provider", ErrEarningInvalidInput, orderID)
	}

	items, err := s.lineItems.List(ctx, orderID)
	if err != nil {
		return Earning{}, s.mapRepositoryError(err)
	}

	var gross, fee int64
	for _, item := range items {
		switch item.Type {
		case domain.LineItemTypeLabor:
			gross += item.TotalAmount
		case domain.LineItemTypePlatformFee:
			fee += item.TotalAmount
		}
	}
	if gross <= 0 {
		return Earning{}, fmt.Errorf("%w: order %s has no finalized labor amount", ErrEarningInvalidInput, orderID)
	}

	now := s.clock()
	earning := Earning{
		ID:                earningIDPrefix + s.newID(),
		ProviderProfileID: *order.ProviderProfileID,
		OrderID:           orderID,
		GrossAmountMinor:  gross,
		FeeAmountMinor:    fee,
		NetAmountMinor:    gross - fee,
		Currency:          order.Currency,
		Status:            domain.EarningStatusPending,
		AvailableAt:       now.Add(s.delay),
		CreatedAt:         now,
	}

	if err := s.earnings.Insert(ctx, earning); err != nil {
		return Earning{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "earning.created", map[string]any{
		"earningId": earning.ID,
		"orderId":   orderID,
		"gross":     earning.GrossAmountMinor,
		"net":       earning.NetAmountMinor,
		"actorId":   cmd.ActorID,
	})

	return earning, nil
}

func (s *earningService) GetByOrder(ctx context.Context, orderID string) (Earning, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Earning{}, fmt.Errorf("%w: order id is required", ErrEarningInvalidInput)
	}
	earning, err := s.earnings.FindByOrder(ctx, orderID)
	if err != nil {
		return Earning{}, s.mapRepositoryError(err)
	}
	return earning, nil
}

func (s *earningService) ListByProvider(ctx context.Context, filter EarningListFilter) (domain.CursorPage[Earning], error) {
	providerID := strings.TrimSpace(filter.ProviderProfileID)
	if providerID == "" {
		return domain.CursorPage[Earning]{}, fmt.Errorf("%w: provider profile id is required", ErrEarningInvalidInput)
	}
	page, err := s.earnings.ListByProvider(ctx, providerID, filter.Pagination)
	if err != nil {
		return domain.CursorPage[Earning]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *earningService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrEarningNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrEarningConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("earning: repository unavailable: %w", err)
		}
	}

	return err
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
