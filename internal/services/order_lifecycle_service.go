package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

const (
	actionAcceptOrder      = "order.accept"
	actionConfirmOrder     = "order.confirm"
	actionStartOrder       = "order.start"
	actionMarkArrived      = "order.arrive"
	actionSubmitHours      = "order.submit_hours"
	actionSubmitQuote      = "order.submit_quote"
	actionAcceptQuote      = "order.accept_quote"
	actionSubmitCompletion = "order.submit_completion"
	actionApproveHours     = "order.approve_hours"
	actionOpenDispute      = "order.dispute"
	actionCancelOrder      = "order.cancel"

	defaultMaxWorkProofURLs = 6
)

var (
	// ErrOrderInvalidState indicates the order is not in a status that allows
	// the attempted sub-state action.
	ErrOrderInvalidState = errors.New("order: invalid state for action")
	// ErrPaymentNotAuthorized indicates confirmation was attempted without a
	// payment in the authorized state.
	ErrPaymentNotAuthorized = errors.New("order: payment not authorized")
)

// OrderLifecycleServiceDeps bundles collaborators for the lifecycle service.
type OrderLifecycleServiceDeps struct {
	Orders           repositories.OrderRepository
	Payments         repositories.PaymentRepository
	Access           OrderAccessPolicy
	UnitOfWork       repositories.UnitOfWork
	MaxWorkProofURLs int
	Clock            func() time.Time
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type orderLifecycleService struct {
	orders    repositories.OrderRepository
	payments  repositories.PaymentRepository
	access    OrderAccessPolicy
	unit      repositories.UnitOfWork
	maxProofs int
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewOrderLifecycleService wires dependencies into the lifecycle service.
func NewOrderLifecycleService(deps OrderLifecycleServiceDeps) (OrderLifecycleService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order lifecycle service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order lifecycle service: payment repository is required")
	}
	if deps.Access == nil {
		return nil, errors.New("order lifecycle service: access policy is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	maxProofs := deps.MaxWorkProofURLs
	if maxProofs <= 0 {
		maxProofs = defaultMaxWorkProofURLs
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderLifecycleService{
		orders:    deps.Orders,
		payments:  deps.Payments,
		access:    deps.Access,
		unit:      unit,
		maxProofs: maxProofs,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *orderLifecycleService) Accept(ctx context.Context, cmd AcceptOrderCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusAccepted); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionAcceptOrder); err != nil {
		return Order{}, err
	}

	now := s.clock()
	s.applyTransition(&order, domain.OrderStatusAccepted, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionAcceptOrder, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) Confirm(ctx context.Context, cmd ConfirmOrderCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusConfirmed); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireClient(ctx, cmd.Actor, order, actionConfirmOrder); err != nil {
		return Order{}, err
	}

	// Cross-aggregate precondition: a hold on the client's funds must already
	// exist before the provider is committed.
	payment, err := s.payments.FindByOrder(ctx, order.ID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Order{}, fmt.Errorf("%w: no payment found for order %s", ErrPaymentNotAuthorized, order.ID)
		}
		return Order{}, mapOrderRepositoryError(err)
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		return Order{}, fmt.Errorf("%w: payment %s is %s", ErrPaymentNotAuthorized, payment.ID, payment.Status)
	}

	now := s.clock()
	s.applyTransition(&order, domain.OrderStatusConfirmed, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionConfirmOrder, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) Start(ctx context.Context, cmd StartOrderCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusInProgress); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionStartOrder); err != nil {
		return Order{}, err
	}

	now := s.clock()
	s.applyTransition(&order, domain.OrderStatusInProgress, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionStartOrder, order, cmd.Actor)
	return order, nil
}

// MarkArrived records the arrival marker without a status transition; it is
// only legal while the order is in progress.
func (s *orderLifecycleService) MarkArrived(ctx context.Context, cmd MarkArrivedCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusInProgress {
		return Order{}, fmt.Errorf("%w: arrival can only be marked while in progress, order is %s", ErrOrderInvalidState, order.Status)
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionMarkArrived); err != nil {
		return Order{}, err
	}

	now := s.clock()
	order.ArrivedAt = &now
	order.UpdatedAt = now
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionMarkArrived, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) SubmitHours(ctx context.Context, cmd SubmitHoursCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusAwaitingApproval); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionSubmitHours); err != nil {
		return Order{}, err
	}
	if order.PricingMode != domain.PricingModeHourly {
		return Order{}, fmt.Errorf("%w: hours apply to hourly orders only", ErrOrderInvalidState)
	}
	if cmd.Hours <= 0 {
		return Order{}, fmt.Errorf("%w: hours must be positive", ErrOrderInvalidInput)
	}
	proofs, err := s.normalizeWorkProofs(cmd.WorkProofURLs)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order.FinalHours = valuePtr(cmd.Hours)
	if len(proofs) > 0 {
		order.WorkProofURLs = proofs
	}
	order.SubmittedAt = &now
	s.applyTransition(&order, domain.OrderStatusAwaitingApproval, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionSubmitHours, order, cmd.Actor)
	return order, nil
}

// SubmitQuote records a fixed-mode quote while the order is accepted. The
// status does not change; re-quoting clears a previous acceptance.
func (s *orderLifecycleService) SubmitQuote(ctx context.Context, cmd SubmitQuoteCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusAccepted {
		return Order{}, fmt.Errorf("%w: quotes can only be submitted while accepted, order is %s", ErrOrderInvalidState, order.Status)
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionSubmitQuote); err != nil {
		return Order{}, err
	}
	if order.PricingMode != domain.PricingModeFixed {
		return Order{}, fmt.Errorf("%w: quotes apply to fixed-price orders only", ErrOrderInvalidState)
	}
	if cmd.AmountMinor <= 0 {
		return Order{}, fmt.Errorf("%w: quote amount must be positive", ErrOrderInvalidInput)
	}

	now := s.clock()
	order.QuoteAmountMinor = valuePtr(cmd.AmountMinor)
	order.QuoteMessage = optionalString(strings.TrimSpace(cmd.Message))
	order.QuotedAt = &now
	order.QuoteAcceptedAt = nil
	order.UpdatedAt = now
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionSubmitQuote, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) AcceptQuote(ctx context.Context, cmd AcceptQuoteCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusAccepted {
		return Order{}, fmt.Errorf("%w: quotes can only be accepted while accepted, order is %s", ErrOrderInvalidState, order.Status)
	}
	if err := s.access.RequireClient(ctx, cmd.Actor, order, actionAcceptQuote); err != nil {
		return Order{}, err
	}
	if order.PricingMode != domain.PricingModeFixed {
		return Order{}, fmt.Errorf("%w: quotes apply to fixed-price orders only", ErrOrderInvalidState)
	}
	if order.QuoteAmountMinor == nil {
		return Order{}, fmt.Errorf("%w: no quote has been submitted", ErrOrderInvalidState)
	}

	now := s.clock()
	order.QuoteAcceptedAt = &now
	order.UpdatedAt = now
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionAcceptQuote, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) SubmitCompletion(ctx context.Context, cmd SubmitCompletionCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusAwaitingApproval); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireProvider(ctx, cmd.Actor, order, actionSubmitCompletion); err != nil {
		return Order{}, err
	}
	if order.PricingMode != domain.PricingModeFixed {
		return Order{}, fmt.Errorf("%w: completion submissions apply to fixed-price orders only", ErrOrderInvalidState)
	}
	proofs, err := s.normalizeWorkProofs(cmd.WorkProofURLs)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	if len(proofs) > 0 {
		order.WorkProofURLs = proofs
	}
	order.SubmittedAt = &now
	s.applyTransition(&order, domain.OrderStatusAwaitingApproval, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionSubmitCompletion, order, cmd.Actor)
	return order, nil
}

// ApproveHours records the client's approval of the submitted work. It does
// not finalize; the caller composes approval and finalization.
func (s *orderLifecycleService) ApproveHours(ctx context.Context, cmd ApproveHoursCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	// Early-fail check: the later transition to completed must be legal.
	if err := AssertTransition(order.Status, domain.OrderStatusCompleted); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireClient(ctx, cmd.Actor, order, actionApproveHours); err != nil {
		return Order{}, err
	}

	now := s.clock()
	if order.PricingMode == domain.PricingModeHourly {
		hours := cmd.Hours
		if hours == nil {
			hours = order.FinalHours
		}
		if hours == nil {
			return Order{}, fmt.Errorf("%w: no final hours have been submitted", ErrOrderInvalidState)
		}
		if *hours <= 0 {
			return Order{}, fmt.Errorf("%w: approved hours must be positive", ErrOrderInvalidInput)
		}
		order.ApprovedHours = cloneOptFloat(hours)
	}

	method := cmd.Method
	if method == "" {
		method = domain.ApprovalMethodClientManual
	}
	order.ApprovalMethod = method
	order.UpdatedAt = now
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionApproveHours, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) OpenDispute(ctx context.Context, cmd OpenDisputeCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusDisputed); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireClient(ctx, cmd.Actor, order, actionOpenDispute); err != nil {
		return Order{}, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return Order{}, fmt.Errorf("%w: dispute reason is required", ErrOrderInvalidInput)
	}

	now := s.clock()
	order.Dispute = &Dispute{
		Status:   domain.DisputeStatusOpen,
		Reason:   reason,
		OpenedBy: cmd.Actor.ID,
		OpenedAt: now,
	}
	s.applyTransition(&order, domain.OrderStatusDisputed, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionOpenDispute, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	order, err := s.fetch(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := AssertTransition(order.Status, domain.OrderStatusCanceled); err != nil {
		return Order{}, err
	}
	if err := s.access.RequireParticipant(ctx, cmd.Actor, order, actionCancelOrder); err != nil {
		return Order{}, err
	}

	now := s.clock()
	order.CancelReason = optionalString(strings.TrimSpace(cmd.Reason))
	if order.Dispute != nil && order.Dispute.Status == domain.DisputeStatusOpen {
		order.Dispute.Status = domain.DisputeStatusResolved
	}
	s.applyTransition(&order, domain.OrderStatusCanceled, now)
	if err := s.persist(ctx, order); err != nil {
		return Order{}, err
	}

	s.logTransition(ctx, actionCancelOrder, order, cmd.Actor)
	return order, nil
}

func (s *orderLifecycleService) fetch(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapOrderRepositoryError(err)
	}
	return order, nil
}

func (s *orderLifecycleService) persist(ctx context.Context, order Order) error {
	return s.unit.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return mapOrderRepositoryError(err)
		}
		return nil
	})
}

// applyTransition assumes the transition was already asserted.
func (s *orderLifecycleService) applyTransition(order *Order, target OrderStatus, now time.Time) {
	order.Status = target
	order.UpdatedAt = now

	switch target {
	case domain.OrderStatusAccepted:
		order.AcceptedAt = &now
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case domain.OrderStatusInProgress:
		order.StartedAt = &now
	case domain.OrderStatusCompleted:
		order.CompletedAt = &now
	case domain.OrderStatusPaid:
		order.PaidAt = &now
	case domain.OrderStatusCanceled:
		if order.CanceledAt == nil {
			order.CanceledAt = &now
		}
	}
}

func (s *orderLifecycleService) normalizeWorkProofs(urls []string) ([]string, error) {
	proofs := make([]string, 0, len(urls))
	for _, url := range urls {
		trimmed := strings.TrimSpace(url)
		if trimmed == "" {
			continue
		}
		proofs = append(proofs, trimmed)
	}
	if len(proofs) > s.maxProofs {
		return nil, fmt.Errorf("%w: at most %d work proof photos allowed", ErrOrderInvalidInput, s.maxProofs)
	}
	return proofs, nil
}

func (s *orderLifecycleService) logTransition(ctx context.Context, action string, order Order, actor Actor) {
	s.logger(ctx, action, map[string]any{
		"orderId": order.ID,
		"status":  string(order.Status),
		"actorId": actor.ID,
	})
}
