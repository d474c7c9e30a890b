package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/payments"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

var (
	// ErrPaymentInvalidInput signals bad request data for payment operations.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates no payment record exists for the lookup.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentInvalidState indicates the payment is not capturable.
	ErrPaymentInvalidState = errors.New("payment: invalid state")
	// ErrPaymentCaptureFailed wraps PSP failures during capture.
	ErrPaymentCaptureFailed = errors.New("payment: capture failed")
)

// PaymentGateway is the slice of the PSP manager the payment service uses.
type PaymentGateway interface {
	Capture(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CaptureRequest) (payments.PaymentDetails, error)
}

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Payments repositories.PaymentRepository
	Gateway  PaymentGateway
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	payments repositories.PaymentRepository
	gateway  PaymentGateway
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment service: gateway is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		payments: deps.Payments,
		gateway:  deps.Gateway,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *paymentService) FindByOrder(ctx context.Context, orderID string) (Payment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Payment{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	payment, err := s.payments.FindByOrder(ctx, orderID)
	if err != nil {
		return Payment{}, s.mapRepositoryError(err)
	}
	return payment, nil
}

// Capture settles the hold on the order's payment through the PSP and records
// the captured state. Already-captured payments are returned as-is.
func (s *paymentService) Capture(ctx context.Context, cmd CapturePaymentCommand) (Payment, error) {
	payment, err := s.FindByOrder(ctx, cmd.OrderID)
	if err != nil {
		return Payment{}, err
	}
	if id := strings.TrimSpace(cmd.PaymentID); id != "" && id != payment.ID {
		return Payment{}, fmt.Errorf("%w: payment %s does not belong to order %s", ErrPaymentNotFound, id, cmd.OrderID)
	}

	if payment.Status == domain.PaymentStatusCaptured {
		return payment, nil
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		return Payment{}, fmt.Errorf("%w: payment %s is %s", ErrPaymentInvalidState, payment.ID, payment.Status)
	}

	details, err := s.gateway.Capture(ctx, payments.PaymentContext{
		PreferredProvider: payment.Provider,
		Currency:          payment.Currency,
	}, payments.CaptureRequest{
		IntentID:       payment.IntentID,
		IdempotencyKey: payment.ID + ":capture",
	})
	if err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrPaymentCaptureFailed, err)
	}

	now := s.clock()
	payment.Status = domain.PaymentStatusCaptured
	if details.CapturedAt != nil {
		payment.CapturedAt = details.CapturedAt
	} else {
		payment.CapturedAt = &now
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return Payment{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "payment.captured", map[string]any{
		"paymentId": payment.ID,
		"orderId":   payment.OrderID,
		"amount":    payment.Amount,
		"actorId":   cmd.ActorID,
	})

	return payment, nil
}

func (s *paymentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPaymentNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("payment: repository unavailable: %w", err)
		}
	}

	return err
}
