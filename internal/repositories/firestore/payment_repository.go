package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const paymentsCollection = "payments"

// PaymentRepository mirrors PSP payment records attached to orders.
type PaymentRepository struct {
	base *pfirestore.BaseRepository[paymentDocument]
}

// NewPaymentRepository constructs a Firestore-backed payment repository.
func NewPaymentRepository(provider *pfirestore.Provider) (*PaymentRepository, error) {
	if provider == nil {
		return nil, errors.New("payment repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[paymentDocument](provider, paymentsCollection, nil, nil)
	return &PaymentRepository{base: base}, nil
}

// Insert stores a new payment record.
func (r *PaymentRepository) Insert(ctx context.Context, payment domain.Payment) error {
	if r == nil || r.base == nil {
		return errors.New("payment repository not initialised")
	}
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		return errors.New("payment repository: payment id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, paymentID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodePaymentDocument(payment)); err != nil {
		return pfirestore.WrapError("payments.insert", err)
	}
	return nil
}

// Update replaces the persisted payment state.
func (r *PaymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	if r == nil || r.base == nil {
		return errors.New("payment repository not initialised")
	}
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		return errors.New("payment repository: payment id is required")
	}
	if _, err := r.base.Set(ctx, paymentID, encodePaymentDocument(payment)); err != nil {
		return err
	}
	return nil
}

// FindByOrder returns the most recent payment recorded for an order.
func (r *PaymentRepository) FindByOrder(ctx context.Context, orderID string) (domain.Payment, error) {
	if r == nil || r.base == nil {
		return domain.Payment{}, errors.New("payment repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Payment{}, errors.New("payment repository: order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).OrderBy("createdAt", firestore.Desc).Limit(1)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if len(docs) == 0 {
		return domain.Payment{}, pfirestore.WrapError("payments.find_by_order", status.Error(codes.NotFound, "payment not found"))
	}
	return decodePaymentDocument(docs[0].ID, docs[0].Data), nil
}

type paymentDocument struct {
	OrderID    string     `firestore:"orderId"`
	Provider   string     `firestore:"provider"`
	IntentID   string     `firestore:"intentId"`
	Status     string     `firestore:"status"`
	Amount     int64      `firestore:"amount"`
	Currency   string     `firestore:"currency"`
	CapturedAt *time.Time `firestore:"capturedAt,omitempty"`
	CreatedAt  time.Time  `firestore:"createdAt"`
}

func encodePaymentDocument(payment domain.Payment) paymentDocument {
	return paymentDocument{
		OrderID:    strings.TrimSpace(payment.OrderID),
		Provider:   strings.TrimSpace(payment.Provider),
		IntentID:   strings.TrimSpace(payment.IntentID),
		Status:     string(payment.Status),
		Amount:     payment.Amount,
		Currency:   strings.TrimSpace(payment.Currency),
		CapturedAt: normalizeTimePointer(payment.CapturedAt),
		CreatedAt:  payment.CreatedAt.UTC(),
	}
}

func decodePaymentDocument(id string, doc paymentDocument) domain.Payment {
	return domain.Payment{
		ID:         strings.TrimSpace(id),
		OrderID:    strings.TrimSpace(doc.OrderID),
		Provider:   strings.TrimSpace(doc.Provider),
		IntentID:   strings.TrimSpace(doc.IntentID),
		Status:     domain.PaymentStatus(strings.TrimSpace(doc.Status)),
		Amount:     doc.Amount,
		Currency:   strings.TrimSpace(doc.Currency),
		CapturedAt: normalizeTimePointer(doc.CapturedAt),
		CreatedAt:  doc.CreatedAt.UTC(),
	}
}
