package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const receiptsCollection = "receipts"

// ReceiptRepository persists settlement receipts. Documents are keyed by order
// ID so the create path enforces the one-receipt-per-order invariant.
type ReceiptRepository struct {
	base *pfirestore.BaseRepository[receiptDocument]
}

// NewReceiptRepository constructs a Firestore-backed receipt repository.
func NewReceiptRepository(provider *pfirestore.Provider) (*ReceiptRepository, error) {
	if provider == nil {
		return nil, errors.New("receipt repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[receiptDocument](provider, receiptsCollection, nil, nil)
	return &ReceiptRepository{base: base}, nil
}

// Insert stores the receipt. Returns a conflict error when a receipt already
// exists for the same order.
func (r *ReceiptRepository) Insert(ctx context.Context, receipt domain.Receipt) error {
	if r == nil || r.base == nil {
		return errors.New("receipt repository not initialised")
	}
	orderID := strings.TrimSpace(receipt.OrderID)
	if orderID == "" {
		return errors.New("receipt repository: order id is required")
	}
	if strings.TrimSpace(receipt.ID) == "" {
		return errors.New("receipt repository: receipt id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeReceiptDocument(receipt)); err != nil {
		return pfirestore.WrapError("receipts.insert", err)
	}
	return nil
}

// FindByOrder fetches the receipt recorded for an order.
func (r *ReceiptRepository) FindByOrder(ctx context.Context, orderID string) (domain.Receipt, error) {
	if r == nil || r.base == nil {
		return domain.Receipt{}, errors.New("receipt repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Receipt{}, errors.New("receipt repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return decodeReceiptDocument(orderID, doc.Data), nil
}

type receiptDocument struct {
	ReceiptID     string             `firestore:"receiptId"`
	OrderID       string             `firestore:"orderId"`
	LineItems     []lineItemDocument `firestore:"lineItems"`
	Subtotal      int64              `firestore:"subtotal"`
	PlatformFee   int64              `firestore:"platformFee"`
	Tax           int64              `firestore:"tax"`
	Total         int64              `firestore:"total"`
	Currency      string             `firestore:"currency"`
	ApprovedHours *float64           `firestore:"approvedHours,omitempty"`
	FinalizedAt   time.Time          `firestore:"finalizedAt"`
}

func encodeReceiptDocument(receipt domain.Receipt) receiptDocument {
	lines := make([]lineItemDocument, 0, len(receipt.LineItems))
	for _, item := range receipt.LineItems {
		lines = append(lines, encodeLineItemDocument(item))
	}
	return receiptDocument{
		ReceiptID:     strings.TrimSpace(receipt.ID),
		OrderID:       strings.TrimSpace(receipt.OrderID),
		LineItems:     lines,
		Subtotal:      receipt.Subtotal,
		PlatformFee:   receipt.PlatformFee,
		Tax:           receipt.Tax,
		Total:         receipt.Total,
		Currency:      strings.TrimSpace(receipt.Currency),
		ApprovedHours: cloneOptionalFloat(receipt.ApprovedHours),
		FinalizedAt:   receipt.FinalizedAt.UTC(),
	}
}

func decodeReceiptDocument(orderID string, doc receiptDocument) domain.Receipt {
	lines := make([]domain.OrderLineItem, 0, len(doc.LineItems))
	for _, item := range doc.LineItems {
		lines = append(lines, decodeLineItemDocument("", item))
	}
	return domain.Receipt{
		ID:            strings.TrimSpace(doc.ReceiptID),
		OrderID:       strings.TrimSpace(orderID),
		LineItems:     lines,
		Subtotal:      doc.Subtotal,
		PlatformFee:   doc.PlatformFee,
		Tax:           doc.Tax,
		Total:         doc.Total,
		Currency:      strings.TrimSpace(doc.Currency),
		ApprovedHours: cloneOptionalFloat(doc.ApprovedHours),
		FinalizedAt:   doc.FinalizedAt.UTC(),
	}
}
