package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const lineItemCollectionPattern = "orders/%s/lineItems"

// LineItemRepository stores billing lines in a subcollection under each order.
type LineItemRepository struct {
	provider *pfirestore.Provider
}

// NewLineItemRepository constructs a Firestore-backed line item repository.
func NewLineItemRepository(provider *pfirestore.Provider) (*LineItemRepository, error) {
	if provider == nil {
		return nil, errors.New("line item repository requires firestore provider")
	}
	return &LineItemRepository{provider: provider}, nil
}

// ReplaceAll deletes every existing line for the order and writes the new set
// in a single transaction.
func (r *LineItemRepository) ReplaceAll(ctx context.Context, orderID string, items []domain.OrderLineItem) error {
	coll, err := r.collection(ctx, orderID)
	if err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(coll.Select()).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range existing {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		for _, item := range items {
			itemID := strings.TrimSpace(item.ID)
			if itemID == "" {
				return errors.New("line item repository: line item id is required")
			}
			if err := tx.Create(coll.Doc(itemID), encodeLineItemDocument(item)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("line_items.replace_all", err)
	}
	return nil
}

// List returns the billing lines for an order in insertion order.
func (r *LineItemRepository) List(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	coll, err := r.collection(ctx, orderID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var results []domain.OrderLineItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("line_items.list", err)
		}
		var doc lineItemDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("line item repository: decode %s: %w", snap.Ref.ID, err)
		}
		results = append(results, decodeLineItemDocument(snap.Ref.ID, doc))
	}
	return results, nil
}

func (r *LineItemRepository) collection(ctx context.Context, orderID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("line item repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("line item repository: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(lineItemCollectionPattern, orderID)), nil
}

type lineItemDocument struct {
	OrderID     string    `firestore:"orderId"`
	Type        string    `firestore:"type"`
	Description string    `firestore:"description"`
	Quantity    float64   `firestore:"quantity"`
	UnitAmount  int64     `firestore:"unitAmount"`
	TotalAmount int64     `firestore:"totalAmount"`
	Currency    string    `firestore:"currency"`
	Taxable     bool      `firestore:"taxable"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

func encodeLineItemDocument(item domain.OrderLineItem) lineItemDocument {
	return lineItemDocument{
		OrderID:     strings.TrimSpace(item.OrderID),
		Type:        string(item.Type),
		Description: strings.TrimSpace(item.Description),
		Quantity:    item.Quantity,
		UnitAmount:  item.UnitAmount,
		TotalAmount: item.TotalAmount,
		Currency:    strings.TrimSpace(item.Currency),
		Taxable:     item.Taxable,
		CreatedAt:   item.CreatedAt.UTC(),
	}
}

func decodeLineItemDocument(id string, doc lineItemDocument) domain.OrderLineItem {
	return domain.OrderLineItem{
		ID:          strings.TrimSpace(id),
		OrderID:     strings.TrimSpace(doc.OrderID),
		Type:        domain.LineItemType(strings.TrimSpace(doc.Type)),
		Description: strings.TrimSpace(doc.Description),
		Quantity:    doc.Quantity,
		UnitAmount:  doc.UnitAmount,
		TotalAmount: doc.TotalAmount,
		Currency:    strings.TrimSpace(doc.Currency),
		Taxable:     doc.Taxable,
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}
