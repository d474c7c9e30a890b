package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const earningsCollection = "earnings"

// EarningRepository appends provider ledger entries created at settlement.
type EarningRepository struct {
	base *pfirestore.BaseRepository[earningDocument]
}

// NewEarningRepository constructs a Firestore-backed earning repository.
func NewEarningRepository(provider *pfirestore.Provider) (*EarningRepository, error) {
	if provider == nil {
		return nil, errors.New("earning repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[earningDocument](provider, earningsCollection, nil, nil)
	return &EarningRepository{base: base}, nil
}

// Insert stores a new ledger entry. Entry IDs must be unique.
func (r *EarningRepository) Insert(ctx context.Context, earning domain.Earning) error {
	if r == nil || r.base == nil {
		return errors.New("earning repository not initialised")
	}
	earningID := strings.TrimSpace(earning.ID)
	if earningID == "" {
		return errors.New("earning repository: earning id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, earningID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeEarningDocument(earning)); err != nil {
		return pfirestore.WrapError("earnings.insert", err)
	}
	return nil
}

// FindByOrder returns the ledger entry recorded for an order.
func (r *EarningRepository) FindByOrder(ctx context.Context, orderID string) (domain.Earning, error) {
	if r == nil || r.base == nil {
		return domain.Earning{}, errors.New("earning repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Earning{}, errors.New("earning repository: order id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).Limit(1)
	})
	if err != nil {
		return domain.Earning{}, err
	}
	if len(docs) == 0 {
		return domain.Earning{}, pfirestore.WrapError("earnings.find_by_order", status.Error(codes.NotFound, "earning not found"))
	}
	return decodeEarningDocument(docs[0].ID, docs[0].Data), nil
}

// ListByProvider returns ledger entries for a provider ordered by most recent creation.
func (r *EarningRepository) ListByProvider(ctx context.Context, providerProfileID string, pager domain.Pagination) (domain.CursorPage[domain.Earning], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Earning]{}, errors.New("earning repository not initialised")
	}
	providerProfileID = strings.TrimSpace(providerProfileID)
	if providerProfileID == "" {
		return domain.CursorPage[domain.Earning]{}, errors.New("earning repository: provider profile id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeEarningListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Earning]{}, fmt.Errorf("earning repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("providerProfileId", "==", providerProfileID)
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Earning]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeEarningListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Earning, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeEarningDocument(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Earning]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

type earningDocument struct {
	ProviderProfileID string    `firestore:"providerProfileId"`
	OrderID           string    `firestore:"orderId"`
	GrossAmountMinor  int64     `firestore:"grossAmountMinor"`
	FeeAmountMinor    int64     `firestore:"feeAmountMinor"`
	NetAmountMinor    int64     `firestore:"netAmountMinor"`
	Currency          string    `firestore:"currency"`
	Status            string    `firestore:"status"`
	AvailableAt       time.Time `firestore:"availableAt"`
	CreatedAt         time.Time `firestore:"createdAt"`
}

func encodeEarningDocument(earning domain.Earning) earningDocument {
	return earningDocument{
		ProviderProfileID: strings.TrimSpace(earning.ProviderProfileID),
		OrderID:           strings.TrimSpace(earning.OrderID),
		GrossAmountMinor:  earning.GrossAmountMinor,
		FeeAmountMinor:    earning.FeeAmountMinor,
		NetAmountMinor:    earning.NetAmountMinor,
		Currency:          strings.TrimSpace(earning.Currency),
		Status:            string(earning.Status),
		AvailableAt:       earning.AvailableAt.UTC(),
		CreatedAt:         earning.CreatedAt.UTC(),
	}
}

func decodeEarningDocument(id string, doc earningDocument) domain.Earning {
	return domain.Earning{
		ID:                strings.TrimSpace(id),
		ProviderProfileID: strings.TrimSpace(doc.ProviderProfileID),
		OrderID:           strings.TrimSpace(doc.OrderID),
		GrossAmountMinor:  doc.GrossAmountMinor,
		FeeAmountMinor:    doc.FeeAmountMinor,
		NetAmountMinor:    doc.NetAmountMinor,
		Currency:          strings.TrimSpace(doc.Currency),
		Status:            domain.EarningStatus(strings.TrimSpace(doc.Status)),
		AvailableAt:       doc.AvailableAt.UTC(),
		CreatedAt:         doc.CreatedAt.UTC(),
	}
}

func encodeEarningListToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeEarningListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}
