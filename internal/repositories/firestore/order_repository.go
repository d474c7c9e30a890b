package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists order aggregates in Firestore.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document. The ID must be unique.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	doc := encodeOrderDocument(order)
	if _, err := docRef.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the persisted order state with the provided snapshot.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	doc := encodeOrderDocument(order)
	if _, err := r.base.Set(ctx, orderID, doc); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(orderID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns orders matching the filter ordered by most recent creation.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeOrderListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statusFilters := normaliseOrderStatuses(filter.Status)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if clientID := strings.TrimSpace(filter.ClientID); clientID != "" {
			q = q.Where("clientId", "==", clientID)
		}
		if profileID := strings.TrimSpace(filter.ProviderProfileID); profileID != "" {
			q = q.Where("providerProfileId", "==", profileID)
		}

		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}

		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}

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
		return domain.CursorPage[domain.Order]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeOrderListToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Order, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ExistsForClient reports whether the client has placed any order before.
func (r *OrderRepository) ExistsForClient(ctx context.Context, clientID string) (bool, error) {
	if r == nil || r.base == nil {
		return false, errors.New("order repository not initialised")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return false, errors.New("order repository: client id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("clientId", "==", clientID).Limit(1)
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

type orderDocument struct {
	DisplayCode       string                  `firestore:"displayCode"`
	ClientID          string                  `firestore:"clientId"`
	ProviderProfileID *string                 `firestore:"providerProfileId,omitempty"`
	CategoryID        string                  `firestore:"categoryId"`
	SubcategoryID     *string                 `firestore:"subcategoryId,omitempty"`
	Category          categorySnapshotDoc     `firestore:"category"`
	WindowStartAt     *time.Time              `firestore:"windowStartAt,omitempty"`
	WindowEndAt       *time.Time              `firestore:"windowEndAt,omitempty"`
	Address           orderAddressDocument    `firestore:"address"`
	Description       string                  `firestore:"description"`
	Status            string                  `firestore:"status"`
	PricingMode       string                  `firestore:"pricingMode"`
	HourlyRateMinor   int64                   `firestore:"hourlyRateMinor"`
	EstimatedHours    *float64                `firestore:"estimatedHours,omitempty"`
	FinalHours        *float64                `firestore:"finalHours,omitempty"`
	ApprovedHours     *float64                `firestore:"approvedHours,omitempty"`
	ApprovalMethod    string                  `firestore:"approvalMethod,omitempty"`
	QuoteAmountMinor  *int64                  `firestore:"quoteAmountMinor,omitempty"`
	QuoteMessage      *string                 `firestore:"quoteMessage,omitempty"`
	QuotedAt          *time.Time              `firestore:"quotedAt,omitempty"`
	QuoteAcceptedAt   *time.Time              `firestore:"quoteAcceptedAt,omitempty"`
	Currency          string                  `firestore:"currency"`
	Totals            *orderTotalsDocument    `firestore:"totals,omitempty"`
	Dispute           *orderDisputeDocument   `firestore:"dispute,omitempty"`
	FirstOrder        bool                    `firestore:"firstOrder"`
	WorkProofURLs     []string                `firestore:"workProofUrls,omitempty"`
	CancelReason      *string                 `firestore:"cancelReason,omitempty"`
	AcceptedAt        *time.Time              `firestore:"acceptedAt,omitempty"`
	ConfirmedAt       *time.Time              `firestore:"confirmedAt,omitempty"`
	StartedAt         *time.Time              `firestore:"startedAt,omitempty"`
	ArrivedAt         *time.Time              `firestore:"arrivedAt,omitempty"`
	SubmittedAt       *time.Time              `firestore:"submittedAt,omitempty"`
	CompletedAt       *time.Time              `firestore:"completedAt,omitempty"`
	PaidAt            *time.Time              `firestore:"paidAt,omitempty"`
	CanceledAt        *time.Time              `firestore:"canceledAt,omitempty"`
	CreatedAt         time.Time               `firestore:"createdAt"`
	UpdatedAt         time.Time               `firestore:"updatedAt"`
}

type categorySnapshotDoc struct {
	Name            string `firestore:"name"`
	PricingMode     string `firestore:"pricingMode"`
	HourlyRateMinor int64  `firestore:"hourlyRateMinor"`
}

type orderAddressDocument struct {
	Line1      string   `firestore:"line1"`
	Line2      *string  `firestore:"line2,omitempty"`
	City       string   `firestore:"city"`
	PostalCode string   `firestore:"postalCode"`
	Country    string   `firestore:"country"`
	Latitude   *float64 `firestore:"latitude,omitempty"`
	Longitude  *float64 `firestore:"longitude,omitempty"`
}

type orderTotalsDocument struct {
	Subtotal     int64     `firestore:"subtotal"`
	PlatformFee  int64     `firestore:"platformFee"`
	Tax          int64     `firestore:"tax"`
	Total        int64     `firestore:"total"`
	TaxScheme    string    `firestore:"taxScheme"`
	TaxRate      float64   `firestore:"taxRate"`
	TaxRegion    string    `firestore:"taxRegion"`
	TaxInclusive bool      `firestore:"taxInclusive"`
	ComputedAt   time.Time `firestore:"computedAt"`
}

type orderDisputeDocument struct {
	Status   string    `firestore:"status"`
	Reason   string    `firestore:"reason"`
	OpenedBy string    `firestore:"openedBy"`
	OpenedAt time.Time `firestore:"openedAt"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		DisplayCode:       strings.TrimSpace(order.DisplayCode),
		ClientID:          strings.TrimSpace(order.ClientID),
		ProviderProfileID: cloneOptionalString(order.ProviderProfileID),
		CategoryID:        strings.TrimSpace(order.CategoryID),
		SubcategoryID:     cloneOptionalString(order.SubcategoryID),
		Category: categorySnapshotDoc{
			Name:            strings.TrimSpace(order.Category.Name),
			PricingMode:     string(order.Category.PricingMode),
			HourlyRateMinor: order.Category.HourlyRateMinor,
		},
		WindowStartAt:    normalizeTimePointer(order.Window.StartAt),
		WindowEndAt:      normalizeTimePointer(order.Window.EndAt),
		Address:          encodeOrderAddress(order.Address),
		Description:      strings.TrimSpace(order.Description),
		Status:           string(order.Status),
		PricingMode:      string(order.PricingMode),
		HourlyRateMinor:  order.HourlyRateMinor,
		EstimatedHours:   cloneOptionalFloat(order.EstimatedHours),
		FinalHours:       cloneOptionalFloat(order.FinalHours),
		ApprovedHours:    cloneOptionalFloat(order.ApprovedHours),
		ApprovalMethod:   string(order.ApprovalMethod),
		QuoteAmountMinor: cloneOptionalInt(order.QuoteAmountMinor),
		QuoteMessage:     cloneOptionalString(order.QuoteMessage),
		QuotedAt:         normalizeTimePointer(order.QuotedAt),
		QuoteAcceptedAt:  normalizeTimePointer(order.QuoteAcceptedAt),
		Currency:         strings.TrimSpace(order.Currency),
		FirstOrder:       order.FirstOrder,
		WorkProofURLs:    slices.Clone(order.WorkProofURLs),
		CancelReason:     cloneOptionalString(order.CancelReason),
		AcceptedAt:       normalizeTimePointer(order.AcceptedAt),
		ConfirmedAt:      normalizeTimePointer(order.ConfirmedAt),
		StartedAt:        normalizeTimePointer(order.StartedAt),
		ArrivedAt:        normalizeTimePointer(order.ArrivedAt),
		SubmittedAt:      normalizeTimePointer(order.SubmittedAt),
		CompletedAt:      normalizeTimePointer(order.CompletedAt),
		PaidAt:           normalizeTimePointer(order.PaidAt),
		CanceledAt:       normalizeTimePointer(order.CanceledAt),
		CreatedAt:        order.CreatedAt.UTC(),
		UpdatedAt:        order.UpdatedAt.UTC(),
	}
	if order.Totals != nil {
		doc.Totals = &orderTotalsDocument{
			Subtotal:     order.Totals.Subtotal,
			PlatformFee:  order.Totals.PlatformFee,
			Tax:          order.Totals.Tax,
			Total:        order.Totals.Total,
			TaxScheme:    order.Totals.TaxScheme,
			TaxRate:      order.Totals.TaxRate,
			TaxRegion:    order.Totals.TaxRegion,
			TaxInclusive: order.Totals.TaxInclusive,
			ComputedAt:   order.Totals.ComputedAt.UTC(),
		}
	}
	if order.Dispute != nil {
		doc.Dispute = &orderDisputeDocument{
			Status:   string(order.Dispute.Status),
			Reason:   strings.TrimSpace(order.Dispute.Reason),
			OpenedBy: strings.TrimSpace(order.Dispute.OpenedBy),
			OpenedAt: order.Dispute.OpenedAt.UTC(),
		}
	}
	return doc
}

func encodeOrderAddress(addr domain.Address) orderAddressDocument {
	doc := orderAddressDocument{
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      cloneOptionalString(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.TrimSpace(addr.Country),
	}
	if addr.Location != nil {
		lat := addr.Location.Latitude
		lng := addr.Location.Longitude
		doc.Latitude = &lat
		doc.Longitude = &lng
	}
	return doc
}

func decodeOrderDocument(id string, doc orderDocument, createdAt, updatedAt time.Time) domain.Order {
	order := domain.Order{
		ID:                strings.TrimSpace(id),
		DisplayCode:       strings.TrimSpace(doc.DisplayCode),
		ClientID:          strings.TrimSpace(doc.ClientID),
		ProviderProfileID: cloneOptionalString(doc.ProviderProfileID),
		CategoryID:        strings.TrimSpace(doc.CategoryID),
		SubcategoryID:     cloneOptionalString(doc.SubcategoryID),
		Category: domain.CategorySnapshot{
			Name:            strings.TrimSpace(doc.Category.Name),
			PricingMode:     domain.PricingMode(doc.Category.PricingMode),
			HourlyRateMinor: doc.Category.HourlyRateMinor,
		},
		Window: domain.ServiceWindow{
			StartAt: normalizeTimePointer(doc.WindowStartAt),
			EndAt:   normalizeTimePointer(doc.WindowEndAt),
		},
		Address:          decodeOrderAddress(doc.Address),
		Description:      strings.TrimSpace(doc.Description),
		Status:           domain.OrderStatus(strings.TrimSpace(doc.Status)),
		PricingMode:      domain.PricingMode(strings.TrimSpace(doc.PricingMode)),
		HourlyRateMinor:  doc.HourlyRateMinor,
		EstimatedHours:   cloneOptionalFloat(doc.EstimatedHours),
		FinalHours:       cloneOptionalFloat(doc.FinalHours),
		ApprovedHours:    cloneOptionalFloat(doc.ApprovedHours),
		ApprovalMethod:   domain.ApprovalMethod(strings.TrimSpace(doc.ApprovalMethod)),
		QuoteAmountMinor: cloneOptionalInt(doc.QuoteAmountMinor),
		QuoteMessage:     cloneOptionalString(doc.QuoteMessage),
		QuotedAt:         normalizeTimePointer(doc.QuotedAt),
		QuoteAcceptedAt:  normalizeTimePointer(doc.QuoteAcceptedAt),
		Currency:         strings.TrimSpace(doc.Currency),
		FirstOrder:       doc.FirstOrder,
		WorkProofURLs:    slices.Clone(doc.WorkProofURLs),
		CancelReason:     cloneOptionalString(doc.CancelReason),
		AcceptedAt:       normalizeTimePointer(doc.AcceptedAt),
		ConfirmedAt:      normalizeTimePointer(doc.ConfirmedAt),
		StartedAt:        normalizeTimePointer(doc.StartedAt),
		ArrivedAt:        normalizeTimePointer(doc.ArrivedAt),
		SubmittedAt:      normalizeTimePointer(doc.SubmittedAt),
		CompletedAt:      normalizeTimePointer(doc.CompletedAt),
		PaidAt:           normalizeTimePointer(doc.PaidAt),
		CanceledAt:       normalizeTimePointer(doc.CanceledAt),
		CreatedAt:        chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:        chooseTime(doc.UpdatedAt, updatedAt),
	}
	if doc.Totals != nil {
		order.Totals = &domain.OrderTotals{
			Subtotal:     doc.Totals.Subtotal,
			PlatformFee:  doc.Totals.PlatformFee,
			Tax:          doc.Totals.Tax,
			Total:        doc.Totals.Total,
			TaxScheme:    doc.Totals.TaxScheme,
			TaxRate:      doc.Totals.TaxRate,
			TaxRegion:    doc.Totals.TaxRegion,
			TaxInclusive: doc.Totals.TaxInclusive,
			ComputedAt:   doc.Totals.ComputedAt.UTC(),
		}
	}
	if doc.Dispute != nil {
		order.Dispute = &domain.Dispute{
			Status:   domain.DisputeStatus(strings.TrimSpace(doc.Dispute.Status)),
			Reason:   strings.TrimSpace(doc.Dispute.Reason),
			OpenedBy: strings.TrimSpace(doc.Dispute.OpenedBy),
			OpenedAt: doc.Dispute.OpenedAt.UTC(),
		}
	}
	return order
}

func decodeOrderAddress(doc orderAddressDocument) domain.Address {
	addr := domain.Address{
		Line1:      strings.TrimSpace(doc.Line1),
		Line2:      cloneOptionalString(doc.Line2),
		City:       strings.TrimSpace(doc.City),
		PostalCode: strings.TrimSpace(doc.PostalCode),
		Country:    strings.TrimSpace(doc.Country),
	}
	if doc.Latitude != nil && doc.Longitude != nil {
		addr.Location = &domain.GeoPoint{
			Latitude:  *doc.Latitude,
			Longitude: *doc.Longitude,
		}
	}
	return addr
}

func encodeOrderListToken(createdAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeOrderListToken(token string) (time.Time, string, error) {
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

func normaliseOrderStatuses(statuses []domain.OrderStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(statuses))
	seen := make(map[string]struct{})
	for _, status := range statuses {
		trimmed := strings.ToLower(strings.TrimSpace(string(status)))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

func chooseTime(primary time.Time, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Time{}
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	if value.IsZero() {
		return nil
	}
	ts := value.UTC()
	return &ts
}

func cloneOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneOptionalFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneOptionalInt(value *int64) *int64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
