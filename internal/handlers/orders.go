package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/auth"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/httpx"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 16 * 1024
)

type createOrderRequest struct {
	ProviderProfileID string          `json:"provider_profile_id"`
	CategoryID        string          `json:"category_id"`
	SubcategoryID     *string         `json:"subcategory_id"`
	Window            *windowRequest  `json:"window"`
	Address           *addressRequest `json:"address"`
	Description       string          `json:"description"`
	EstimatedHours    *float64        `json:"estimated_hours"`
}

type windowRequest struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type addressRequest struct {
	Line1      string           `json:"line1"`
	Line2      *string          `json:"line2"`
	City       string           `json:"city"`
	PostalCode string           `json:"postal_code"`
	Country    string           `json:"country"`
	Location   *geoPointRequest `json:"location"`
}

type geoPointRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type submitHoursRequest struct {
	Hours         float64  `json:"hours"`
	WorkProofURLs []string `json:"work_proof_urls"`
}

type submitQuoteRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

type submitCompletionRequest struct {
	WorkProofURLs []string `json:"work_proof_urls"`
}

type approveHoursRequest struct {
	Hours  *float64 `json:"hours"`
	Method string   `json:"method"`
}

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type finalizeOrderRequest struct {
	ApprovedHours *float64 `json:"approved_hours"`
	Method        string   `json:"method"`
}

// OrderHandlers exposes order creation, reads, and lifecycle actions for
// authenticated clients and providers.
type OrderHandlers struct {
	authn        *auth.Authenticator
	orders       services.OrderService
	lifecycle    services.OrderLifecycleService
	finalization services.OrderFinalizationService
	payments     services.PaymentService
	profiles     services.ProviderProfileService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(
	authn *auth.Authenticator,
	orders services.OrderService,
	lifecycle services.OrderLifecycleService,
	finalization services.OrderFinalizationService,
	payments services.PaymentService,
	profiles services.ProviderProfileService,
) *OrderHandlers {
	return &OrderHandlers{
		authn:        authn,
		orders:       orders,
		lifecycle:    lifecycle,
		finalization: finalization,
		payments:     payments,
		profiles:     profiles,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireIdentity())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/payment", h.getOrderPayment)
	r.Post("/{orderID}:accept", h.lifecycleAction(func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
		return h.lifecycle.Accept(ctx, services.AcceptOrderCommand{OrderID: orderID, Actor: actor})
	}))
	r.Post("/{orderID}:confirm", h.lifecycleAction(func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
		return h.lifecycle.Confirm(ctx, services.ConfirmOrderCommand{OrderID: orderID, Actor: actor})
	}))
	r.Post("/{orderID}:start", h.lifecycleAction(func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
		return h.lifecycle.Start(ctx, services.StartOrderCommand{OrderID: orderID, Actor: actor})
	}))
	r.Post("/{orderID}:arrive", h.lifecycleAction(func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
		return h.lifecycle.MarkArrived(ctx, services.MarkArrivedCommand{OrderID: orderID, Actor: actor})
	}))
	r.Post("/{orderID}:accept-quote", h.lifecycleAction(func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
		return h.lifecycle.AcceptQuote(ctx, services.AcceptQuoteCommand{OrderID: orderID, Actor: actor})
	}))
	r.Post("/{orderID}:submit-hours", h.submitHours)
	r.Post("/{orderID}:submit-quote", h.submitQuote)
	r.Post("/{orderID}:submit-completion", h.submitCompletion)
	r.Post("/{orderID}:approve", h.approveHours)
	r.Post("/{orderID}:dispute", h.openDispute)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:finalize", h.finalizeOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cmd := services.CreateOrderCommand{
		ClientID:          strings.TrimSpace(identity.UID),
		ProviderProfileID: strings.TrimSpace(req.ProviderProfileID),
		CategoryID:        strings.TrimSpace(req.CategoryID),
		SubcategoryID:     cloneStringPointer(req.SubcategoryID),
		Description:       strings.TrimSpace(req.Description),
		EstimatedHours:    cloneFloatPointer(req.EstimatedHours),
	}

	if req.Window != nil {
		if raw := strings.TrimSpace(req.Window.StartAt); raw != "" {
			ts, err := parseTimeParam(raw)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "window.start_at must be a valid RFC3339 timestamp", http.StatusBadRequest))
				return
			}
			cmd.Window.StartAt = &ts
		}
		if raw := strings.TrimSpace(req.Window.EndAt); raw != "" {
			ts, err := parseTimeParam(raw)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "window.end_at must be a valid RFC3339 timestamp", http.StatusBadRequest))
				return
			}
			cmd.Window.EndAt = &ts
		}
	}

	if req.Address != nil {
		cmd.Address = services.Address{
			Line1:      strings.TrimSpace(req.Address.Line1),
			Line2:      cloneStringPointer(req.Address.Line2),
			City:       strings.TrimSpace(req.Address.City),
			PostalCode: strings.TrimSpace(req.Address.PostalCode),
			Country:    strings.ToUpper(strings.TrimSpace(req.Address.Country)),
		}
		if req.Address.Location != nil {
			cmd.Address.Location = &services.GeoPoint{
				Latitude:  req.Address.Location.Latitude,
				Longitude: req.Address.Location.Longitude,
			}
		}
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()
	statusFilters := parseFilterValues(query["status"])
	statuses := make([]domain.OrderStatus, 0, len(statusFilters))
	for _, raw := range statusFilters {
		statuses = append(statuses, domain.OrderStatus(raw))
	}

	var dateRange domain.RangeQuery[time.Time]
	var hasDateRange bool
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.From = &ts
		hasDateRange = true
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		dateRange.To = &ts
		hasDateRange = true
	}

	pageSize := defaultOrderPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultOrderPageSize
		case size > maxOrderPageSize:
			pageSize = maxOrderPageSize
		default:
			pageSize = size
		}
	}

	filter := services.OrderListFilter{
		Status: statuses,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	}
	if hasDateRange {
		filter.DateRange = dateRange
	}

	switch {
	case identity.HasRole(auth.RoleAdmin):
		filter.ClientID = strings.TrimSpace(query.Get("client_id"))
		filter.ProviderProfileID = strings.TrimSpace(query.Get("provider_profile_id"))
	case identity.HasRole(auth.RoleProvider):
		if h.profiles == nil {
			httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service unavailable", http.StatusServiceUnavailable))
			return
		}
		profile, err := h.profiles.GetByUser(ctx, identity.UID)
		if err != nil {
			if errors.Is(err, services.ErrProfileNotFound) {
				httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "provider profile not found", http.StatusNotFound))
				return
			}
			httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to resolve provider profile", http.StatusInternalServerError))
			return
		}
		filter.ProviderProfileID = profile.ID
	default:
		filter.ClientID = strings.TrimSpace(identity.UID)
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	response := orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	}
	writeJSONResponse(w, http.StatusOK, response)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	if !h.isOrderParticipant(ctx, identity, order) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) getOrderPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil || h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	if !h.isOrderParticipant(ctx, identity, order) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return
	}

	payment, err := h.payments.FindByOrder(ctx, orderID)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(payment)})
}

type lifecycleCall func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error)

// lifecycleAction wraps body-less lifecycle endpoints sharing the same shape.
func (h *OrderHandlers) lifecycleAction(call lifecycleCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.lifecycle == nil {
			httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
			return
		}

		identity, ok := requireIdentity(ctx, w)
		if !ok {
			return
		}

		orderID, ok := requireOrderID(ctx, w, r)
		if !ok {
			return
		}

		order, err := call(ctx, orderID, actorFromIdentity(identity))
		if err != nil {
			writeOrderError(ctx, w, err)
			return
		}

		writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
	}
}

func (h *OrderHandlers) submitHours(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req submitHoursRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.SubmitHours(ctx, services.SubmitHoursCommand{
		OrderID:       orderID,
		Actor:         actorFromIdentity(identity),
		Hours:         req.Hours,
		WorkProofURLs: cloneStringSlice(req.WorkProofURLs),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) submitQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req submitQuoteRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.SubmitQuote(ctx, services.SubmitQuoteCommand{
		OrderID:     orderID,
		Actor:       actorFromIdentity(identity),
		AmountMinor: req.Amount,
		Message:     strings.TrimSpace(req.Message),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) submitCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req submitCompletionRequest
	if !decodeOptionalJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.SubmitCompletion(ctx, services.SubmitCompletionCommand{
		OrderID:       orderID,
		Actor:         actorFromIdentity(identity),
		WorkProofURLs: cloneStringSlice(req.WorkProofURLs),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) approveHours(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req approveHoursRequest
	if !decodeOptionalJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.ApproveHours(ctx, services.ApproveHoursCommand{
		OrderID: orderID,
		Actor:   actorFromIdentity(identity),
		Hours:   cloneFloatPointer(req.Hours),
		Method:  services.ApprovalMethod(strings.TrimSpace(req.Method)),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) openDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req openDisputeRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.OpenDispute(ctx, services.OpenDisputeCommand{
		OrderID: orderID,
		Actor:   actorFromIdentity(identity),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if !decodeOptionalJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.lifecycle.Cancel(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		Actor:   actorFromIdentity(identity),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) finalizeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.finalization == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req finalizeOrderRequest
	if !decodeOptionalJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.finalization.Finalize(ctx, services.FinalizeOrderCommand{
		OrderID:       orderID,
		Actor:         actorFromIdentity(identity),
		ApprovedHours: cloneFloatPointer(req.ApprovedHours),
		Method:        services.ApprovalMethod(strings.TrimSpace(req.Method)),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

// isOrderParticipant reports whether the identity belongs to the order's
// client or assigned provider. Admin sees everything.
func (h *OrderHandlers) isOrderParticipant(ctx context.Context, identity *auth.Identity, order services.Order) bool {
	if identity == nil {
		return false
	}
	if identity.HasRole(auth.RoleAdmin) {
		return true
	}
	uid := strings.TrimSpace(identity.UID)
	if uid == "" {
		return false
	}
	if order.ClientID == uid {
		return true
	}
	if h.profiles == nil || order.ProviderProfileID == nil {
		return false
	}
	profile, err := h.profiles.GetByUser(ctx, uid)
	if err != nil {
		return false
	}
	return profile.ID == *order.ProviderProfileID
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func requireOrderID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

// decodeJSONBody reads a required JSON body into dst.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

// decodeOptionalJSONBody tolerates an absent body and leaves dst zero-valued.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyBody):
			return true
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return false
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return false
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	DisplayCode string `json:"display_code"`
	Status      string `json:"status"`
	PricingMode string `json:"pricing_mode"`
	Currency    string `json:"currency"`
	Total       int64  `json:"total,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID                string                `json:"id"`
	DisplayCode       string                `json:"display_code"`
	ClientID          string                `json:"client_id"`
	ProviderProfileID string                `json:"provider_profile_id,omitempty"`
	CategoryID        string                `json:"category_id"`
	SubcategoryID     *string               `json:"subcategory_id,omitempty"`
	Category          orderCategoryPayload  `json:"category"`
	Window            *serviceWindowPayload `json:"window,omitempty"`
	Address           addressPayload        `json:"address"`
	Description       string                `json:"description,omitempty"`
	Status            string                `json:"status"`
	PricingMode       string                `json:"pricing_mode"`
	HourlyRate        int64                 `json:"hourly_rate,omitempty"`
	EstimatedHours    *float64              `json:"estimated_hours,omitempty"`
	FinalHours        *float64              `json:"final_hours,omitempty"`
	ApprovedHours     *float64              `json:"approved_hours,omitempty"`
	ApprovalMethod    string                `json:"approval_method,omitempty"`
	Quote             *orderQuotePayload    `json:"quote,omitempty"`
	Currency          string                `json:"currency"`
	Totals            *orderTotalsPayload   `json:"totals,omitempty"`
	Dispute           *orderDisputePayload  `json:"dispute,omitempty"`
	FirstOrder        bool                  `json:"first_order,omitempty"`
	WorkProofURLs     []string              `json:"work_proof_urls,omitempty"`
	CancelReason      *string               `json:"cancel_reason,omitempty"`
	AcceptedAt        string                `json:"accepted_at,omitempty"`
	ConfirmedAt       string                `json:"confirmed_at,omitempty"`
	StartedAt         string                `json:"started_at,omitempty"`
	ArrivedAt         string                `json:"arrived_at,omitempty"`
	SubmittedAt       string                `json:"submitted_at,omitempty"`
	CompletedAt       string                `json:"completed_at,omitempty"`
	PaidAt            string                `json:"paid_at,omitempty"`
	CanceledAt        string                `json:"canceled_at,omitempty"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at,omitempty"`
}

type orderCategoryPayload struct {
	Name        string `json:"name"`
	PricingMode string `json:"pricing_mode"`
	HourlyRate  int64  `json:"hourly_rate,omitempty"`
}

type serviceWindowPayload struct {
	StartAt string `json:"start_at,omitempty"`
	EndAt   string `json:"end_at,omitempty"`
}

type addressPayload struct {
	Line1      string           `json:"line1"`
	Line2      *string          `json:"line2,omitempty"`
	City       string           `json:"city"`
	PostalCode string           `json:"postal_code"`
	Country    string           `json:"country"`
	Location   *geoPointPayload `json:"location,omitempty"`
}

type geoPointPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type orderQuotePayload struct {
	Amount     int64  `json:"amount"`
	Message    string `json:"message,omitempty"`
	QuotedAt   string `json:"quoted_at,omitempty"`
	AcceptedAt string `json:"accepted_at,omitempty"`
}

type orderTotalsPayload struct {
	Subtotal    int64   `json:"subtotal"`
	PlatformFee int64   `json:"platform_fee"`
	Tax         int64   `json:"tax"`
	Total       int64   `json:"total"`
	TaxScheme   string  `json:"tax_scheme,omitempty"`
	TaxRate     float64 `json:"tax_rate,omitempty"`
	TaxRegion   string  `json:"tax_region,omitempty"`
	ComputedAt  string  `json:"computed_at,omitempty"`
}

type orderDisputePayload struct {
	Status   string `json:"status"`
	Reason   string `json:"reason"`
	OpenedBy string `json:"opened_by"`
	OpenedAt string `json:"opened_at,omitempty"`
}

type paymentResponse struct {
	Payment paymentPayload `json:"payment"`
}

type paymentPayload struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CapturedAt string `json:"captured_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	summary := orderSummaryPayload{
		ID:          strings.TrimSpace(order.ID),
		DisplayCode: strings.TrimSpace(order.DisplayCode),
		Status:      strings.TrimSpace(string(order.Status)),
		PricingMode: strings.TrimSpace(string(order.PricingMode)),
		Currency:    strings.ToUpper(strings.TrimSpace(order.Currency)),
		CreatedAt:   formatTime(order.CreatedAt),
	}
	if order.Totals != nil {
		summary.Total = order.Totals.Total
	}
	return summary
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:             strings.TrimSpace(order.ID),
		DisplayCode:    strings.TrimSpace(order.DisplayCode),
		ClientID:       strings.TrimSpace(order.ClientID),
		CategoryID:     strings.TrimSpace(order.CategoryID),
		SubcategoryID:  cloneStringPointer(order.SubcategoryID),
		Description:    strings.TrimSpace(order.Description),
		Status:         strings.TrimSpace(string(order.Status)),
		PricingMode:    strings.TrimSpace(string(order.PricingMode)),
		HourlyRate:     order.HourlyRateMinor,
		EstimatedHours: cloneFloatPointer(order.EstimatedHours),
		FinalHours:     cloneFloatPointer(order.FinalHours),
		ApprovedHours:  cloneFloatPointer(order.ApprovedHours),
		ApprovalMethod: strings.TrimSpace(string(order.ApprovalMethod)),
		Currency:       strings.ToUpper(strings.TrimSpace(order.Currency)),
		FirstOrder:     order.FirstOrder,
		WorkProofURLs:  cloneStringSlice(order.WorkProofURLs),
		CancelReason:   cloneStringPointer(order.CancelReason),
		Category: orderCategoryPayload{
			Name:        strings.TrimSpace(order.Category.Name),
			PricingMode: strings.TrimSpace(string(order.Category.PricingMode)),
			HourlyRate:  order.Category.HourlyRateMinor,
		},
		Address:     buildAddressPayload(order.Address),
		AcceptedAt:  formatTime(pointerTime(order.AcceptedAt)),
		ConfirmedAt: formatTime(pointerTime(order.ConfirmedAt)),
		StartedAt:   formatTime(pointerTime(order.StartedAt)),
		ArrivedAt:   formatTime(pointerTime(order.ArrivedAt)),
		SubmittedAt: formatTime(pointerTime(order.SubmittedAt)),
		CompletedAt: formatTime(pointerTime(order.CompletedAt)),
		PaidAt:      formatTime(pointerTime(order.PaidAt)),
		CanceledAt:  formatTime(pointerTime(order.CanceledAt)),
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}

	if order.ProviderProfileID != nil {
		payload.ProviderProfileID = strings.TrimSpace(*order.ProviderProfileID)
	}

	if order.Window.StartAt != nil || order.Window.EndAt != nil {
		payload.Window = &serviceWindowPayload{
			StartAt: formatTime(pointerTime(order.Window.StartAt)),
			EndAt:   formatTime(pointerTime(order.Window.EndAt)),
		}
	}

	if order.QuoteAmountMinor != nil {
		quote := &orderQuotePayload{
			Amount:     *order.QuoteAmountMinor,
			QuotedAt:   formatTime(pointerTime(order.QuotedAt)),
			AcceptedAt: formatTime(pointerTime(order.QuoteAcceptedAt)),
		}
		if order.QuoteMessage != nil {
			quote.Message = strings.TrimSpace(*order.QuoteMessage)
		}
		payload.Quote = quote
	}

	if order.Totals != nil {
		payload.Totals = &orderTotalsPayload{
			Subtotal:    order.Totals.Subtotal,
			PlatformFee: order.Totals.PlatformFee,
			Tax:         order.Totals.Tax,
			Total:       order.Totals.Total,
			TaxScheme:   strings.TrimSpace(order.Totals.TaxScheme),
			TaxRate:     order.Totals.TaxRate,
			TaxRegion:   strings.TrimSpace(order.Totals.TaxRegion),
			ComputedAt:  formatTime(order.Totals.ComputedAt),
		}
	}

	if order.Dispute != nil {
		payload.Dispute = &orderDisputePayload{
			Status:   strings.TrimSpace(string(order.Dispute.Status)),
			Reason:   strings.TrimSpace(order.Dispute.Reason),
			OpenedBy: strings.TrimSpace(order.Dispute.OpenedBy),
			OpenedAt: formatTime(order.Dispute.OpenedAt),
		}
	}

	return payload
}

func buildAddressPayload(addr services.Address) addressPayload {
	payload := addressPayload{
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      cloneStringPointer(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}
	if addr.Location != nil {
		payload.Location = &geoPointPayload{
			Latitude:  addr.Location.Latitude,
			Longitude: addr.Location.Longitude,
		}
	}
	return payload
}

func buildPaymentPayload(payment services.Payment) paymentPayload {
	return paymentPayload{
		ID:         strings.TrimSpace(payment.ID),
		OrderID:    strings.TrimSpace(payment.OrderID),
		Provider:   strings.TrimSpace(payment.Provider),
		Status:     strings.TrimSpace(string(payment.Status)),
		Amount:     payment.Amount,
		Currency:   strings.ToUpper(strings.TrimSpace(payment.Currency)),
		CapturedAt: formatTime(pointerTime(payment.CapturedAt)),
		CreatedAt:  formatTime(payment.CreatedAt),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentNotAuthorized):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_authorized", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrAlreadyFinalized):
		httpx.WriteError(ctx, w, httpx.NewError("order_already_finalized", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCannotFinalize):
		httpx.WriteError(ctx, w, httpx.NewError("order_cannot_finalize", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("payment_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentCaptureFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_capture_failed", err.Error(), http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "failed to process payment request", http.StatusInternalServerError))
	}
}
