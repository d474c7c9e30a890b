package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/auth"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

type stubOrderService struct {
	createFn func(context.Context, services.CreateOrderCommand) (services.Order, error)
	getFn    func(context.Context, string) (services.Order, error)
	listFn   func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

type stubLifecycleService struct {
	acceptFn           func(context.Context, services.AcceptOrderCommand) (services.Order, error)
	confirmFn          func(context.Context, services.ConfirmOrderCommand) (services.Order, error)
	startFn            func(context.Context, services.StartOrderCommand) (services.Order, error)
	arriveFn           func(context.Context, services.MarkArrivedCommand) (services.Order, error)
	submitHoursFn      func(context.Context, services.SubmitHoursCommand) (services.Order, error)
	submitQuoteFn      func(context.Context, services.SubmitQuoteCommand) (services.Order, error)
	acceptQuoteFn      func(context.Context, services.AcceptQuoteCommand) (services.Order, error)
	submitCompletionFn func(context.Context, services.SubmitCompletionCommand) (services.Order, error)
	approveFn          func(context.Context, services.ApproveHoursCommand) (services.Order, error)
	disputeFn          func(context.Context, services.OpenDisputeCommand) (services.Order, error)
	cancelFn           func(context.Context, services.CancelOrderCommand) (services.Order, error)
}

func (s *stubLifecycleService) Accept(ctx context.Context, cmd services.AcceptOrderCommand) (services.Order, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Confirm(ctx context.Context, cmd services.ConfirmOrderCommand) (services.Order, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Start(ctx context.Context, cmd services.StartOrderCommand) (services.Order, error) {
	if s.startFn != nil {
		return s.startFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) MarkArrived(ctx context.Context, cmd services.MarkArrivedCommand) (services.Order, error) {
	if s.arriveFn != nil {
		return s.arriveFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) SubmitHours(ctx context.Context, cmd services.SubmitHoursCommand) (services.Order, error) {
	if s.submitHoursFn != nil {
		return s.submitHoursFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) SubmitQuote(ctx context.Context, cmd services.SubmitQuoteCommand) (services.Order, error) {
	if s.submitQuoteFn != nil {
		return s.submitQuoteFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) AcceptQuote(ctx context.Context, cmd services.AcceptQuoteCommand) (services.Order, error) {
	if s.acceptQuoteFn != nil {
		return s.acceptQuoteFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) SubmitCompletion(ctx context.Context, cmd services.SubmitCompletionCommand) (services.Order, error) {
	if s.submitCompletionFn != nil {
		return s.submitCompletionFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) ApproveHours(ctx context.Context, cmd services.ApproveHoursCommand) (services.Order, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) OpenDispute(ctx context.Context, cmd services.OpenDisputeCommand) (services.Order, error) {
	if s.disputeFn != nil {
		return s.disputeFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubLifecycleService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

type stubFinalizationService struct {
	finalizeFn func(context.Context, services.FinalizeOrderCommand) (services.Order, error)
}

func (s *stubFinalizationService) Finalize(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error) {
	if s.finalizeFn != nil {
		return s.finalizeFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

type stubPaymentReadService struct {
	findFn    func(context.Context, string) (services.Payment, error)
	captureFn func(context.Context, services.CapturePaymentCommand) (services.Payment, error)
}

func (s *stubPaymentReadService) FindByOrder(ctx context.Context, orderID string) (services.Payment, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return services.Payment{}, services.ErrPaymentNotFound
}

func (s *stubPaymentReadService) Capture(ctx context.Context, cmd services.CapturePaymentCommand) (services.Payment, error) {
	if s.captureFn != nil {
		return s.captureFn(ctx, cmd)
	}
	return services.Payment{}, errors.New("not implemented")
}

type stubProfileService struct {
	byUserFn func(context.Context, string) (services.ProviderProfile, error)
	byIDFn   func(context.Context, string) (services.ProviderProfile, error)
}

func (s *stubProfileService) GetByUser(ctx context.Context, userID string) (services.ProviderProfile, error) {
	if s.byUserFn != nil {
		return s.byUserFn(ctx, userID)
	}
	return services.ProviderProfile{}, services.ErrProfileNotFound
}

func (s *stubProfileService) GetByID(ctx context.Context, profileID string) (services.ProviderProfile, error) {
	if s.byIDFn != nil {
		return s.byIDFn(ctx, profileID)
	}
	return services.ProviderProfile{}, services.ErrProfileNotFound
}

func newOrderRouter(h *OrderHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/orders", h.Routes)
	return router
}

func withTestIdentity(req *http.Request, uid string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleClient}
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func TestOrderHandlersCreateOrderSuccess(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var captured services.CreateOrderCommand

	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{
				ID:          "ord_1",
				DisplayCode: "EY-00001",
				ClientID:    cmd.ClientID,
				CategoryID:  cmd.CategoryID,
				Status:      domain.OrderStatusPendingConfirmation,
				PricingMode: domain.PricingModeHourly,
				Currency:    "eur",
				CreatedAt:   now,
			}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	body := `{
		"provider_profile_id": "pp_1",
		"category_id": "cat_cleaning",
		"window": {"start_at": "2024-03-04T09:00:00Z", "end_at": "2024-03-04T12:00:00Z"},
		"address": {"line1": "Calle Mayor 1", "city": "Madrid", "postal_code": "28013", "country": "es", "location": {"latitude": 40.4168, "longitude": -3.7038}},
		"description": "Deep clean",
		"estimated_hours": 3
	}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.ClientID != "user_client" {
		t.Fatalf("expected client user_client, got %s", captured.ClientID)
	}
	if captured.ProviderProfileID != "pp_1" {
		t.Fatalf("expected provider profile pp_1, got %s", captured.ProviderProfileID)
	}
	if captured.CategoryID != "cat_cleaning" {
		t.Fatalf("expected category cat_cleaning, got %s", captured.CategoryID)
	}
	if captured.Window.StartAt == nil || !captured.Window.StartAt.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start: %#v", captured.Window.StartAt)
	}
	if captured.Address.Country != "ES" {
		t.Fatalf("expected country uppercased, got %s", captured.Address.Country)
	}
	if captured.Address.Location == nil || captured.Address.Location.Latitude != 40.4168 {
		t.Fatalf("expected location preserved, got %#v", captured.Address.Location)
	}
	if captured.EstimatedHours == nil || *captured.EstimatedHours != 3 {
		t.Fatalf("expected estimated hours 3, got %#v", captured.EstimatedHours)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.ID != "ord_1" || resp.Order.DisplayCode != "EY-00001" {
		t.Fatalf("unexpected order payload: %#v", resp.Order)
	}
	if resp.Order.Currency != "EUR" {
		t.Fatalf("expected currency uppercased, got %s", resp.Order.Currency)
	}
}

func TestOrderHandlersCreateOrderMapsInvalidInput(t *testing.T) {
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidInput
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"category_id":"cat_x"}`))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersCreateOrderInvalidWindowTimestamp(t *testing.T) {
	var createCalled bool
	service := &stubOrderService{
		createFn: func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			createCalled = true
			return services.Order{}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"category_id":"cat_x","window":{"start_at":"not-a-date"}}`))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if createCalled {
		t.Fatalf("expected to reject before calling the service")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrdersFiltersToClient(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	var capturedFilter services.OrderListFilter
	total := int64(13505)

	service := &stubOrderService{
		listFn: func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			capturedFilter = filter
			return domain.CursorPage[services.Order]{
				Items: []services.Order{
					{
						ID:          "ord_123",
						DisplayCode: "EY-0001A",
						ClientID:    "user_client",
						Status:      domain.OrderStatusCompleted,
						PricingMode: domain.PricingModeHourly,
						Currency:    "eur",
						Totals:      &domain.OrderTotals{Total: total},
						CreatedAt:   now,
					},
				},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=completed,paid&page_size=10&page_token=tok123&created_after=2024-03-01T00:00:00Z", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if capturedFilter.ClientID != "user_client" {
		t.Fatalf("expected client filter user_client, got %s", capturedFilter.ClientID)
	}
	if capturedFilter.ProviderProfileID != "" {
		t.Fatalf("expected no provider filter, got %s", capturedFilter.ProviderProfileID)
	}
	if len(capturedFilter.Status) != 2 {
		t.Fatalf("expected 2 status filters, got %d", len(capturedFilter.Status))
	}
	if capturedFilter.Pagination.PageSize != 10 || capturedFilter.Pagination.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %+v", capturedFilter.Pagination)
	}
	if capturedFilter.DateRange.From == nil {
		t.Fatalf("expected date range from to be set")
	}

	var resp orderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp.Items))
	}
	if resp.Items[0].DisplayCode != "EY-0001A" || resp.Items[0].Total != total {
		t.Fatalf("unexpected summary: %#v", resp.Items[0])
	}
	if resp.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %s", resp.NextPageToken)
	}
}

func TestOrderHandlersListOrdersResolvesProviderProfile(t *testing.T) {
	var capturedFilter services.OrderListFilter
	service := &stubOrderService{
		listFn: func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			capturedFilter = filter
			return domain.CursorPage[services.Order]{}, nil
		},
	}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			if userID != "user_provider" {
				return services.ProviderProfile{}, services.ErrProfileNotFound
			}
			return services.ProviderProfile{ID: "pp_1", UserID: "user_provider", Active: true}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, profiles)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedFilter.ProviderProfileID != "pp_1" {
		t.Fatalf("expected provider filter pp_1, got %s", capturedFilter.ProviderProfileID)
	}
	if capturedFilter.ClientID != "" {
		t.Fatalf("expected no client filter, got %s", capturedFilter.ClientID)
	}
}

func TestOrderHandlersListOrdersAdminPassthrough(t *testing.T) {
	var capturedFilter services.OrderListFilter
	service := &stubOrderService{
		listFn: func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			capturedFilter = filter
			return domain.CursorPage[services.Order]{}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders?client_id=user_a&provider_profile_id=pp_9", nil)
	req = withTestIdentity(req, "user_admin", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedFilter.ClientID != "user_a" || capturedFilter.ProviderProfileID != "pp_9" {
		t.Fatalf("unexpected filter: %+v", capturedFilter)
	}
}

func TestOrderHandlersListOrdersUnauthenticated(t *testing.T) {
	handler := NewOrderHandlers(nil, &stubOrderService{}, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rr := httptest.NewRecorder()
	handler.listOrders(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrdersServiceUnavailable(t *testing.T) {
	handler := NewOrderHandlers(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = withTestIdentity(req, "user_client")
	rr := httptest.NewRecorder()

	handler.listOrders(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderSuccess(t *testing.T) {
	now := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	quoteAmount := int64(50000)
	profileID := "pp_1"

	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			if orderID != "ord_123" {
				t.Fatalf("unexpected order id %s", orderID)
			}
			return services.Order{
				ID:                "ord_123",
				DisplayCode:       "EY-00042",
				ClientID:          "user_client",
				ProviderProfileID: &profileID,
				CategoryID:        "cat_paint",
				Category: domain.CategorySnapshot{
					Name:        "Painting",
					PricingMode: domain.PricingModeFixed,
				},
				Address: domain.Address{
					Line1:      "Calle Mayor 1",
					City:       "Madrid",
					PostalCode: "28013",
					Country:    "ES",
				},
				Status:           domain.OrderStatusCompleted,
				PricingMode:      domain.PricingModeFixed,
				QuoteAmountMinor: &quoteAmount,
				Currency:         "eur",
				Totals: &domain.OrderTotals{
					Subtotal:    55000,
					PlatformFee: 5000,
					Tax:         12100,
					Total:       67100,
					TaxScheme:   "vat",
					TaxRate:     0.22,
					ComputedAt:  now,
				},
				CompletedAt: &now,
				CreatedAt:   now.Add(-72 * time.Hour),
				UpdatedAt:   now,
			}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_123", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	payload := resp.Order
	if payload.ID != "ord_123" || payload.DisplayCode != "EY-00042" {
		t.Fatalf("unexpected order payload: %#v", payload)
	}
	if payload.ProviderProfileID != "pp_1" {
		t.Fatalf("expected provider profile pp_1, got %s", payload.ProviderProfileID)
	}
	if payload.Quote == nil || payload.Quote.Amount != 50000 {
		t.Fatalf("expected quote payload, got %#v", payload.Quote)
	}
	if payload.Totals == nil || payload.Totals.Total != 67100 || payload.Totals.Tax != 12100 {
		t.Fatalf("unexpected totals: %#v", payload.Totals)
	}
	if payload.Address.City != "Madrid" {
		t.Fatalf("expected address city Madrid, got %s", payload.Address.City)
	}
	if payload.CompletedAt == "" {
		t.Fatalf("expected completed_at to be populated")
	}
}

func TestOrderHandlersGetOrderHidesFromStrangers(t *testing.T) {
	profileID := "pp_1"
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{
				ID:                orderID,
				ClientID:          "someone_else",
				ProviderProfileID: &profileID,
			}, nil
		},
	}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			return services.ProviderProfile{}, services.ErrProfileNotFound
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, profiles)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_456", nil)
	req = withTestIdentity(req, "user_stranger")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderAllowsAssignedProvider(t *testing.T) {
	profileID := "pp_1"
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{
				ID:                orderID,
				ClientID:          "user_client",
				ProviderProfileID: &profileID,
			}, nil
		},
	}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			return services.ProviderProfile{ID: "pp_1", UserID: userID, Active: true}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, profiles)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_456", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersAcceptRoute(t *testing.T) {
	var captured services.AcceptOrderCommand
	lifecycle := &stubLifecycleService{
		acceptFn: func(ctx context.Context, cmd services.AcceptOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusAccepted}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:accept", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" {
		t.Fatalf("expected order ord_1, got %s", captured.OrderID)
	}
	if captured.Actor.ID != "user_provider" || !captured.Actor.HasRole(services.RoleProvider) {
		t.Fatalf("unexpected actor: %+v", captured.Actor)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Status != string(domain.OrderStatusAccepted) {
		t.Fatalf("expected status accepted, got %s", resp.Order.Status)
	}
}

func TestOrderHandlersAcceptMapsTransitionConflict(t *testing.T) {
	lifecycle := &stubLifecycleService{
		acceptFn: func(ctx context.Context, cmd services.AcceptOrderCommand) (services.Order, error) {
			return services.Order{}, &services.InvalidTransitionError{
				Current: domain.OrderStatusConfirmed,
				Target:  domain.OrderStatusAccepted,
			}
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:accept", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersAcceptMapsUnauthorized(t *testing.T) {
	lifecycle := &stubLifecycleService{
		acceptFn: func(ctx context.Context, cmd services.AcceptOrderCommand) (services.Order, error) {
			return services.Order{}, &services.UnauthorizedError{Action: "order.accept", Reason: "provider role required"}
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:accept", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOrderHandlersConfirmMapsPaymentNotAuthorized(t *testing.T) {
	lifecycle := &stubLifecycleService{
		confirmFn: func(ctx context.Context, cmd services.ConfirmOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrPaymentNotAuthorized
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:confirm", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersSubmitHours(t *testing.T) {
	var captured services.SubmitHoursCommand
	lifecycle := &stubLifecycleService{
		submitHoursFn: func(ctx context.Context, cmd services.SubmitHoursCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusAwaitingApproval}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	body := `{"hours": 3.5, "work_proof_urls": ["https://cdn.example.com/p1.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:submit-hours", bytes.NewBufferString(body))
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Hours != 3.5 {
		t.Fatalf("expected hours 3.5, got %v", captured.Hours)
	}
	if len(captured.WorkProofURLs) != 1 {
		t.Fatalf("expected 1 proof url, got %v", captured.WorkProofURLs)
	}
}

func TestOrderHandlersSubmitHoursRequiresBody(t *testing.T) {
	handler := NewOrderHandlers(nil, nil, &stubLifecycleService{}, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:submit-hours", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersSubmitQuote(t *testing.T) {
	var captured services.SubmitQuoteCommand
	lifecycle := &stubLifecycleService{
		submitQuoteFn: func(ctx context.Context, cmd services.SubmitQuoteCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusInProgress}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:submit-quote", strings.NewReader(`{"amount": 50000, "message": " Full repaint "}`))
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.AmountMinor != 50000 {
		t.Fatalf("expected amount 50000, got %d", captured.AmountMinor)
	}
	if captured.Message != "Full repaint" {
		t.Fatalf("expected trimmed message, got %q", captured.Message)
	}
}

func TestOrderHandlersApproveHoursWithoutBody(t *testing.T) {
	var captured services.ApproveHoursCommand
	lifecycle := &stubLifecycleService{
		approveFn: func(ctx context.Context, cmd services.ApproveHoursCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusAwaitingApproval}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:approve", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Hours != nil {
		t.Fatalf("expected no hours override, got %v", *captured.Hours)
	}
	if captured.Method != "" {
		t.Fatalf("expected empty method, got %s", captured.Method)
	}
}

func TestOrderHandlersApproveHoursWithOverride(t *testing.T) {
	var captured services.ApproveHoursCommand
	lifecycle := &stubLifecycleService{
		approveFn: func(ctx context.Context, cmd services.ApproveHoursCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:approve", strings.NewReader(`{"hours": 2.5, "method": "client_manual"}`))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Hours == nil || *captured.Hours != 2.5 {
		t.Fatalf("expected hours override 2.5, got %#v", captured.Hours)
	}
	if captured.Method != domain.ApprovalMethodClientManual {
		t.Fatalf("expected method client_manual, got %s", captured.Method)
	}
}

func TestOrderHandlersOpenDisputeRequiresReason(t *testing.T) {
	lifecycle := &stubLifecycleService{
		disputeFn: func(ctx context.Context, cmd services.OpenDisputeCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidInput
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:dispute", strings.NewReader(`{"reason": ""}`))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelWithoutBody(t *testing.T) {
	var captured services.CancelOrderCommand
	lifecycle := &stubLifecycleService{
		cancelFn: func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: domain.OrderStatusCanceled}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, lifecycle, nil, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:cancel", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Reason != "" {
		t.Fatalf("expected empty reason, got %q", captured.Reason)
	}
}

func TestOrderHandlersFinalizeMapsAlreadyFinalized(t *testing.T) {
	finalization := &stubFinalizationService{
		finalizeFn: func(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrAlreadyFinalized
		},
	}

	handler := NewOrderHandlers(nil, nil, nil, finalization, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:finalize", nil)
	req = withTestIdentity(req, "user_admin", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersFinalizeSuccess(t *testing.T) {
	now := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	var captured services.FinalizeOrderCommand
	finalization := &stubFinalizationService{
		finalizeFn: func(ctx context.Context, cmd services.FinalizeOrderCommand) (services.Order, error) {
			captured = cmd
			return services.Order{
				ID:          cmd.OrderID,
				Status:      domain.OrderStatusCompleted,
				Totals:      &domain.OrderTotals{Total: 40260, ComputedAt: now},
				CompletedAt: &now,
			}, nil
		},
	}

	handler := NewOrderHandlers(nil, nil, nil, finalization, nil, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:finalize", strings.NewReader(`{"approved_hours": 3}`))
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ApprovedHours == nil || *captured.ApprovedHours != 3 {
		t.Fatalf("expected approved hours 3, got %#v", captured.ApprovedHours)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Totals == nil || resp.Order.Totals.Total != 40260 {
		t.Fatalf("expected total 40260, got %#v", resp.Order.Totals)
	}
}

func TestOrderHandlersGetOrderPayment(t *testing.T) {
	now := time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{ID: orderID, ClientID: "user_client"}, nil
		},
	}
	payments := &stubPaymentReadService{
		findFn: func(ctx context.Context, orderID string) (services.Payment, error) {
			return services.Payment{
				ID:        "pay_1",
				OrderID:   orderID,
				Provider:  "stripe",
				Status:    domain.PaymentStatusAuthorized,
				Amount:    40260,
				Currency:  "eur",
				CreatedAt: now,
			}, nil
		},
	}

	handler := NewOrderHandlers(nil, service, nil, nil, payments, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_1/payment", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp paymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Payment.ID != "pay_1" || resp.Payment.Status != string(domain.PaymentStatusAuthorized) {
		t.Fatalf("unexpected payment payload: %#v", resp.Payment)
	}
	if resp.Payment.Currency != "EUR" {
		t.Fatalf("expected currency uppercased, got %s", resp.Payment.Currency)
	}
}

func TestOrderHandlersGetOrderPaymentNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string) (services.Order, error) {
			return services.Order{ID: orderID, ClientID: "user_client"}, nil
		},
	}
	payments := &stubPaymentReadService{}

	handler := NewOrderHandlers(nil, service, nil, nil, payments, nil)
	router := newOrderRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_1/payment", nil)
	req = withTestIdentity(req, "user_client")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
