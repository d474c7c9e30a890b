package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/auth"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

type stubEarningService struct {
	createFn func(context.Context, services.CreateEarningCommand) (services.Earning, error)
	getFn    func(context.Context, string) (services.Earning, error)
	listFn   func(context.Context, services.EarningListFilter) (domain.CursorPage[services.Earning], error)
}

func (s *stubEarningService) CreateForOrder(ctx context.Context, cmd services.CreateEarningCommand) (services.Earning, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Earning{}, errors.New("not implemented")
}

func (s *stubEarningService) GetByOrder(ctx context.Context, orderID string) (services.Earning, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.Earning{}, errors.New("not implemented")
}

func (s *stubEarningService) ListByProvider(ctx context.Context, filter services.EarningListFilter) (domain.CursorPage[services.Earning], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Earning]{}, nil
}

var _ services.EarningService = (*stubEarningService)(nil)

func newEarningRouter(h *EarningHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/earnings", h.Routes)
	return router
}

func testEarning(id, profileID, orderID string) services.Earning {
	created := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	return services.Earning{
		ID:                id,
		ProviderProfileID: profileID,
		OrderID:           orderID,
		GrossAmountMinor:  40260,
		FeeAmountMinor:    3660,
		NetAmountMinor:    36600,
		Currency:          "eur",
		Status:            domain.EarningStatusPending,
		AvailableAt:       created.Add(7 * 24 * time.Hour),
		CreatedAt:         created,
	}
}

func TestEarningHandlersListScopesToOwnProfile(t *testing.T) {
	var capturedFilter services.EarningListFilter
	earnings := &stubEarningService{
		listFn: func(ctx context.Context, filter services.EarningListFilter) (domain.CursorPage[services.Earning], error) {
			capturedFilter = filter
			return domain.CursorPage[services.Earning]{
				Items:         []services.Earning{testEarning("earn_1", "pp_1", "ord_1")},
				NextPageToken: "tok-next",
			}, nil
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

	handler := NewEarningHandlers(nil, earnings, profiles)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings?page_size=5&page_token=tok123", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedFilter.ProviderProfileID != "pp_1" {
		t.Fatalf("expected provider filter pp_1, got %s", capturedFilter.ProviderProfileID)
	}
	if capturedFilter.Pagination.PageSize != 5 || capturedFilter.Pagination.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %+v", capturedFilter.Pagination)
	}

	var resp earningListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 earning, got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.ID != "earn_1" || item.NetAmount != 36600 || item.Status != string(domain.EarningStatusPending) {
		t.Fatalf("unexpected earning payload: %#v", item)
	}
	if item.Currency != "EUR" {
		t.Fatalf("expected currency uppercased, got %s", item.Currency)
	}
	if resp.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %s", resp.NextPageToken)
	}
}

func TestEarningHandlersListAdminPassthrough(t *testing.T) {
	var capturedFilter services.EarningListFilter
	earnings := &stubEarningService{
		listFn: func(ctx context.Context, filter services.EarningListFilter) (domain.CursorPage[services.Earning], error) {
			capturedFilter = filter
			return domain.CursorPage[services.Earning]{}, nil
		},
	}

	handler := NewEarningHandlers(nil, earnings, nil)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings?provider_profile_id=pp_9", nil)
	req = withTestIdentity(req, "user_admin", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if capturedFilter.ProviderProfileID != "pp_9" {
		t.Fatalf("expected provider filter pp_9, got %s", capturedFilter.ProviderProfileID)
	}
}

func TestEarningHandlersListWithoutProfile(t *testing.T) {
	earnings := &stubEarningService{}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			return services.ProviderProfile{}, services.ErrProfileNotFound
		},
	}

	handler := NewEarningHandlers(nil, earnings, profiles)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestEarningHandlersListInvalidPageSize(t *testing.T) {
	handler := NewEarningHandlers(nil, &stubEarningService{}, nil)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings?page_size=abc", nil)
	req = withTestIdentity(req, "user_admin", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestEarningHandlersListServiceUnavailable(t *testing.T) {
	handler := NewEarningHandlers(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/earnings", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)
	rr := httptest.NewRecorder()

	handler.listEarnings(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestEarningHandlersGetOrderEarning(t *testing.T) {
	earnings := &stubEarningService{
		getFn: func(ctx context.Context, orderID string) (services.Earning, error) {
			if orderID != "ord_1" {
				t.Fatalf("unexpected order id %s", orderID)
			}
			return testEarning("earn_1", "pp_1", orderID), nil
		},
	}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			return services.ProviderProfile{ID: "pp_1", UserID: userID, Active: true}, nil
		},
	}

	handler := NewEarningHandlers(nil, earnings, profiles)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings/orders/ord_1", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp earningResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Earning.OrderID != "ord_1" || resp.Earning.GrossAmount != 40260 {
		t.Fatalf("unexpected earning payload: %#v", resp.Earning)
	}
	if resp.Earning.AvailableAt == "" {
		t.Fatalf("expected available_at to be populated")
	}
}

func TestEarningHandlersGetOrderEarningHidesOtherProviders(t *testing.T) {
	earnings := &stubEarningService{
		getFn: func(ctx context.Context, orderID string) (services.Earning, error) {
			return testEarning("earn_1", "pp_other", orderID), nil
		},
	}
	profiles := &stubProfileService{
		byUserFn: func(ctx context.Context, userID string) (services.ProviderProfile, error) {
			return services.ProviderProfile{ID: "pp_1", UserID: userID, Active: true}, nil
		},
	}

	handler := NewEarningHandlers(nil, earnings, profiles)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings/orders/ord_1", nil)
	req = withTestIdentity(req, "user_provider", auth.RoleProvider)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestEarningHandlersGetOrderEarningNotFound(t *testing.T) {
	earnings := &stubEarningService{
		getFn: func(ctx context.Context, orderID string) (services.Earning, error) {
			return services.Earning{}, services.ErrEarningNotFound
		},
	}

	handler := NewEarningHandlers(nil, earnings, nil)
	router := newEarningRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/earnings/orders/ord_missing", nil)
	req = withTestIdentity(req, "user_admin", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
