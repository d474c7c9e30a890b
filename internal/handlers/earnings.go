package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/auth"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/httpx"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

const (
	defaultEarningPageSize = 20
	maxEarningPageSize     = 100
)

// EarningHandlers exposes the provider earnings ledger to its owner.
type EarningHandlers struct {
	authn    *auth.Authenticator
	earnings services.EarningService
	profiles services.ProviderProfileService
}

// NewEarningHandlers constructs a new EarningHandlers instance.
func NewEarningHandlers(authn *auth.Authenticator, earnings services.EarningService, profiles services.ProviderProfileService) *EarningHandlers {
	return &EarningHandlers{
		authn:    authn,
		earnings: earnings,
		profiles: profiles,
	}
}

// Routes registers the /earnings endpoints.
func (h *EarningHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireIdentity(auth.RoleProvider, auth.RoleAdmin))
	}
	r.Get("/", h.listEarnings)
	r.Get("/orders/{orderID}", h.getOrderEarning)
}

func (h *EarningHandlers) listEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.earnings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("earning_service_unavailable", "earning service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()

	pageSize := defaultEarningPageSize
	if sizeRaw := strings.TrimSpace(query.Get("page_size")); sizeRaw != "" {
		size, err := strconv.Atoi(sizeRaw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case size <= 0:
			pageSize = defaultEarningPageSize
		case size > maxEarningPageSize:
			pageSize = maxEarningPageSize
		default:
			pageSize = size
		}
	}

	profileID := ""
	if identity.HasRole(auth.RoleAdmin) {
		profileID = strings.TrimSpace(query.Get("provider_profile_id"))
	}
	if profileID == "" {
		profile, ok := h.resolveOwnProfile(ctx, w, identity)
		if !ok {
			return
		}
		profileID = profile.ID
	}

	page, err := h.earnings.ListByProvider(ctx, services.EarningListFilter{
		ProviderProfileID: profileID,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeEarningError(ctx, w, err)
		return
	}

	items := make([]earningPayload, 0, len(page.Items))
	for _, earning := range page.Items {
		items = append(items, buildEarningPayload(earning))
	}

	writeJSONResponse(w, http.StatusOK, earningListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *EarningHandlers) getOrderEarning(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.earnings == nil {
		httpx.WriteError(ctx, w, httpx.NewError("earning_service_unavailable", "earning service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	earning, err := h.earnings.GetByOrder(ctx, orderID)
	if err != nil {
		writeEarningError(ctx, w, err)
		return
	}

	if !identity.HasRole(auth.RoleAdmin) {
		profile, ok := h.resolveOwnProfile(ctx, w, identity)
		if !ok {
			return
		}
		if profile.ID != earning.ProviderProfileID {
			httpx.WriteError(ctx, w, httpx.NewError("earning_not_found", "earning not found", http.StatusNotFound))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, earningResponse{Earning: buildEarningPayload(earning)})
}

// resolveOwnProfile maps the identity to its provider profile, writing the
// error response when the lookup fails.
func (h *EarningHandlers) resolveOwnProfile(ctx context.Context, w http.ResponseWriter, identity *auth.Identity) (services.ProviderProfile, bool) {
	if h.profiles == nil {
		httpx.WriteError(ctx, w, httpx.NewError("profile_service_unavailable", "profile service unavailable", http.StatusServiceUnavailable))
		return services.ProviderProfile{}, false
	}
	profile, err := h.profiles.GetByUser(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("profile_not_found", "provider profile not found", http.StatusNotFound))
			return services.ProviderProfile{}, false
		}
		httpx.WriteError(ctx, w, httpx.NewError("earning_error", "failed to resolve provider profile", http.StatusInternalServerError))
		return services.ProviderProfile{}, false
	}
	return profile, true
}

type earningListResponse struct {
	Items         []earningPayload `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type earningResponse struct {
	Earning earningPayload `json:"earning"`
}

type earningPayload struct {
	ID                string `json:"id"`
	ProviderProfileID string `json:"provider_profile_id"`
	OrderID           string `json:"order_id"`
	GrossAmount       int64  `json:"gross_amount"`
	FeeAmount         int64  `json:"fee_amount"`
	NetAmount         int64  `json:"net_amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	AvailableAt       string `json:"available_at"`
	CreatedAt         string `json:"created_at"`
}

func buildEarningPayload(earning services.Earning) earningPayload {
	return earningPayload{
		ID:                strings.TrimSpace(earning.ID),
		ProviderProfileID: strings.TrimSpace(earning.ProviderProfileID),
		OrderID:           strings.TrimSpace(earning.OrderID),
		GrossAmount:       earning.GrossAmountMinor,
		FeeAmount:         earning.FeeAmountMinor,
		NetAmount:         earning.NetAmountMinor,
		Currency:          strings.ToUpper(strings.TrimSpace(earning.Currency)),
		Status:            strings.TrimSpace(string(earning.Status)),
		AvailableAt:       formatTime(earning.AvailableAt),
		CreatedAt:         formatTime(earning.CreatedAt),
	}
}

func writeEarningError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrEarningInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEarningNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("earning_not_found", "earning not found", http.StatusNotFound))
	case errors.Is(err, services.ErrEarningConflict):
		httpx.WriteError(ctx, w, httpx.NewError("earning_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("earning_error", "failed to process earning request", http.StatusInternalServerError))
	}
}
