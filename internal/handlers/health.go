package handlers

import (
	"net/http"
	"time"

	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	build  services.BuildInfo
	system services.SystemService
	clock  func() time.Time
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo attaches build metadata to probe responses.
func WithHealthBuildInfo(build services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthSystemService wires the dependency health source used by /readyz.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthClock injects a custom clock primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs probe handlers with the provided options.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type healthCheckPayload struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readyzResponse struct {
	Status  string                        `json:"status"`
	Checks  map[string]healthCheckPayload `json:"checks"`
	Details []string                      `json:"details,omitempty"`
}

// Healthz reports process liveness with build metadata. It never touches
// downstream dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()

	payload := map[string]any{
		"status":    services.HealthStatusOK,
		"uptime":    now.Sub(h.build.StartedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz reports dependency health. A failing dependency turns the probe into
// a 503 so the instance is pulled out of rotation.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, readyzResponse{
			Status: services.HealthStatusOK,
			Checks: map[string]healthCheckPayload{},
		})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readyzResponse{
			Status:  services.HealthStatusError,
			Checks:  map[string]healthCheckPayload{},
			Details: []string{err.Error()},
		})
		return
	}

	response := readyzResponse{
		Status: report.Status,
		Checks: make(map[string]healthCheckPayload, len(report.Checks)),
	}
	for name, check := range report.Checks {
		response.Checks[name] = healthCheckPayload{
			Status: check.Status,
			Error:  check.Error,
		}
		if check.Status != services.HealthStatusOK {
			detail := name
			if check.Error != "" {
				detail = name + ": " + check.Error
			}
			response.Details = append(response.Details, detail)
		}
	}

	status := http.StatusOK
	if report.Status != services.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, response)
}
