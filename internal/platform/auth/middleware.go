package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	defaultActorHeader  = "X-Actor-Id"
	defaultRolesHeader  = "X-Actor-Roles"
	defaultLocaleHeader = "X-Actor-Locale"
	defaultFallbackRole = RoleClient
)

// Authenticator turns the gateway-resolved actor headers into an Identity and
// enforces role requirements. The gateway terminates real authentication; by
// the time a request reaches this service the headers are trusted.
type Authenticator struct {
	actorHeader  string
	rolesHeader  string
	localeHeader string

	fallbackRole string
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithActorHeader overrides the header carrying the actor identifier.
func WithActorHeader(name string) Option {
	return func(a *Authenticator) {
		name = strings.TrimSpace(name)
		if name != "" {
			a.actorHeader = name
		}
	}
}

// WithRolesHeader overrides the header carrying the comma-separated role list.
func WithRolesHeader(name string) Option {
	return func(a *Authenticator) {
		name = strings.TrimSpace(name)
		if name != "" {
			a.rolesHeader = name
		}
	}
}

// WithLocaleHeader overrides the header used to populate Identity.Locale.
func WithLocaleHeader(name string) Option {
	return func(a *Authenticator) {
		name = strings.TrimSpace(name)
		if name != "" {
			a.localeHeader = name
		}
	}
}

// WithFallbackRole sets the default role when the roles header is absent.
func WithFallbackRole(role string) Option {
	return func(a *Authenticator) {
		role = normaliseRole(role)
		if role != "" {
			a.fallbackRole = role
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(opts ...Option) *Authenticator {
	a := &Authenticator{
		actorHeader:  defaultActorHeader,
		rolesHeader:  defaultRolesHeader,
		localeHeader: defaultLocaleHeader,
		fallbackRole: defaultFallbackRole,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// RequireIdentity extracts the actor headers and ensures allowed roles.
func (a *Authenticator) RequireIdentity(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = normaliseRole(role)
		if role == "" {
			continue
		}
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "identity resolution unavailable")
				return
			}

			uid := strings.TrimSpace(r.Header.Get(a.actorHeader))
			if uid == "" {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "actor identity header missing")
				return
			}

			identity := &Identity{
				UID:    uid,
				Roles:  parseRoleList(r.Header.Get(a.rolesHeader)),
				Locale: strings.TrimSpace(r.Header.Get(a.localeHeader)),
			}

			if len(identity.Roles) == 0 && a.fallbackRole != "" {
				identity.Roles = []string{a.fallbackRole}
			}

			if len(identity.Roles) == 0 {
				respondAuthError(w, http.StatusUnauthorized, "missing_role", "no roles associated with identity")
				return
			}

			if len(allowed) > 0 && !hasAllowedRole(identity.Roles, allowed) {
				respondAuthError(w, http.StatusForbidden, "insufficient_role", "identity does not have required role")
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasAllowedRole(identityRoles []string, allowed map[string]struct{}) bool {
	for _, role := range identityRoles {
		if _, ok := allowed[normaliseRole(role)]; ok {
			return true
		}
	}
	return false
}

func parseRoleList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		role := normaliseRole(part)
		if role == "" {
			continue
		}
		if _, exists := seen[role]; exists {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
