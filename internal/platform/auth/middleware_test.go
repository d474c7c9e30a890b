package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireIdentity_AllowsResolvedActor(t *testing.T) {
	authn := NewAuthenticator()

	handlerCalled := false
	handler := authn.RequireIdentity(RoleProvider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UID != "user-123" {
			t.Fatalf("unexpected uid: %s", identity.UID)
		}
		if !identity.HasRole(RoleProvider) {
			t.Fatalf("expected provider role, got %v", identity.Roles)
		}
		if identity.Locale != "es-ES" {
			t.Fatalf("expected locale es-ES, got %s", identity.Locale)
		}

		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", "user-123")
	req.Header.Set("X-Actor-Roles", "Provider, admin")
	req.Header.Set("X-Actor-Locale", "es-ES")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if !handlerCalled {
		t.Fatalf("expected handler to be called")
	}
}

func TestRequireIdentity_MissingActorHeader(t *testing.T) {
	authn := NewAuthenticator()

	handler := authn.RequireIdentity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not execute without an actor header")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "unauthenticated" {
		t.Fatalf("expected unauthenticated error, got %v", body["error"])
	}
}

func TestRequireIdentity_InsufficientRole(t *testing.T) {
	authn := NewAuthenticator()

	handler := authn.RequireIdentity(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not execute without the required role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", "user-456")
	req.Header.Set("X-Actor-Roles", "client")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireIdentity_MissingRoleUsesFallback(t *testing.T) {
	authn := NewAuthenticator()

	handler := authn.RequireIdentity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if len(identity.Roles) != 1 || identity.Roles[0] != RoleClient {
			t.Fatalf("expected fallback role %q, got %v", RoleClient, identity.Roles)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", "user-789")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestParseRoleListDeduplicates(t *testing.T) {
	roles := parseRoleList("admin, Admin ,provider,,  ")
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %v", roles)
	}
	if roles[0] != "admin" || roles[1] != "provider" {
		t.Fatalf("unexpected roles: %v", roles)
	}
}
