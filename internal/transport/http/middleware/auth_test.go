package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"perftrack/internal/domain/auth"
)

func TestAuthMiddlewareSetsCaller(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: 42, Role: string(auth.RoleManager)}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		caller, ok := GetCaller(r.Context())
		if !ok {
			t.Fatal("expected caller in context")
		}
		if caller.UserID != 42 || caller.Role != auth.RoleManager {
			t.Fatalf("unexpected caller: %+v", caller)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("handler not called")
	}
}

func TestAuthMiddlewareIgnoresBadTokens(t *testing.T) {
	wrongSecret, err := auth.GenerateToken("other-secret", auth.Claims{UserID: 1, Role: string(auth.RoleAdmin)}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	unknownRole, err := auth.GenerateToken("secret", auth.Claims{UserID: 1, Role: "HR"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + wrongSecret,
		"unknown role": "Bearer " + unknownRole,
	} {
		handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetCaller(r.Context()); ok {
				t.Fatalf("%s: did not expect caller in context", name)
			}
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestRequirePermission(t *testing.T) {
	secret := "secret"
	gate := Auth(secret)(RequirePermission(auth.PermAuditRead)(noContent()))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	for role, want := range map[auth.Role]int{
		auth.RoleEmployee: http.StatusForbidden,
		auth.RoleManager:  http.StatusForbidden,
		auth.RoleAdmin:    http.StatusNoContent,
	} {
		token, err := auth.GenerateToken(secret, auth.Claims{UserID: 3, Role: string(role)}, time.Hour)
		if err != nil {
			t.Fatalf("token error: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/audit/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected request id to propagate, got %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc-123" {
		t.Fatalf("expected generated request id, got %q", seen)
	}
}
