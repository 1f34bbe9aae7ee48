package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(req *http.Request, userID string, roles ...string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	return req.WithContext(ctx)
}

func TestRequireRole_Allowed(t *testing.T) {
	mw := RequireRole("physician", "nurse")
	req := contextWithRoles(httptest.NewRequest(http.MethodGet, "/", nil), "u1", "nurse")

	_, _, err := runMiddleware(mw, req)
	if err != nil {
		t.Fatalf("expected nurse to pass, got %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	mw := RequireRole("physician")
	req := contextWithRoles(httptest.NewRequest(http.MethodGet, "/", nil), "u1", "admin")

	_, _, err := runMiddleware(mw, req)
	if err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	mw := RequireRole("physician")
	req := contextWithRoles(httptest.NewRequest(http.MethodGet, "/", nil), "u1", "billing")

	_, _, err := runMiddleware(mw, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	mw := RequireAuthenticated()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, _, err := runMiddleware(mw, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}

	req = contextWithRoles(httptest.NewRequest(http.MethodGet, "/", nil), "u1", "nurse")
	if _, _, err := runMiddleware(mw, req); err != nil {
		t.Fatalf("expected authenticated request to pass, got %v", err)
	}
}
