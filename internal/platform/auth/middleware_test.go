package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func runMiddleware(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var inner echo.Context
	err := mw(func(c echo.Context) error {
		inner = c
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, inner, err
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, _, err := runMiddleware(mw, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	}
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))

	_, inner, err := runMiddleware(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id := IdentityFromContext(inner.Request().Context())
	if id.UserID != "user-42" {
		t.Errorf("expected user-42, got %q", id.UserID)
	}
	if id.Role() != "physician" {
		t.Errorf("expected role physician, got %q", id.Role())
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))

	_, _, err := runMiddleware(mw, req)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestDevAuthMiddleware_Defaults(t *testing.T) {
	mw := DevAuthMiddleware()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, inner, err := runMiddleware(mw, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if UserIDFromContext(inner.Request().Context()) != "dev-user" {
		t.Error("expected dev-user identity")
	}
}

func TestIdentityRole_Fallbacks(t *testing.T) {
	cases := []struct {
		roles []string
		want  string
	}{
		{[]string{"physician"}, "physician"},
		{[]string{"admin", "nurse"}, "nurse"},
		{[]string{"registrar"}, "registrar"},
		{nil, "user"},
	}
	for _, tc := range cases {
		id := Identity{UserID: "u", Roles: tc.roles}
		if got := id.Role(); got != tc.want {
			t.Errorf("roles %v: expected %q, got %q", tc.roles, tc.want, got)
		}
	}
}
