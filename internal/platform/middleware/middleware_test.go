package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/telecare/telecare/internal/platform/auth"
)

func run(mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(handler)(c)
	return rec, err
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRequestID_Generated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := run(RequestID(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id header")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "portal-123")
	rec, err := run(RequestID(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "portal-123" {
		t.Errorf("expected portal-123, got %q", got)
	}
}

func TestRecovery_PanicReturns500(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := run(Recovery(logger), req, func(c echo.Context) error {
		panic("boom")
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestBodyLimit_RejectsOversizeContentLength(t *testing.T) {
	body := strings.Repeat("a", 2048)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.ContentLength = 2048
	rec, err := run(BodyLimit("1K"), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok"))
	rec, err := run(BodyLimit("1K"), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int64{
		"1K":      1 << 10,
		"10M":     10 << 20,
		"1G":      1 << 30,
		"512":     512,
		"":        1 << 20,
		"garbage": 1 << 20,
	}
	for in, want := range cases {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRequestTimeout_SkipsTranscribeRoutes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe/job/process", nil)
	start := time.Now()
	_, err := run(RequestTimeout(10*time.Millisecond), req, func(c echo.Context) error {
		time.Sleep(30 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("expected handler to run to completion on transcribe route")
	}
}

func TestRequestTimeout_Expires(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec, err := run(RequestTimeout(10*time.Millisecond), req, func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(time.Second):
			return c.NoContent(http.StatusOK)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestAudit_RecordsAccess(t *testing.T) {
	var recorded []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	logger := zerolog.New(&bytes.Buffer{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visits/abc/transcript", nil)
	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, "doc-1")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"physician"})
	req = req.WithContext(ctx)

	_, err := run(Audit(logger, recorder), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorded))
	}
	if recorded[0].UserID != "doc-1" {
		t.Errorf("expected doc-1, got %s", recorded[0].UserID)
	}
	if recorded[0].Resource != "visits" {
		t.Errorf("expected resource visits, got %s", recorded[0].Resource)
	}
	if recorded[0].Action != "read" {
		t.Errorf("expected action read, got %s", recorded[0].Action)
	}
}

func TestAudit_SkipsNonAPIRoutes(t *testing.T) {
	var recorded []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		recorded = append(recorded, e)
		return nil
	})
	logger := zerolog.New(&bytes.Buffer{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	if _, err := run(Audit(logger, recorder), req, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recorded) != 0 {
		t.Errorf("expected no audit entries, got %d", len(recorded))
	}
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := run(SecurityHeaders(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected Cache-Control: no-store")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options: nosniff")
	}
}

func TestLogger_EmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)

	if _, err := run(Logger(logger), req, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if line["path"] != "/api/v1/patients" {
		t.Errorf("expected path in log line, got %v", line["path"])
	}
}
