package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func hardenedServe(t *testing.T, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	rec := httptest.NewRecorder()
	return rec, SecurityHeaders()(handler)(e.NewContext(req, rec))
}

func TestSecurityHeaders_FullPolicy(t *testing.T) {
	rec, err := hardenedServe(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, kv := range securityHeaders {
		if got := rec.Header().Get(kv[0]); got != kv[1] {
			t.Errorf("%s = %q, want %q", kv[0], got, kv[1])
		}
	}
	// The PHI rule specifically: API responses must never be cached.
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("Cache-Control is not no-store")
	}
}

func TestSecurityHeaders_HandlerStillRuns(t *testing.T) {
	ran := false
	rec, err := hardenedServe(t, func(c echo.Context) error {
		ran = true
		return c.String(http.StatusCreated, "created")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran || rec.Code != http.StatusCreated {
		t.Errorf("ran=%v code=%d", ran, rec.Code)
	}
}

func TestSecurityHeaders_SetEvenOnHandlerError(t *testing.T) {
	rec, err := hardenedServe(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	})
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("handler error mangled: %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("hardening headers missing from error response")
	}
}
