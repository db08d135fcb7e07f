package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_MintsWhenAbsent(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return c.NoContent(http.StatusNoContent)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Error("no request_id minted")
	}
	if echoed := rec.Header().Get(RequestIDHeader); echoed != seen {
		t.Errorf("response header %q does not match context id %q", echoed, seen)
	}
}

func TestRequestID_KeepsCallerSupplied(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	req.Header.Set(RequestIDHeader, "upstream-trace-7")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid != "upstream-trace-7" {
			t.Errorf("request_id = %q", rid)
		}
		return c.NoContent(http.StatusNoContent)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "upstream-trace-7" {
		t.Errorf("response header = %q", got)
	}
}

func TestLogger_AccessLine(t *testing.T) {
	var logBuf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-log-1")

	err := Logger(zerolog.New(&logBuf))(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &line); err != nil {
		t.Fatalf("access log is not JSON: %v\n%s", err, logBuf.String())
	}
	if line["level"] != "info" || line["message"] != "request" {
		t.Errorf("log line = %v", line)
	}
	if line["method"] != "GET" || line["path"] != "/api/v1/notes" {
		t.Errorf("method/path in log = %v/%v", line["method"], line["path"])
	}
	if line["request_id"] != "req-log-1" {
		t.Errorf("request_id in log = %v", line["request_id"])
	}
}

func TestLogger_HandlerErrorLogsAtErrorLevel(t *testing.T) {
	var logBuf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := Logger(zerolog.New(&logBuf))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream gone")
	})(c)
	if err == nil {
		t.Fatal("handler error swallowed")
	}
	if !strings.Contains(logBuf.String(), `"level":"error"`) {
		t.Errorf("expected error-level log, got %s", logBuf.String())
	}
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	var logBuf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := Recovery(zerolog.New(&logBuf))(func(c echo.Context) error {
		panic("nil note pointer")
	})(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("recovered panic produced %v, want 500", err)
	}
	if !strings.Contains(logBuf.String(), "nil note pointer") {
		t.Error("panic value missing from log")
	}
	if !strings.Contains(logBuf.String(), "panic recovered") {
		t.Error("recovery not logged")
	}
}

func TestRecovery_CleanRequestsUntouched(t *testing.T) {
	var logBuf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := Recovery(zerolog.New(&logBuf))(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logBuf.Len() != 0 {
		t.Errorf("clean request logged: %s", logBuf.String())
	}
}
