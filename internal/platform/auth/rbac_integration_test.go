package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// newPolicyRouter mirrors the server's route guards: notes and action items
// are clinical-staff endpoints, note deletion is admin only.
func newPolicyRouter() *echo.Echo {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	clinical := RequireRole("physician", "medical_assistant")
	e.GET("/api/v1/notes", ok, clinical)
	e.POST("/api/v1/notes", ok, clinical)
	e.DELETE("/api/v1/notes/:id", ok, RequireRole("admin"))
	e.GET("/api/v1/action-items", ok, clinical)
	e.POST("/api/v1/action-items/:id/complete", ok, clinical)

	return e
}

func serveAs(e *echo.Echo, method, target string, roles []string) int {
	req := httptest.NewRequest(method, target, nil)
	if roles != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRolePolicy_AcrossRoutes(t *testing.T) {
	e := newPolicyRouter()

	cases := []struct {
		name   string
		method string
		target string
		roles  []string
		want   int
	}{
		{"physician reads notes", http.MethodGet, "/api/v1/notes", []string{"physician"}, http.StatusNoContent},
		{"physician writes notes", http.MethodPost, "/api/v1/notes", []string{"physician"}, http.StatusNoContent},
		{"assistant works the queue", http.MethodGet, "/api/v1/action-items", []string{"medical_assistant"}, http.StatusNoContent},
		{"assistant completes items", http.MethodPost, "/api/v1/action-items/1/complete", []string{"medical_assistant"}, http.StatusNoContent},
		{"scribe cannot work the queue", http.MethodPost, "/api/v1/action-items/1/complete", []string{"scribe"}, http.StatusForbidden},
		{"patient cannot read notes", http.MethodGet, "/api/v1/notes", []string{"patient"}, http.StatusForbidden},
		{"physician cannot delete notes", http.MethodDelete, "/api/v1/notes/1", []string{"physician"}, http.StatusForbidden},
		{"admin deletes notes", http.MethodDelete, "/api/v1/notes/1", []string{"admin"}, http.StatusNoContent},
		{"admin reaches everything", http.MethodPost, "/api/v1/notes", []string{"admin"}, http.StatusNoContent},
		{"anonymous denied", http.MethodGet, "/api/v1/notes", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := serveAs(e, tc.method, tc.target, tc.roles); got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
