package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// defaultRevocationTTL bounds how long an entry without a caller-supplied
// expiry is retained.
const defaultRevocationTTL = time.Hour

type revocationHandler struct {
	store *TokenRevocationStore
}

// RegisterRevocationRoutes mounts the admin-only token lockout endpoints
// under /auth.
func RegisterRevocationRoutes(g *echo.Group, store *TokenRevocationStore) {
	h := &revocationHandler{store: store}
	admin := g.Group("/auth", RequireRole("admin"))

	admin.POST("/revoke", h.revokeToken)
	admin.POST("/revoke-staff", h.revokeStaff)
	admin.GET("/revocations", h.listRevocations)
}

type revokeTokenRequest struct {
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	StaffID   string    `json:"staff_id,omitempty"`
}

func (h *revocationHandler) revokeToken(c echo.Context) error {
	var req revokeTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.JTI == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "jti is required")
	}
	if req.ExpiresAt.IsZero() {
		req.ExpiresAt = time.Now().Add(defaultRevocationTTL)
	}

	h.store.RevokeForStaff(req.JTI, req.StaffID, req.ExpiresAt)
	return c.NoContent(http.StatusNoContent)
}

type revokeStaffRequest struct {
	StaffID string `json:"staff_id"`
}

type revokeStaffResponse struct {
	RevokedCount int `json:"revoked_count"`
}

func (h *revocationHandler) revokeStaff(c echo.Context) error {
	var req revokeStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StaffID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "staff_id is required")
	}

	return c.JSON(http.StatusOK, revokeStaffResponse{
		RevokedCount: h.store.RevokeAllForStaff(req.StaffID),
	})
}

type revocationListResponse struct {
	Count   int              `json:"count"`
	Entries []RevocationInfo `json:"entries"`
}

func (h *revocationHandler) listRevocations(c echo.Context) error {
	entries := h.store.Entries()
	return c.JSON(http.StatusOK, revocationListResponse{
		Count:   len(entries),
		Entries: entries,
	})
}
