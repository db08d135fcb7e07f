package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medscribe/medscribe/pkg/pagination"
)

// APIKeyHandler exposes key administration. Routes are expected to be
// registered under an admin-only group.
type APIKeyHandler struct {
	manager *APIKeyManager
}

func NewAPIKeyHandler(manager *APIKeyManager) *APIKeyHandler {
	return &APIKeyHandler{manager: manager}
}

func (h *APIKeyHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.MintKey)
	g.GET("", h.ListKeys)
	g.GET("/:id", h.GetKey)
	g.DELETE("/:id", h.RevokeKey)
	g.POST("/:id/rotate", h.RotateKey)
}

type mintKeyRequest struct {
	Name      string     `json:"name"`
	ClientID  string     `json:"client_id"`
	Roles     []string   `json:"roles"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// mintedKey pairs the stored record with the one-time secret.
type mintedKey struct {
	Key     *APIKey `json:"key"`
	Secret  string  `json:"secret"`
	Warning string  `json:"warning"`
}

const secretWarning = "store this secret now; it cannot be retrieved again"

func (h *APIKeyHandler) MintKey(c echo.Context) error {
	var req mintKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	key, secret, err := h.manager.Mint(c.Request().Context(), MintSpec{
		Name:      req.Name,
		ClientID:  req.ClientID,
		Roles:     req.Roles,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, mintedKey{Key: key, Secret: secret, Warning: secretWarning})
}

func (h *APIKeyHandler) ListKeys(c echo.Context) error {
	p := pagination.FromContext(c)
	keys, total, err := h.manager.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list api keys")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(keys, total, p.Limit, p.Offset))
}

func (h *APIKeyHandler) GetKey(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	key, err := h.manager.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "api key not found")
	}
	return c.JSON(http.StatusOK, key)
}

func (h *APIKeyHandler) RevokeKey(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.manager.Revoke(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke api key")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": KeyStatusRevoked, "id": id.String()})
}

func (h *APIKeyHandler) RotateKey(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	key, secret, err := h.manager.Rotate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to rotate api key")
	}
	return c.JSON(http.StatusOK, mintedKey{Key: key, Secret: secret, Warning: secretWarning})
}
