package actionitem

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medscribe/medscribe/internal/platform/auth"
	"github.com/medscribe/medscribe/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// transitionError distinguishes an unknown item from a status machine
// violation: 409 is reserved for real lifecycle conflicts.
func transitionError(err error) *echo.HTTPError {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "action item not found")
	}
	return echo.NewHTTPError(http.StatusConflict, err.Error())
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "medical_assistant")

	g := api.Group("", role)
	g.GET("/action-items", h.ListItems)
	g.GET("/action-items/:id", h.GetItem)
	g.POST("/action-items", h.CreateItem)
	g.DELETE("/action-items/:id", h.DeleteItem)

	g.POST("/action-items/:id/assign", h.AssignItem)
	g.POST("/action-items/:id/start", h.StartItem)
	g.POST("/action-items/:id/complete", h.CompleteItem)
	g.POST("/action-items/:id/cancel", h.CancelItem)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var item ActionItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "action item not found")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)

	if noteID := c.QueryParam("note_id"); noteID != "" {
		nid, err := uuid.Parse(noteID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid note_id")
		}
		items, err := h.svc.ListItemsByNote(c.Request().Context(), nid)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), pg.Limit, pg.Offset))
	}

	var filter Filter
	filter.Status = c.QueryParam("status")
	filter.ItemType = c.QueryParam("item_type")
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = &pid
	}
	if assignee := c.QueryParam("assigned_to"); assignee != "" {
		aid, err := uuid.Parse(assignee)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid assigned_to")
		}
		filter.Assignee = &aid
	}

	items, total, err := h.svc.SearchItems(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type assignRequest struct {
	AssignedTo uuid.UUID `json:"assigned_to"`
}

func (h *Handler) AssignItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AssignedTo == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "assigned_to is required")
	}
	item, err := h.svc.AssignItem(c.Request().Context(), id, req.AssignedTo)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) StartItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.StartItem(c.Request().Context(), id)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) CompleteItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	staffID := currentStaffID(c)
	item, err := h.svc.CompleteItem(c.Request().Context(), id, staffID)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) CancelItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.CancelItem(c.Request().Context(), id)
	if err != nil {
		return transitionError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// currentStaffID maps the authenticated subject to a staff UUID. Tokens
// minted outside the staff directory (dev mode, service accounts) carry
// non-UUID subjects, which resolve to the nil UUID.
func currentStaffID(c echo.Context) uuid.UUID {
	sub := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}
