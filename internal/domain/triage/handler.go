package triage

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/triagecare/triage/internal/platform/auth"
	"github.com/triagecare/triage/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Intake endpoints are open to channel adapters and health workers.
	intake := api.Group("", auth.RequireRole("channel_adapter", "health_worker"))
	intake.POST("/cases", h.SubmitIntake)
	intake.POST("/cases/:id/indicators", h.AddIndicators)

	// Read endpoints for health workers and supervisors.
	read := api.Group("", auth.RequireRole("health_worker", "supervisor"))
	read.GET("/cases", h.ListCases)
	read.GET("/cases/:id", h.GetCase)
	read.GET("/cases/:id/decision", h.LatestDecision)
	read.GET("/cases/:id/decisions", h.ListDecisions)
	read.GET("/cases/:id/findings", h.ListFindings)
}

func (h *Handler) SubmitIntake(c echo.Context) error {
	var raw map[string]any
	if err := c.Bind(&raw); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SubmitIntake(c.Request().Context(), raw)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) AddIndicators(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var update IndicatorUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.AddIndicators(c.Request().Context(), id, update)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	item, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListCases(c echo.Context) error {
	limit, offset := pagination.Parse(c)
	items, total, err := h.svc.ListCases(c.Request().Context(), limit, offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.Envelope(items, total, limit, offset))
}

func (h *Handler) LatestDecision(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	d, err := h.svc.LatestDecision(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDecisions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	limit, offset := pagination.Parse(c)
	items, total, err := h.svc.ListDecisions(c.Request().Context(), id, limit, offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.Envelope(items, total, limit, offset))
}

func (h *Handler) ListFindings(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	items, err := h.svc.ListFindings(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// mapError translates domain errors onto HTTP status codes. Validation
// failures carry the full violation list in the response body.
func mapError(err error) error {
	if ve, ok := AsValidationError(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"message":    "validation failed",
			"violations": ve.Violations,
		})
	}
	if errors.Is(err, ErrCaseNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
