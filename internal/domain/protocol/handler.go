package protocol

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretopicz/rems/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "agent"))
	read.GET("/protocols", h.ListProtocols)
	read.GET("/protocols/resolve", h.ResolveProtocol)
	read.GET("/protocols/:id", h.GetProtocol)
}

func (h *Handler) ListProtocols(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context(), c.QueryParam("medication"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Protocol{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"protocols": items,
		"total":     len(items),
	})
}

// ResolveProtocol answers "which protocol applies to this patient": exact
// category match first, then the "all" wildcard.
func (h *Handler) ResolveProtocol(c echo.Context) error {
	p, err := h.svc.Find(c.Request().Context(),
		c.QueryParam("medication"), c.QueryParam("category"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "protocol not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetProtocol(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "protocol not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
