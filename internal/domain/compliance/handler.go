package compliance

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretopicz/rems/internal/platform/auth"
)

type Handler struct {
	svc           *Service
	bannerEnabled bool
}

func NewHandler(svc *Service, bannerEnabled bool) *Handler {
	return &Handler{svc: svc, bannerEnabled: bannerEnabled}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "agent"))
	read.GET("/dashboard/alerts", h.DashboardAlerts)
	read.GET("/schedules/:id/conflicts", h.ScheduleConflicts)
	read.GET("/patients/:id/banner", h.PatientBanner)
}

// asOf reads the optional ?date= override, defaulting to today. Useful for
// reviewing past or upcoming compliance state.
func asOf(c echo.Context) (time.Time, error) {
	if raw := c.QueryParam("date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		return t, nil
	}
	return time.Now().UTC().Truncate(24 * time.Hour), nil
}

func (h *Handler) DashboardAlerts(c echo.Context) error {
	today, err := asOf(c)
	if err != nil {
		return err
	}
	alerts, err := h.svc.DashboardAlerts(c.Request().Context(), today)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if alerts == nil {
		alerts = []*Alert{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  len(alerts),
		"as_of":  today.Format("2006-01-02"),
	})
}

func (h *Handler) ScheduleConflicts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	today, err := asOf(c)
	if err != nil {
		return err
	}
	conflicts, err := h.svc.ScheduleConflicts(c.Request().Context(), id, today)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if conflicts == nil {
		conflicts = []*Conflict{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"total":     len(conflicts),
	})
}

func (h *Handler) PatientBanner(c echo.Context) error {
	if !h.bannerEnabled {
		return c.JSON(http.StatusOK, map[string]interface{}{"enabled": false})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	today, err := asOf(c)
	if err != nil {
		return err
	}
	banner, err := h.svc.PatientBanner(c.Request().Context(), id, today)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"enabled":    true,
		"patient_id": banner.PatientID,
		"severity":   banner.Severity,
		"schedules":  banner.Schedules,
	})
}
