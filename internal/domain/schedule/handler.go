package schedule

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretopicz/rems/internal/platform/auth"
	"github.com/caretopicz/rems/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")

	read := api.Group("", auth.RequireRole("admin", "physician", "nurse", "agent"))
	read.GET("/schedules", h.ListSchedules)
	read.GET("/schedules/:id", h.GetSchedule)
	read.GET("/patients/:id/schedules", h.ListPatientSchedules)

	write := api.Group("", role)
	write.POST("/schedules", h.CreateSchedule)
	write.POST("/schedules/:id/status", h.SetStatus)
	write.POST("/schedules/:id/cancel", h.CancelSchedule)
	write.POST("/schedules/:id/pause", h.PauseSchedule)
	write.POST("/schedules/:id/resume", h.ResumeSchedule)
	write.POST("/schedules/:id/extend", h.ExtendSchedule)
	write.POST("/schedules/:id/complete-treatment", h.CompleteTreatment)
	write.POST("/milestones/:id/complete", h.CompleteMilestone)
	write.POST("/milestones/:id/skip", h.SkipMilestone)
	write.POST("/milestones/:id/reschedule", h.RescheduleMilestone)
}

// httpError maps service sentinels onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProtocolNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateActiveSchedule):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateSchedule(c echo.Context) error {
	var body struct {
		PatientID      uuid.UUID `json:"patient_id"`
		Medication     string    `json:"medication"`
		Category       string    `json:"category"`
		StartDate      dateOnly  `json:"start_date"`
		DurationMonths *int      `json:"duration_months"`
		Notes          *string   `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in := CreateInput{
		PatientID:      body.PatientID,
		Medication:     body.Medication,
		Category:       body.Category,
		CreatedBy:      auth.UserIDFromContext(c.Request().Context()),
		StartDate:      body.StartDate.Time,
		DurationMonths: body.DurationMonths,
		Notes:          body.Notes,
	}
	sched, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sched)
}

func (h *Handler) ListSchedules(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListActive(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Schedule{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ListPatientSchedules(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Schedule{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"schedules": items,
		"total":     len(items),
	})
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := h.svc.SetStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) CancelSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := h.svc.Cancel(c.Request().Context(), id, body.Reason, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) PauseSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.Pause(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ResumeSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.Resume(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ExtendSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Months int `json:"months"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := h.svc.Extend(c.Request().Context(), id, body.Months)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) CompleteTreatment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		LastDoseDate dateOnly `json:"last_dose_date"`
		Notes        *string  `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := h.svc.CompleteTreatment(c.Request().Context(), id, body.LastDoseDate.Time, body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) CompleteMilestone(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		CompletedDate dateOnly `json:"completed_date"`
		Notes         *string  `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched, err := h.svc.CompleteMilestone(c.Request().Context(), id,
		auth.UserIDFromContext(c.Request().Context()), body.CompletedDate.Time, body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) SkipMilestone(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		Notes *string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.SkipMilestone(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), body.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RescheduleMilestone(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body struct {
		NewDueDate dateOnly `json:"new_due_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.NewDueDate.Time.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "new_due_date is required")
	}
	m, warning, err := h.svc.Reschedule(c.Request().Context(), id, body.NewDueDate.Time, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	resp := map[string]interface{}{"milestone": m}
	if warning != "" {
		resp["warning"] = warning
	}
	return c.JSON(http.StatusOK, resp)
}

// dateOnly accepts "2006-01-02" request payloads alongside RFC 3339.
type dateOnly struct{ time.Time }

func (d *dateOnly) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", s)
	}
	s = s[1 : len(s)-1]
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
