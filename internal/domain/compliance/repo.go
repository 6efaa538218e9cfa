package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caretopicz/rems/internal/domain/schedule"
)

// Repository is the read-only query surface for compliance evaluation. All
// methods tolerate empty result sets.
type Repository interface {
	// DashboardAlerts returns open milestones on open schedules due within
	// 7 days (or whose window closes within 3 days) of today, ordered by
	// due date.
	DashboardAlerts(ctx context.Context, today time.Time) ([]*Alert, error)
	// OpenMilestones returns a schedule's pending and scheduled milestones
	// ordered by due date.
	OpenMilestones(ctx context.Context, scheduleID uuid.UUID) ([]*schedule.Milestone, error)
	// PatientOpenSchedules returns the patient's non-terminal schedules,
	// each with its earliest open milestone when one exists.
	PatientOpenSchedules(ctx context.Context, patientID uuid.UUID) ([]*PatientSchedule, error)
}
