package schedule

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the schedule and all of its milestones atomically.
	Create(ctx context.Context, s *Schedule, milestones []*Milestone) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	// HasActive reports whether a non-terminal schedule exists for the
	// (patient, protocol) pair.
	HasActive(ctx context.Context, patientID, protocolID uuid.UUID) (bool, error)
	// ListActive returns non-terminal schedules with open-milestone counts.
	ListActive(ctx context.Context, limit, offset int) ([]*Schedule, int, error)
	// ListByPatient returns the patient's non-terminal schedules.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Schedule, error)
	GetMilestones(ctx context.Context, scheduleID uuid.UUID) ([]*Milestone, error)
	GetMilestone(ctx context.Context, id uuid.UUID) (*Milestone, error)
	UpdateMilestone(ctx context.Context, m *Milestone) error
	InsertMilestones(ctx context.Context, milestones []*Milestone) error
	// SetStatus updates the schedule status; reason and notes overwrite
	// only when non-nil.
	SetStatus(ctx context.Context, id uuid.UUID, status string, reason, notes *string) error
	// CancelOpenMilestones cascades cancellation to every open milestone on
	// the schedule.
	CancelOpenMilestones(ctx context.Context, scheduleID uuid.UUID) error
}
