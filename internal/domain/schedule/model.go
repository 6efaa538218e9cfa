package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Schedule statuses. Terminal statuses never transition again.
const (
	StatusInitiating = "initiating"
	StatusActive     = "active"
	StatusCompleting = "completing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusPaused     = "paused"
)

// Milestone statuses.
const (
	MilestonePending   = "pending"
	MilestoneScheduled = "scheduled"
	MilestoneCompleted = "completed"
	MilestoneOverdue   = "overdue"
	MilestoneSkipped   = "skipped"
	MilestoneCancelled = "cancelled"
)

// validTransitions is the schedule lifecycle. Transitions are externally
// driven; the service only guards against illegal jumps.
var validTransitions = map[string][]string{
	StatusInitiating: {StatusActive, StatusCancelled, StatusPaused},
	StatusActive:     {StatusCompleting, StatusCancelled, StatusPaused},
	StatusCompleting: {StatusCompleted, StatusCancelled},
	StatusPaused:     {StatusInitiating, StatusActive, StatusCancelled},
}

// CanTransition reports whether a schedule may move from one status to
// another. Terminal statuses (completed, cancelled) allow nothing.
func CanTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a schedule status is final.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// OpenMilestoneStatuses are the milestone statuses still awaiting action.
// Cascading operations (cancel) and compliance queries both key off this set.
var OpenMilestoneStatuses = []string{MilestonePending, MilestoneScheduled, MilestoneOverdue}

// IsOpenMilestone reports whether a milestone still awaits action.
func IsOpenMilestone(status string) bool {
	return status == MilestonePending || status == MilestoneScheduled || status == MilestoneOverdue
}

// Schedule maps to the patient_med_schedules table. One non-terminal schedule
// may exist per (patient, protocol) pair at a time.
type Schedule struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProtocolID      uuid.UUID  `db:"protocol_id" json:"protocol_id"`
	PatientCategory string     `db:"patient_category" json:"patient_category"`
	Status          string     `db:"status" json:"status"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	ExpectedEndDate *time.Time `db:"expected_end_date" json:"expected_end_date,omitempty"`
	CancelledReason *string    `db:"cancelled_reason" json:"cancelled_reason,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	// Milestones is populated on reads that attach them, ordered by
	// step_number. Not a column.
	Milestones []*Milestone `db:"-" json:"milestones,omitempty"`

	// PendingCount is populated by list queries that aggregate open
	// milestones. Not a column.
	PendingCount int `db:"-" json:"pending_count,omitempty"`
}

// Milestone maps to the schedule_milestones table. window_start equals
// due_date at creation; window_end = due_date + the step's window.
type Milestone struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ScheduleID    uuid.UUID  `db:"schedule_id" json:"schedule_id"`
	StepNumber    int        `db:"step_number" json:"step_number"`
	StepName      string     `db:"step_name" json:"step_name"`
	StepType      string     `db:"step_type" json:"step_type"`
	Description   *string    `db:"description" json:"description,omitempty"`
	Status        string     `db:"status" json:"status"`
	DueDate       time.Time  `db:"due_date" json:"due_date"`
	WindowStart   time.Time  `db:"window_start" json:"window_start"`
	WindowEnd     time.Time  `db:"window_end" json:"window_end"`
	CompletedDate *time.Time `db:"completed_date" json:"completed_date,omitempty"`
	CompletedBy   *string    `db:"completed_by" json:"completed_by,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
}
