package compliance

import (
	"time"

	"github.com/google/uuid"
)

// Conflict severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Banner severities, lowest to highest.
const (
	SeverityGreen  = "green"
	SeverityBlue   = "blue"
	SeverityYellow = "yellow"
	SeverityRed    = "red"
)

// Alert dashboard lookahead windows, in days.
const (
	dueLookaheadDays    = 7
	windowLookaheadDays = 3
)

// Alert is one near-term or overdue milestone on an open schedule, as shown
// on the staff dashboard.
type Alert struct {
	MilestoneID    uuid.UUID `json:"milestone_id"`
	ScheduleID     uuid.UUID `json:"schedule_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	MedicationName string    `json:"medication_name"`
	StepName       string    `json:"step_name"`
	StepType       string    `json:"step_type"`
	Status         string    `json:"status"`
	ScheduleStatus string    `json:"schedule_status"`
	DueDate        time.Time `json:"due_date"`
	WindowEnd      time.Time `json:"window_end"`
	Severity       string    `json:"severity"`
}

// Conflict flags one open milestone on a single schedule.
type Conflict struct {
	MilestoneID uuid.UUID `json:"milestone_id"`
	StepName    string    `json:"step_name"`
	DueDate     time.Time `json:"due_date"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
}

// MilestoneRef is the earliest open milestone of a schedule, or absent when
// every milestone is resolved.
type MilestoneRef struct {
	StepName  string    `json:"step_name"`
	DueDate   time.Time `json:"due_date"`
	WindowEnd time.Time `json:"window_end"`
}

// PatientSchedule is one open schedule as seen by the banner evaluator.
type PatientSchedule struct {
	ScheduleID     uuid.UUID     `json:"schedule_id"`
	MedicationName string        `json:"medication_name"`
	Status         string        `json:"status"`
	Earliest       *MilestoneRef `json:"next_milestone,omitempty"`

	// Severity and Complete are filled in by the evaluator.
	Severity string `json:"severity"`
	Complete bool   `json:"complete"`
}

// Banner is the aggregate compliance state rendered for one patient.
type Banner struct {
	PatientID uuid.UUID          `json:"patient_id"`
	Severity  string             `json:"severity"`
	Schedules []*PatientSchedule `json:"schedules"`
}
