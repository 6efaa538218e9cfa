package protocol

import (
	"time"

	"github.com/google/uuid"
)

// CategoryAll is the wildcard patient category used as a lookup fallback when
// no protocol exists for the exact category.
const CategoryAll = "all"

// Step types carried on milestones. The values are data, not behavior: the
// engine never branches on them.
const (
	StepTypeLab          = "lab"
	StepTypeOfficeVisit  = "office_visit"
	StepTypeConfirmation = "confirmation"
	StepTypePrescription = "prescription"
	StepTypeInjection    = "injection"
)

// DefaultWindowDays is the compliance window applied when a step does not
// specify one.
const DefaultWindowDays = 7

// Protocol maps to the medication_protocols table. Step payloads live in
// JSONB columns and are the due-date calculator's input contract.
type Protocol struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	MedicationName  string        `db:"medication_name" json:"medication_name"`
	ProtocolType    string        `db:"protocol_type" json:"protocol_type"`
	PatientCategory string        `db:"patient_category" json:"patient_category"`
	Steps           []Step        `db:"steps" json:"steps"`
	MonthlyCycle    *MonthlyCycle `db:"monthly_cycle" json:"monthly_cycle,omitempty"`
	CompletionSteps []Step        `db:"completion_steps" json:"completion_steps,omitempty"`
	Source          *string       `db:"source" json:"source,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Step is one required action in a protocol definition. Offsets are optional;
// both days_from_prev and days_from_start are measured from the running
// anchor date during expansion (see the schedule package).
type Step struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Description       *string `json:"description,omitempty"`
	DaysFromStart     *int    `json:"days_from_start,omitempty"`
	DaysFromPrev      *int    `json:"days_from_prev,omitempty"`
	WindowDays        *int    `json:"window_days,omitempty"`
	DaysAfterLastDose *int    `json:"days_after_last_dose,omitempty"`
}

// OffsetDays returns the step's offset from the running anchor:
// days_from_prev when present, else days_from_start, else 0.
func (s Step) OffsetDays() int {
	if s.DaysFromPrev != nil {
		return *s.DaysFromPrev
	}
	if s.DaysFromStart != nil {
		return *s.DaysFromStart
	}
	return 0
}

// Window returns the step's compliance window in days (default 7).
func (s Step) Window() int {
	if s.WindowDays != nil {
		return *s.WindowDays
	}
	return DefaultWindowDays
}

// MonthlyCycle is an optional recurring block of steps repeated once per
// treatment month. IntervalDays and LabSteps describe secondary cadences that
// round-trip through the catalog but are not expanded by the base algorithm.
type MonthlyCycle struct {
	Description           string `json:"description,omitempty"`
	TypicalDurationMonths *int   `json:"typical_duration_months"`
	IntervalDays          *int   `json:"interval_days,omitempty"`
	Steps                 []Step `json:"steps"`
	LabsEveryNMonths      *int   `json:"labs_every_n_months,omitempty"`
	LabSteps              []Step `json:"lab_steps,omitempty"`
}
