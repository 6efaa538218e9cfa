package schedule

import (
	"fmt"
	"time"

	"github.com/caretopicz/rems/internal/domain/protocol"
)

// FirstPrescriptionStep anchors the monthly cycle when present among the
// initial steps.
const FirstPrescriptionStep = "first_prescription"

// DefaultCycleMonths applies when neither the caller nor the protocol gives
// a treatment duration.
const DefaultCycleMonths = 6

// cycle milestones always get a fixed 7-day window.
const cycleWindowDays = 7

// DatedMilestone is the calculator's output: a step with concrete dates, not
// yet persisted.
type DatedMilestone struct {
	StepNumber  int
	Name        string
	Type        string
	Description *string
	DueDate     time.Time
	WindowStart time.Time
	WindowEnd   time.Time
}

// ExpandSteps turns an ordered step list into dated milestones using a
// running anchor. The anchor starts at prevAnchor (or startDate when nil) and
// advances to each step's due date, so both days_from_prev and
// days_from_start are offsets from the previous step's due date after the
// first step. That is deliberate and matches the shipped protocol catalogs.
func ExpandSteps(steps []protocol.Step, startDate time.Time, prevAnchor *time.Time) []DatedMilestone {
	anchor := startDate
	if prevAnchor != nil {
		anchor = *prevAnchor
	}

	out := make([]DatedMilestone, 0, len(steps))
	for i, step := range steps {
		due := anchor.AddDate(0, 0, step.OffsetDays())
		out = append(out, DatedMilestone{
			StepNumber:  i + 1,
			Name:        step.Name,
			Type:        step.Type,
			Description: step.Description,
			DueDate:     due,
			WindowStart: due,
			WindowEnd:   due.AddDate(0, 0, step.Window()),
		})
		anchor = due
	}
	return out
}

// CycleAnchor returns the date recurring months are measured from: the due
// date of the initial first_prescription milestone when present, else the
// schedule start date.
func CycleAnchor(initial []DatedMilestone, startDate time.Time) time.Time {
	for _, m := range initial {
		if m.Name == FirstPrescriptionStep {
			return m.DueDate
		}
	}
	return startDate
}

// ExpandMonthlyCycle emits one milestone per cycle step for each month
// firstMonth..lastMonth, all due at anchor0 + m calendar months with a fixed
// 7-day window. Names get an _m<month> suffix so recurrences stay distinct;
// step numbers continue from firstStepNumber.
func ExpandMonthlyCycle(cycle *protocol.MonthlyCycle, anchor0 time.Time, firstStepNumber, firstMonth, lastMonth int) []DatedMilestone {
	if cycle == nil || len(cycle.Steps) == 0 {
		return nil
	}

	var out []DatedMilestone
	num := firstStepNumber
	for m := firstMonth; m <= lastMonth; m++ {
		monthStart := anchor0.AddDate(0, m, 0)
		for _, step := range cycle.Steps {
			out = append(out, DatedMilestone{
				StepNumber:  num,
				Name:        fmt.Sprintf("%s_m%d", step.Name, m),
				Type:        step.Type,
				Description: step.Description,
				DueDate:     monthStart,
				WindowStart: monthStart,
				WindowEnd:   monthStart.AddDate(0, 0, cycleWindowDays),
			})
			num++
		}
	}
	return out
}

// ExpandCompletionSteps dates the post-treatment steps from the last-dose
// date (days_after_last_dose, default 0). Step numbers continue from
// firstStepNumber.
func ExpandCompletionSteps(steps []protocol.Step, lastDose time.Time, firstStepNumber int) []DatedMilestone {
	out := make([]DatedMilestone, 0, len(steps))
	for i, step := range steps {
		offset := 0
		if step.DaysAfterLastDose != nil {
			offset = *step.DaysAfterLastDose
		}
		due := lastDose.AddDate(0, 0, offset)
		out = append(out, DatedMilestone{
			StepNumber:  firstStepNumber + i,
			Name:        step.Name,
			Type:        step.Type,
			Description: step.Description,
			DueDate:     due,
			WindowStart: due,
			WindowEnd:   due.AddDate(0, 0, step.Window()),
		})
	}
	return out
}

// CycleMonths resolves how many monthly iterations to expand: the caller's
// override first, then the protocol's typical duration, then
// DefaultCycleMonths.
func CycleMonths(cycle *protocol.MonthlyCycle, override *int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if cycle != nil && cycle.TypicalDurationMonths != nil && *cycle.TypicalDurationMonths > 0 {
		return *cycle.TypicalDurationMonths
	}
	return DefaultCycleMonths
}
