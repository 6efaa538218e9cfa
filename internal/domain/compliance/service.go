package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caretopicz/rems/internal/domain/schedule"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// InAlertHorizon reports whether an open milestone belongs on the dashboard:
// due within the next 7 days, or its compliance window closing within 3. The
// dashboard query applies the same predicate in SQL.
func InAlertHorizon(dueDate, windowEnd, today time.Time) bool {
	return !dueDate.After(today.AddDate(0, 0, dueLookaheadDays)) ||
		!windowEnd.After(today.AddDate(0, 0, windowLookaheadDays))
}

// DashboardAlerts returns near-term and overdue milestones across every open
// schedule, annotated with severity.
func (s *Service) DashboardAlerts(ctx context.Context, today time.Time) ([]*Alert, error) {
	alerts, err := s.repo.DashboardAlerts(ctx, today)
	if err != nil {
		return nil, err
	}
	for _, a := range alerts {
		if a.DueDate.Before(today) {
			a.Severity = SeverityCritical
		} else {
			a.Severity = SeverityWarning
		}
	}
	return alerts, nil
}

// ScheduleConflicts evaluates one schedule's open milestones: critical when
// already overdue, warning when the compliance window closes within 3 days.
// Milestones comfortably in the future produce nothing.
func (s *Service) ScheduleConflicts(ctx context.Context, scheduleID uuid.UUID, today time.Time) ([]*Conflict, error) {
	open, err := s.repo.OpenMilestones(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	var conflicts []*Conflict
	for _, m := range open {
		if c := classifyConflict(m, today); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

func classifyConflict(m *schedule.Milestone, today time.Time) *Conflict {
	switch {
	case m.DueDate.Before(today):
		return &Conflict{
			MilestoneID: m.ID,
			StepName:    m.StepName,
			DueDate:     m.DueDate,
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("Overdue: %s", m.StepName),
		}
	case !m.WindowEnd.After(today.AddDate(0, 0, windowLookaheadDays)):
		return &Conflict{
			MilestoneID: m.ID,
			StepName:    m.StepName,
			DueDate:     m.DueDate,
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("Compliance window expiring: %s", m.StepName),
		}
	default:
		return nil
	}
}

// PatientBanner aggregates compliance state across a patient's open
// schedules.
func (s *Service) PatientBanner(ctx context.Context, patientID uuid.UUID, today time.Time) (*Banner, error) {
	schedules, err := s.repo.PatientOpenSchedules(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if schedules == nil {
		schedules = []*PatientSchedule{}
	}
	return &Banner{
		PatientID: patientID,
		Severity:  Evaluate(schedules, today),
		Schedules: schedules,
	}, nil
}

var severityRank = map[string]int{
	SeverityGreen:  0,
	SeverityBlue:   1,
	SeverityYellow: 2,
	SeverityRed:    3,
}

// Evaluate fills in each schedule's severity from its earliest open
// milestone and returns the highest across all of them. Precedence: red
// (overdue) > yellow (due within 7 days) > blue (paused) > green.
func Evaluate(schedules []*PatientSchedule, today time.Time) string {
	overall := SeverityGreen
	for _, ps := range schedules {
		ps.Severity = scheduleSeverity(ps, today)
		ps.Complete = ps.Earliest == nil
		if severityRank[ps.Severity] > severityRank[overall] {
			overall = ps.Severity
		}
	}
	return overall
}

func scheduleSeverity(ps *PatientSchedule, today time.Time) string {
	e := ps.Earliest
	switch {
	case e != nil && (e.DueDate.Before(today) || e.WindowEnd.Before(today)):
		return SeverityRed
	case e != nil && !e.DueDate.Before(today) && !e.DueDate.After(today.AddDate(0, 0, dueLookaheadDays)):
		return SeverityYellow
	case ps.Status == schedule.StatusPaused:
		return SeverityBlue
	default:
		return SeverityGreen
	}
}
