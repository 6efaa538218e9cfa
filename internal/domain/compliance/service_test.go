package compliance

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caretopicz/rems/internal/domain/schedule"
)

type mockComplianceRepo struct {
	alerts     []*Alert
	milestones map[uuid.UUID][]*schedule.Milestone
	schedules  map[uuid.UUID][]*PatientSchedule
}

func newMockComplianceRepo() *mockComplianceRepo {
	return &mockComplianceRepo{
		milestones: make(map[uuid.UUID][]*schedule.Milestone),
		schedules:  make(map[uuid.UUID][]*PatientSchedule),
	}
}
func (m *mockComplianceRepo) DashboardAlerts(_ context.Context, _ time.Time) ([]*Alert, error) {
	return m.alerts, nil
}
func (m *mockComplianceRepo) OpenMilestones(_ context.Context, id uuid.UUID) ([]*schedule.Milestone, error) {
	return m.milestones[id], nil
}
func (m *mockComplianceRepo) PatientOpenSchedules(_ context.Context, id uuid.UUID) ([]*PatientSchedule, error) {
	return m.schedules[id], nil
}

func date(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func openMilestone(name string, due time.Time, windowDays int) *schedule.Milestone {
	return &schedule.Milestone{
		ID:          uuid.New(),
		StepName:    name,
		StepType:    "lab",
		Status:      schedule.MilestonePending,
		DueDate:     due,
		WindowStart: due,
		WindowEnd:   due.AddDate(0, 0, windowDays),
	}
}

func TestScheduleConflicts(t *testing.T) {
	today := date(2025, time.June, 15)
	schedID := uuid.New()
	repo := newMockComplianceRepo()
	repo.milestones[schedID] = []*schedule.Milestone{
		openMilestone("monthly_pregnancy_test_m2", date(2025, time.June, 10), 7),
		openMilestone("monthly_office_visit_m2", date(2025, time.June, 16), 1),
		openMilestone("monthly_prescription_m3", date(2025, time.July, 20), 7),
	}
	svc := NewService(repo)

	conflicts, err := svc.ScheduleConflicts(context.Background(), schedID, today)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(conflicts))
	}
	if conflicts[0].Severity != SeverityCritical || !strings.HasPrefix(conflicts[0].Message, "Overdue:") {
		t.Errorf("overdue milestone: severity %q message %q", conflicts[0].Severity, conflicts[0].Message)
	}
	// Due Jun 16, window ends Jun 17 — within the 3-day expiry horizon.
	if conflicts[1].Severity != SeverityWarning || !strings.HasPrefix(conflicts[1].Message, "Compliance window expiring:") {
		t.Errorf("expiring milestone: severity %q message %q", conflicts[1].Severity, conflicts[1].Message)
	}
}

func TestScheduleConflicts_FutureMilestonesSilent(t *testing.T) {
	today := date(2025, time.June, 15)
	schedID := uuid.New()
	repo := newMockComplianceRepo()
	repo.milestones[schedID] = []*schedule.Milestone{
		openMilestone("baseline_labs", date(2025, time.July, 1), 14),
	}
	svc := NewService(repo)

	conflicts, err := svc.ScheduleConflicts(context.Background(), schedID, today)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %d", len(conflicts))
	}
}

func TestDashboardAlerts_SeverityAnnotation(t *testing.T) {
	today := date(2025, time.June, 15)
	repo := newMockComplianceRepo()
	repo.alerts = []*Alert{
		{StepName: "overdue_step", DueDate: date(2025, time.June, 10), WindowEnd: date(2025, time.June, 17)},
		{StepName: "upcoming_step", DueDate: date(2025, time.June, 20), WindowEnd: date(2025, time.June, 27)},
	}
	svc := NewService(repo)

	alerts, err := svc.DashboardAlerts(context.Background(), today)
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if alerts[0].Severity != SeverityCritical {
		t.Errorf("overdue alert severity %q", alerts[0].Severity)
	}
	if alerts[1].Severity != SeverityWarning {
		t.Errorf("upcoming alert severity %q", alerts[1].Severity)
	}
}

func TestInAlertHorizon(t *testing.T) {
	today := date(2025, time.June, 15)
	cases := []struct {
		name      string
		due       time.Time
		windowEnd time.Time
		want      bool
	}{
		{"overdue", date(2025, time.June, 10), date(2025, time.June, 17), true},
		{"due today", today, date(2025, time.June, 22), true},
		{"due in 5 days, long window", today.AddDate(0, 0, 5), today.AddDate(0, 0, 20), true},
		{"due in exactly 7 days", today.AddDate(0, 0, 7), today.AddDate(0, 0, 14), true},
		{"due in 20 days", today.AddDate(0, 0, 20), today.AddDate(0, 0, 27), false},
		{"due in 8 days", today.AddDate(0, 0, 8), today.AddDate(0, 0, 15), false},
		{"far due but window closing in 3 days", today.AddDate(0, 0, 10), today.AddDate(0, 0, 3), true},
		{"far due, window closing in 4 days", today.AddDate(0, 0, 10), today.AddDate(0, 0, 4), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InAlertHorizon(tc.due, tc.windowEnd, today); got != tc.want {
				t.Errorf("due %s window_end %s: got %v, want %v",
					tc.due.Format("2006-01-02"), tc.windowEnd.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func bannerSchedule(status string, earliest *MilestoneRef) *PatientSchedule {
	return &PatientSchedule{
		ScheduleID:     uuid.New(),
		MedicationName: "isotretinoin",
		Status:         status,
		Earliest:       earliest,
	}
}

func TestEvaluate_Severities(t *testing.T) {
	today := date(2025, time.June, 15)
	overdue := &MilestoneRef{StepName: "a", DueDate: date(2025, time.June, 10), WindowEnd: date(2025, time.June, 17)}
	expired := &MilestoneRef{StepName: "b", DueDate: date(2025, time.June, 16), WindowEnd: date(2025, time.June, 14)}
	nearTerm := &MilestoneRef{StepName: "c", DueDate: date(2025, time.June, 20), WindowEnd: date(2025, time.June, 27)}
	farOff := &MilestoneRef{StepName: "d", DueDate: date(2025, time.August, 1), WindowEnd: date(2025, time.August, 8)}

	cases := []struct {
		name      string
		schedules []*PatientSchedule
		want      string
	}{
		{"no schedules", nil, SeverityGreen},
		{"overdue due date", []*PatientSchedule{bannerSchedule(schedule.StatusActive, overdue)}, SeverityRed},
		{"expired window", []*PatientSchedule{bannerSchedule(schedule.StatusActive, expired)}, SeverityRed},
		{"due within a week", []*PatientSchedule{bannerSchedule(schedule.StatusActive, nearTerm)}, SeverityYellow},
		{"paused", []*PatientSchedule{bannerSchedule(schedule.StatusPaused, farOff)}, SeverityBlue},
		{"all quiet", []*PatientSchedule{bannerSchedule(schedule.StatusActive, farOff)}, SeverityGreen},
		{"fully complete schedule", []*PatientSchedule{bannerSchedule(schedule.StatusActive, nil)}, SeverityGreen},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.schedules, today); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEvaluate_RedBeatsBlue(t *testing.T) {
	today := date(2025, time.June, 15)
	overdue := &MilestoneRef{StepName: "a", DueDate: date(2025, time.June, 1), WindowEnd: date(2025, time.June, 8)}
	schedules := []*PatientSchedule{
		bannerSchedule(schedule.StatusActive, overdue),
		bannerSchedule(schedule.StatusPaused, nil),
	}
	if got := Evaluate(schedules, today); got != SeverityRed {
		t.Errorf("got %q, want red", got)
	}
}

func TestEvaluate_PausedWithOverdueIsRed(t *testing.T) {
	today := date(2025, time.June, 15)
	overdue := &MilestoneRef{StepName: "a", DueDate: date(2025, time.June, 1), WindowEnd: date(2025, time.June, 8)}
	schedules := []*PatientSchedule{bannerSchedule(schedule.StatusPaused, overdue)}
	if got := Evaluate(schedules, today); got != SeverityRed {
		t.Errorf("got %q, want red", got)
	}
}

func TestEvaluate_MarksCompleteSchedules(t *testing.T) {
	today := date(2025, time.June, 15)
	schedules := []*PatientSchedule{bannerSchedule(schedule.StatusCompleting, nil)}
	Evaluate(schedules, today)
	if !schedules[0].Complete {
		t.Error("schedule without open milestones should be marked complete")
	}
	if schedules[0].Severity != SeverityGreen {
		t.Errorf("severity %q, want green", schedules[0].Severity)
	}
}

func TestPatientBanner_EmptyTolerated(t *testing.T) {
	svc := NewService(newMockComplianceRepo())
	banner, err := svc.PatientBanner(context.Background(), uuid.New(), date(2025, time.June, 15))
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if banner.Severity != SeverityGreen || len(banner.Schedules) != 0 {
		t.Errorf("empty patient should be green with no schedules")
	}
}
