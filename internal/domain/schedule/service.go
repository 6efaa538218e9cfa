package schedule

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caretopicz/rems/internal/domain/protocol"
)

type Service struct {
	schedules Repository
	protocols *protocol.Service
}

func NewService(schedules Repository, protocols *protocol.Service) *Service {
	return &Service{schedules: schedules, protocols: protocols}
}

// CreateInput carries everything needed to start a patient on a protocol.
type CreateInput struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	Medication     string     `json:"medication"`
	Category       string     `json:"category"`
	CreatedBy      string     `json:"created_by"`
	StartDate      time.Time  `json:"start_date"`
	DurationMonths *int       `json:"duration_months,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// Create resolves the protocol, enforces the one-active-schedule-per-protocol
// rule, expands initial and monthly-cycle milestones, and persists the whole
// set atomically. Returns the schedule with milestones ordered by step number.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Schedule, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if in.Medication == "" {
		return nil, fmt.Errorf("%w: medication is required", ErrValidation)
	}
	if in.CreatedBy == "" {
		return nil, fmt.Errorf("%w: created_by is required", ErrValidation)
	}
	if in.Category == "" {
		in.Category = protocol.CategoryAll
	}
	start := in.StartDate
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}

	p, err := s.protocols.Find(ctx, in.Medication, in.Category)
	if errors.Is(err, protocol.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrProtocolNotFound, in.Medication, in.Category)
	}
	if err != nil {
		return nil, err
	}

	dup, err := s.schedules.HasActive(ctx, in.PatientID, p.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateActiveSchedule
	}

	initial := ExpandSteps(p.Steps, start, nil)
	anchor0 := CycleAnchor(initial, start)
	months := CycleMonths(p.MonthlyCycle, in.DurationMonths)
	cycle := ExpandMonthlyCycle(p.MonthlyCycle, anchor0, len(initial)+1, 1, months)

	sched := &Schedule{
		PatientID:       in.PatientID,
		ProtocolID:      p.ID,
		PatientCategory: in.Category,
		Status:          StatusInitiating,
		CreatedBy:       in.CreatedBy,
		StartDate:       start,
		Notes:           in.Notes,
	}
	if len(cycle) > 0 {
		end := anchor0.AddDate(0, months, 0)
		sched.ExpectedEndDate = &end
	}

	milestones := make([]*Milestone, 0, len(initial)+len(cycle))
	for _, dm := range initial {
		milestones = append(milestones, newMilestone(dm))
	}
	for _, dm := range cycle {
		milestones = append(milestones, newMilestone(dm))
	}

	if err := s.schedules.Create(ctx, sched, milestones); err != nil {
		return nil, err
	}
	sched.Milestones = milestones

	log.Info().
		Str("schedule_id", sched.ID.String()).
		Str("patient_id", in.PatientID.String()).
		Str("medication", in.Medication).
		Int("milestones", len(milestones)).
		Msg("Schedule created")
	return sched, nil
}

func newMilestone(dm DatedMilestone) *Milestone {
	return &Milestone{
		ID:          uuid.New(),
		StepNumber:  dm.StepNumber,
		StepName:    dm.Name,
		StepType:    dm.Type,
		Description: dm.Description,
		Status:      MilestonePending,
		DueDate:     dm.DueDate,
		WindowStart: dm.WindowStart,
		WindowEnd:   dm.WindowEnd,
	}
}

// Get returns the schedule with its milestones attached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sched.Milestones, err = s.schedules.GetMilestones(ctx, id)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// ListActive returns non-terminal schedules with open-milestone counts.
func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListActive(ctx, limit, offset)
}

// ListByPatient returns the patient's non-terminal schedules with milestones.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Schedule, error) {
	items, err := s.schedules.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, sched := range items {
		sched.Milestones, err = s.schedules.GetMilestones(ctx, sched.ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// CompleteMilestone records a completion. Re-completing an already completed
// milestone is rejected. Returns the refreshed parent schedule.
func (s *Service) CompleteMilestone(ctx context.Context, id uuid.UUID, by string, date time.Time, notes *string) (*Schedule, error) {
	m, err := s.schedules.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == MilestoneCompleted {
		return nil, ErrAlreadyCompleted
	}
	if date.IsZero() {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	m.Status = MilestoneCompleted
	m.CompletedDate = &date
	m.CompletedBy = &by
	if notes != nil {
		m.Notes = notes
	}
	if err := s.schedules.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return s.Get(ctx, m.ScheduleID)
}

// SkipMilestone marks one milestone skipped without cancelling the schedule.
func (s *Service) SkipMilestone(ctx context.Context, id uuid.UUID, by string, notes *string) (*Milestone, error) {
	m, err := s.schedules.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == MilestoneCompleted {
		return nil, ErrAlreadyCompleted
	}

	m.Status = MilestoneSkipped
	m.CompletedBy = &by
	if notes != nil {
		m.Notes = notes
	}
	if err := s.schedules.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Reschedule moves a milestone's due date and window start; the window end is
// kept so the original compliance deadline stays visible. A warning is
// returned (never an error) when the new date falls outside that window.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDue time.Time, by string) (*Milestone, string, error) {
	m, err := s.schedules.GetMilestone(ctx, id)
	if err != nil {
		return nil, "", err
	}

	m.DueDate = newDue
	m.WindowStart = newDue
	if err := s.schedules.UpdateMilestone(ctx, m); err != nil {
		return nil, "", err
	}

	var warning string
	if newDue.After(m.WindowEnd) {
		warning = fmt.Sprintf("new due date %s is outside the compliance window (ended %s)",
			newDue.Format("2006-01-02"), m.WindowEnd.Format("2006-01-02"))
		log.Warn().
			Str("milestone_id", id.String()).
			Str("step_name", m.StepName).
			Str("rescheduled_by", by).
			Msg(warning)
	}
	return m, warning, nil
}

// Cancel moves the schedule to cancelled and cascades cancellation to every
// open milestone. Completed and skipped milestones are untouched.
func (s *Service) Cancel(ctx context.Context, scheduleID uuid.UUID, reason, by string) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sched.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, sched.Status)
	}

	if err := s.schedules.SetStatus(ctx, scheduleID, StatusCancelled, &reason, nil); err != nil {
		return nil, err
	}
	if err := s.schedules.CancelOpenMilestones(ctx, scheduleID); err != nil {
		return nil, err
	}

	log.Info().
		Str("schedule_id", scheduleID.String()).
		Str("cancelled_by", by).
		Str("reason", reason).
		Msg("Schedule cancelled")
	return s.Get(ctx, scheduleID)
}

// Pause suspends a schedule. Milestone dates are left alone.
func (s *Service) Pause(ctx context.Context, scheduleID uuid.UUID) (*Schedule, error) {
	return s.SetStatus(ctx, scheduleID, StatusPaused)
}

// Resume returns a paused schedule to active.
func (s *Service) Resume(ctx context.Context, scheduleID uuid.UUID) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched.Status != StatusPaused {
		return nil, fmt.Errorf("%w: %s -> active", ErrInvalidTransition, sched.Status)
	}
	if err := s.schedules.SetStatus(ctx, scheduleID, StatusActive, nil, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, scheduleID)
}

// SetStatus applies an externally driven lifecycle transition after checking
// it is legal.
func (s *Service) SetStatus(ctx context.Context, scheduleID uuid.UUID, to string) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sched.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sched.Status, to)
	}
	if err := s.schedules.SetStatus(ctx, scheduleID, to, nil, nil); err != nil {
		return nil, err
	}
	return s.Get(ctx, scheduleID)
}

var cycleMonthSuffix = regexp.MustCompile(`_m(\d+)$`)

// Extend appends more monthly-cycle iterations, continuing the month index
// and step numbering where the existing milestones stop.
func (s *Service) Extend(ctx context.Context, scheduleID uuid.UUID, months int) (*Schedule, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrValidation)
	}
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(sched.Status) {
		return nil, fmt.Errorf("%w: schedule is %s", ErrInvalidTransition, sched.Status)
	}

	p, err := s.protocols.Get(ctx, sched.ProtocolID)
	if err != nil {
		return nil, err
	}
	if p.MonthlyCycle == nil || len(p.MonthlyCycle.Steps) == 0 {
		return nil, fmt.Errorf("%w: protocol has no monthly cycle to extend", ErrValidation)
	}

	existing, err := s.schedules.GetMilestones(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	maxStep, lastMonth := 0, 0
	var anchor0 = sched.StartDate
	for _, m := range existing {
		if m.StepNumber > maxStep {
			maxStep = m.StepNumber
		}
		if m.StepName == FirstPrescriptionStep {
			anchor0 = m.DueDate
		}
		if match := cycleMonthSuffix.FindStringSubmatch(m.StepName); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil && n > lastMonth {
				lastMonth = n
			}
		}
	}

	added := ExpandMonthlyCycle(p.MonthlyCycle, anchor0, maxStep+1, lastMonth+1, lastMonth+months)
	milestones := make([]*Milestone, 0, len(added))
	for _, dm := range added {
		nm := newMilestone(dm)
		nm.ScheduleID = scheduleID
		milestones = append(milestones, nm)
	}
	if err := s.schedules.InsertMilestones(ctx, milestones); err != nil {
		return nil, err
	}

	log.Info().
		Str("schedule_id", scheduleID.String()).
		Int("months", months).
		Int("milestones_added", len(milestones)).
		Msg("Schedule extended")
	return s.Get(ctx, scheduleID)
}

// CompleteTreatment moves the schedule to completing and appends the
// protocol's completion steps anchored at the last-dose date.
func (s *Service) CompleteTreatment(ctx context.Context, scheduleID uuid.UUID, lastDose time.Time, notes *string) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sched.Status, StatusCompleting) {
		return nil, fmt.Errorf("%w: %s -> completing", ErrInvalidTransition, sched.Status)
	}
	if lastDose.IsZero() {
		lastDose = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if err := s.schedules.SetStatus(ctx, scheduleID, StatusCompleting, nil, notes); err != nil {
		return nil, err
	}

	p, err := s.protocols.Get(ctx, sched.ProtocolID)
	if err != nil {
		return nil, err
	}
	if len(p.CompletionSteps) > 0 {
		existing, err := s.schedules.GetMilestones(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		maxStep := 0
		for _, m := range existing {
			if m.StepNumber > maxStep {
				maxStep = m.StepNumber
			}
		}
		added := ExpandCompletionSteps(p.CompletionSteps, lastDose, maxStep+1)
		milestones := make([]*Milestone, 0, len(added))
		for _, dm := range added {
			nm := newMilestone(dm)
			nm.ScheduleID = scheduleID
			milestones = append(milestones, nm)
		}
		if err := s.schedules.InsertMilestones(ctx, milestones); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, scheduleID)
}
