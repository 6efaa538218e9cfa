package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretopicz/rems/internal/domain/schedule"
	"github.com/caretopicz/rems/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// The due/window predicate mirrors InAlertHorizon.
func (r *repoPG) DashboardAlerts(ctx context.Context, today time.Time) ([]*Alert, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.schedule_id, s.patient_id, p.medication_name,
			m.step_name, m.step_type, m.status, s.status, m.due_date, m.window_end
		FROM schedule_milestones m
		JOIN patient_med_schedules s ON s.id = m.schedule_id
		JOIN medication_protocols p ON p.id = s.protocol_id
		WHERE m.status IN ('pending', 'scheduled', 'overdue')
		  AND s.status IN ('initiating', 'active', 'completing')
		  AND (m.due_date <= $1::date + 7 OR m.window_end <= $1::date + 3)
		ORDER BY m.due_date`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Alert
	for rows.Next() {
		var a Alert
		err := rows.Scan(&a.MilestoneID, &a.ScheduleID, &a.PatientID, &a.MedicationName,
			&a.StepName, &a.StepType, &a.Status, &a.ScheduleStatus, &a.DueDate, &a.WindowEnd)
		if err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *repoPG) OpenMilestones(ctx context.Context, scheduleID uuid.UUID) ([]*schedule.Milestone, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, schedule_id, step_number, step_name, step_type,
			description, status, due_date, window_start, window_end,
			completed_date, completed_by, notes
		FROM schedule_milestones
		WHERE schedule_id = $1 AND status IN ('pending', 'scheduled')
		ORDER BY due_date`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*schedule.Milestone
	for rows.Next() {
		var m schedule.Milestone
		err := rows.Scan(&m.ID, &m.ScheduleID, &m.StepNumber, &m.StepName, &m.StepType,
			&m.Description, &m.Status, &m.DueDate, &m.WindowStart, &m.WindowEnd,
			&m.CompletedDate, &m.CompletedBy, &m.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *repoPG) PatientOpenSchedules(ctx context.Context, patientID uuid.UUID) ([]*PatientSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, p.medication_name, s.status,
			em.step_name, em.due_date, em.window_end
		FROM patient_med_schedules s
		JOIN medication_protocols p ON p.id = s.protocol_id
		LEFT JOIN LATERAL (
			SELECT step_name, due_date, window_end
			FROM schedule_milestones m
			WHERE m.schedule_id = s.id
			  AND m.status IN ('pending', 'scheduled', 'overdue')
			ORDER BY m.due_date
			LIMIT 1
		) em ON TRUE
		WHERE s.patient_id = $1
		  AND s.status NOT IN ('completed', 'cancelled')
		ORDER BY s.created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PatientSchedule
	for rows.Next() {
		var ps PatientSchedule
		var stepName *string
		var dueDate, windowEnd *time.Time
		err := rows.Scan(&ps.ScheduleID, &ps.MedicationName, &ps.Status,
			&stepName, &dueDate, &windowEnd)
		if err != nil {
			return nil, err
		}
		if stepName != nil {
			ps.Earliest = &MilestoneRef{StepName: *stepName, DueDate: *dueDate, WindowEnd: *windowEnd}
		}
		items = append(items, &ps)
	}
	return items, rows.Err()
}
