package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

const scheduleCols = `id, patient_id, protocol_id, patient_category, status,
	created_by, start_date, expected_end_date, cancelled_reason, notes,
	created_at, updated_at`

const milestoneCols = `id, schedule_id, step_number, step_name, step_type,
	description, status, due_date, window_start, window_end,
	completed_date, completed_by, notes`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.PatientID, &s.ProtocolID, &s.PatientCategory, &s.Status,
		&s.CreatedBy, &s.StartDate, &s.ExpectedEndDate, &s.CancelledReason, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanMilestone(row pgx.Row) (*Milestone, error) {
	var m Milestone
	err := row.Scan(&m.ID, &m.ScheduleID, &m.StepNumber, &m.StepName, &m.StepType,
		&m.Description, &m.Status, &m.DueDate, &m.WindowStart, &m.WindowEnd,
		&m.CompletedDate, &m.CompletedBy, &m.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, s *Schedule, milestones []*Milestone) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return db.RunInTx(ctx, r.pool, func(txCtx context.Context) error {
		_, err := r.conn(txCtx).Exec(txCtx, `
			INSERT INTO patient_med_schedules (id, patient_id, protocol_id, patient_category,
				status, created_by, start_date, expected_end_date, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			s.ID, s.PatientID, s.ProtocolID, s.PatientCategory,
			s.Status, s.CreatedBy, s.StartDate, s.ExpectedEndDate, s.Notes)
		if err != nil {
			return err
		}
		for _, m := range milestones {
			m.ScheduleID = s.ID
			if err := r.insertMilestone(txCtx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) insertMilestone(ctx context.Context, m *Milestone) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_milestones (id, schedule_id, step_number, step_name, step_type,
			description, status, due_date, window_start, window_end, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		m.ID, m.ScheduleID, m.StepNumber, m.StepName, m.StepType,
		m.Description, m.Status, m.DueDate, m.WindowStart, m.WindowEnd, m.Notes)
	return err
}

func (r *repoPG) InsertMilestones(ctx context.Context, milestones []*Milestone) error {
	for _, m := range milestones {
		if err := r.insertMilestone(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM patient_med_schedules WHERE id = $1`, id))
}

func (r *repoPG) HasActive(ctx context.Context, patientID, protocolID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_med_schedules
			WHERE patient_id = $1 AND protocol_id = $2
			  AND status NOT IN ('completed', 'cancelled')
		)`, patientID, protocolID).Scan(&exists)
	return exists, err
}

func (r *repoPG) ListActive(ctx context.Context, limit, offset int) ([]*Schedule, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patient_med_schedules
		WHERE status NOT IN ('completed', 'cancelled')`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.`+scheduleColsPrefixed+`,
			(SELECT COUNT(*) FROM schedule_milestones m
			 WHERE m.schedule_id = s.id
			   AND m.status IN ('pending', 'scheduled', 'overdue')) AS pending_count
		FROM patient_med_schedules s
		WHERE s.status NOT IN ('completed', 'cancelled')
		ORDER BY s.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Schedule
	for rows.Next() {
		var s Schedule
		err := rows.Scan(&s.ID, &s.PatientID, &s.ProtocolID, &s.PatientCategory, &s.Status,
			&s.CreatedBy, &s.StartDate, &s.ExpectedEndDate, &s.CancelledReason, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt, &s.PendingCount)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, &s)
	}
	return items, total, rows.Err()
}

const scheduleColsPrefixed = `id, s.patient_id, s.protocol_id, s.patient_category, s.status,
	s.created_by, s.start_date, s.expected_end_date, s.cancelled_reason, s.notes,
	s.created_at, s.updated_at`

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Schedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+scheduleCols+` FROM patient_med_schedules
		WHERE patient_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) GetMilestones(ctx context.Context, scheduleID uuid.UUID) ([]*Milestone, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+milestoneCols+` FROM schedule_milestones
		WHERE schedule_id = $1
		ORDER BY step_number`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) GetMilestone(ctx context.Context, id uuid.UUID) (*Milestone, error) {
	return scanMilestone(r.conn(ctx).QueryRow(ctx,
		`SELECT `+milestoneCols+` FROM schedule_milestones WHERE id = $1`, id))
}

func (r *repoPG) UpdateMilestone(ctx context.Context, m *Milestone) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_milestones
		SET status = $2, due_date = $3, window_start = $4, window_end = $5,
			completed_date = $6, completed_by = $7, notes = $8
		WHERE id = $1`,
		m.ID, m.Status, m.DueDate, m.WindowStart, m.WindowEnd,
		m.CompletedDate, m.CompletedBy, m.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status string, reason, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_med_schedules
		SET status = $2,
			cancelled_reason = COALESCE($3, cancelled_reason),
			notes = COALESCE($4, notes),
			updated_at = NOW()
		WHERE id = $1`, id, status, reason, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) CancelOpenMilestones(ctx context.Context, scheduleID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_milestones
		SET status = 'cancelled'
		WHERE schedule_id = $1 AND status IN ('pending', 'scheduled', 'overdue')`,
		scheduleID)
	return err
}
