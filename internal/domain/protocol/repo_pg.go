package protocol

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

const protocolCols = `id, medication_name, protocol_type, patient_category,
	steps, monthly_cycle, completion_steps, source, created_at, updated_at`

func scanProtocol(row pgx.Row) (*Protocol, error) {
	var p Protocol
	err := row.Scan(&p.ID, &p.MedicationName, &p.ProtocolType, &p.PatientCategory,
		&p.Steps, &p.MonthlyCycle, &p.CompletionSteps, &p.Source,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Upsert(ctx context.Context, p *Protocol) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication_protocols (id, medication_name, protocol_type, patient_category,
			steps, monthly_cycle, completion_steps, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (medication_name, protocol_type, patient_category) DO NOTHING`,
		p.ID, p.MedicationName, p.ProtocolType, p.PatientCategory,
		p.Steps, p.MonthlyCycle, p.CompletionSteps, p.Source)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Protocol, error) {
	return scanProtocol(r.conn(ctx).QueryRow(ctx,
		`SELECT `+protocolCols+` FROM medication_protocols WHERE id = $1`, id))
}

func (r *repoPG) FindExact(ctx context.Context, medication, category string) (*Protocol, error) {
	return scanProtocol(r.conn(ctx).QueryRow(ctx, `
		SELECT `+protocolCols+` FROM medication_protocols
		WHERE medication_name = $1 AND patient_category = $2`,
		medication, category))
}

func (r *repoPG) FindWithFallback(ctx context.Context, medication, category string) (*Protocol, error) {
	// Exact category ranks before the "all" wildcard.
	return scanProtocol(r.conn(ctx).QueryRow(ctx, `
		SELECT `+protocolCols+` FROM medication_protocols
		WHERE medication_name = $1 AND (patient_category = $2 OR patient_category = $3)
		ORDER BY (patient_category = $3) ASC
		LIMIT 1`,
		medication, category, CategoryAll))
}

func (r *repoPG) List(ctx context.Context, medication string) ([]*Protocol, error) {
	query := `SELECT ` + protocolCols + ` FROM medication_protocols`
	var args []interface{}
	if medication != "" {
		query += ` WHERE medication_name = $1`
		args = append(args, medication)
	}
	query += ` ORDER BY medication_name, patient_category`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Protocol
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
