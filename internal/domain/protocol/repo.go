package protocol

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no protocol matches a lookup, even after the
// wildcard-category fallback.
var ErrNotFound = errors.New("protocol not found")

type Repository interface {
	// Upsert inserts the protocol, leaving any existing row with the same
	// (medication_name, protocol_type, patient_category) untouched. Reports
	// whether a row was actually inserted.
	Upsert(ctx context.Context, p *Protocol) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Protocol, error)
	// FindExact matches (medication, category) only.
	FindExact(ctx context.Context, medication, category string) (*Protocol, error)
	// FindWithFallback matches the exact category or CategoryAll, ranking the
	// exact category first when both exist.
	FindWithFallback(ctx context.Context, medication, category string) (*Protocol, error)
	// List returns the catalog, optionally filtered by medication.
	List(ctx context.Context, medication string) ([]*Protocol, error)
}
