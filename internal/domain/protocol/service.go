package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	protocols Repository
}

func NewService(repo Repository) *Service {
	return &Service{protocols: repo}
}

// Find resolves the protocol for a medication and patient category: exact
// category match first, then the "all" wildcard. Returns ErrNotFound when
// neither exists.
func (s *Service) Find(ctx context.Context, medication, category string) (*Protocol, error) {
	if medication == "" {
		return nil, fmt.Errorf("medication is required")
	}
	if category == "" {
		category = CategoryAll
	}

	p, err := s.protocols.FindExact(ctx, medication, category)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.protocols.FindWithFallback(ctx, medication, category)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Protocol, error) {
	return s.protocols.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, medication string) ([]*Protocol, error) {
	return s.protocols.List(ctx, medication)
}
