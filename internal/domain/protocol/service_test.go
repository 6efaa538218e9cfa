package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockProtocolRepo struct{ store map[uuid.UUID]*Protocol }

func newMockProtocolRepo() *mockProtocolRepo {
	return &mockProtocolRepo{store: make(map[uuid.UUID]*Protocol)}
}
func (m *mockProtocolRepo) Upsert(_ context.Context, p *Protocol) (bool, error) {
	for _, e := range m.store {
		if e.MedicationName == p.MedicationName && e.ProtocolType == p.ProtocolType && e.PatientCategory == p.PatientCategory {
			return false, nil
		}
	}
	if p.ID == uuid.Nil { p.ID = uuid.New() }
	m.store[p.ID] = p
	return true, nil
}
func (m *mockProtocolRepo) GetByID(_ context.Context, id uuid.UUID) (*Protocol, error) {
	p, ok := m.store[id]; if !ok { return nil, ErrNotFound }; return p, nil
}
func (m *mockProtocolRepo) FindExact(_ context.Context, medication, category string) (*Protocol, error) {
	for _, p := range m.store {
		if p.MedicationName == medication && p.PatientCategory == category { return p, nil }
	}
	return nil, ErrNotFound
}
func (m *mockProtocolRepo) FindWithFallback(ctx context.Context, medication, category string) (*Protocol, error) {
	if p, err := m.FindExact(ctx, medication, category); err == nil { return p, nil }
	return m.FindExact(ctx, medication, CategoryAll)
}
func (m *mockProtocolRepo) List(_ context.Context, medication string) ([]*Protocol, error) {
	var r []*Protocol
	for _, p := range m.store {
		if medication == "" || p.MedicationName == medication { r = append(r, p) }
	}
	return r, nil
}

func seedMock(t *testing.T, repo *mockProtocolRepo, protocols ...*Protocol) {
	t.Helper()
	for _, p := range protocols {
		if _, err := repo.Upsert(context.Background(), p); err != nil { t.Fatalf("seed: %v", err) }
	}
}

func TestFind_ExactCategoryPreferred(t *testing.T) {
	repo := newMockProtocolRepo()
	seedMock(t, repo,
		&Protocol{MedicationName: "isotretinoin", ProtocolType: "ipledge", PatientCategory: "fcbp"},
		&Protocol{MedicationName: "isotretinoin", ProtocolType: "ipledge", PatientCategory: CategoryAll},
	)
	svc := NewService(repo)

	p, err := svc.Find(context.Background(), "isotretinoin", "fcbp")
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if p.PatientCategory != "fcbp" {
		t.Errorf("expected exact category match, got %q", p.PatientCategory)
	}
}

func TestFind_FallsBackToWildcard(t *testing.T) {
	repo := newMockProtocolRepo()
	seedMock(t, repo,
		&Protocol{MedicationName: "adalimumab", ProtocolType: "biologic", PatientCategory: CategoryAll},
	)
	svc := NewService(repo)

	p, err := svc.Find(context.Background(), "adalimumab", "fcbp")
	if err != nil { t.Fatalf("unexpected error: %v", err) }
	if p.PatientCategory != CategoryAll {
		t.Errorf("expected wildcard fallback, got %q", p.PatientCategory)
	}
}

func TestFind_EmptyCategoryUsesWildcard(t *testing.T) {
	repo := newMockProtocolRepo()
	seedMock(t, repo,
		&Protocol{MedicationName: "adalimumab", ProtocolType: "biologic", PatientCategory: CategoryAll},
	)
	svc := NewService(repo)

	if _, err := svc.Find(context.Background(), "adalimumab", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFind_NotFound(t *testing.T) {
	svc := NewService(newMockProtocolRepo())
	if _, err := svc.Find(context.Background(), "warfarin", "all"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFind_MedicationRequired(t *testing.T) {
	svc := NewService(newMockProtocolRepo())
	if _, err := svc.Find(context.Background(), "", "fcbp"); err == nil {
		t.Error("expected error for missing medication")
	}
}

func TestStep_OffsetDays(t *testing.T) {
	prev, start := 30, 10
	cases := []struct {
		name string
		step Step
		want int
	}{
		{"prev wins over start", Step{DaysFromPrev: &prev, DaysFromStart: &start}, 30},
		{"start when no prev", Step{DaysFromStart: &start}, 10},
		{"zero when neither", Step{}, 0},
	}
	for _, tc := range cases {
		if got := tc.step.OffsetDays(); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestStep_WindowDefault(t *testing.T) {
	w := 14
	if got := (Step{WindowDays: &w}).Window(); got != 14 { t.Errorf("got %d, want 14", got) }
	if got := (Step{}).Window(); got != DefaultWindowDays { t.Errorf("got %d, want %d", got, DefaultWindowDays) }
}
