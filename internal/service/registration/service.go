package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/legacycamp/camp-api/internal/domain"
)

// Service implements registration business logic. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a registration service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats are the dashboard counters. Rejeitadas counts both rejection
// statuses.
type Stats struct {
	Total      int `json:"total"`
	Pendentes  int `json:"pendentes"`
	Aprovadas  int `json:"aprovadas"`
	Rejeitadas int `json:"rejeitadas"`
	Canceladas int `json:"canceladas"`
}

// Create validates and stores a new registration. New registrations always
// start as PENDENTE.
func (s *Service) Create(ctx context.Context, r *domain.Registration) (*domain.Registration, error) {
	r.ID = 0
	r.Status = domain.StatusPendente
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return r, nil
}

// Get returns a registration by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Registration, error) {
	return s.repo.FindOne(ctx, id)
}

// List returns registrations matching f.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Registration, int, error) {
	if f.Status != "" {
		st, ok := domain.ParseStatus(string(f.Status))
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
		f.Status = st
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// FindByStatus lists every registration with the given status.
func (s *Service) FindByStatus(ctx context.Context, status string) ([]domain.Registration, error) {
	st, ok := domain.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	list, _, err := s.repo.List(ctx, ListFilter{Status: st})
	return list, err
}

// Update loads the registration, lets apply modify it, then validates and
// saves the result. The id and creation time cannot be changed by apply.
func (s *Service) Update(ctx context.Context, id int64, apply func(*domain.Registration) error) (*domain.Registration, error) {
	r, err := s.repo.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	createdAt := r.CreatedAt
	if err := apply(r); err != nil {
		return nil, err
	}
	r.ID = id
	r.CreatedAt = createdAt
	if r.Status != "" {
		st, ok := domain.ParseStatus(string(r.Status))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
		}
		r.Status = st
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus changes the status and returns the updated registration.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Registration, error) {
	st, ok := domain.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, st); err != nil {
		return nil, err
	}
	return s.repo.FindOne(ctx, id)
}

// Delete removes a registration.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	st := &Stats{
		Pendentes:  counts[domain.StatusPendente],
		Aprovadas:  counts[domain.StatusAprovada],
		Rejeitadas: counts[domain.StatusRejeitada] + counts[domain.StatusReprovada],
		Canceladas: counts[domain.StatusCancelada],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// CountByCoupon returns how many registrations used code.
func (s *Service) CountByCoupon(ctx context.Context, code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ErrCouponRequired
	}
	return s.repo.CountByCoupon(ctx, code)
}
