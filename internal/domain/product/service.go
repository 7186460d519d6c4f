package product

import (
	"context"

	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
)

// Service provides product registration for seeding and tools.
type Service struct {
	repo Repository
	now  entity.Clock
}

// NewService creates a new Product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: entity.SystemClock}
}

// Create validates and stores p.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if id.IsNil(p.ID) {
		p.BaseEntity = entity.NewBaseEntity(s.now())
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

// GetByID returns a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products ordered by name.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	return s.repo.List(ctx, activeOnly)
}
