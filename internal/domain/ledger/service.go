package ledger

import (
	"context"
	"fmt"

	"branchstock/internal/core/id"
)

// Repository appends and reads ledger entries. Entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entries []*Entry) error
	ListByReference(ctx context.Context, referenceID id.ID) ([]*Entry, error)
	ListByLot(ctx context.Context, lotID id.ID) ([]*Entry, error)
}

// Service validates entries before they reach the repository.
type Service struct {
	repo Repository
}

// NewService creates a new Ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and appends entries. Must run inside the caller's transaction.
func (s *Service) Record(ctx context.Context, entries ...*Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if err := e.Validate(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.Append(ctx, entries); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}
	return nil
}

// ByReference lists entries produced by one operation, oldest first.
func (s *Service) ByReference(ctx context.Context, referenceID id.ID) ([]*Entry, error) {
	return s.repo.ListByReference(ctx, referenceID)
}

// ByLot lists the history of a lot, oldest first.
func (s *Service) ByLot(ctx context.Context, lotID id.ID) ([]*Entry, error) {
	return s.repo.ListByLot(ctx, lotID)
}
