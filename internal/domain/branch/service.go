package branch

import (
	"context"
	"fmt"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/tx"
	"branchstock/pkg/logger"
)

// Service maintains branches and keeps the manager index in step with them.
type Service struct {
	repo      Repository
	index     ManagerIndex
	txManager tx.Manager
	now       entity.Clock
}

// NewService creates a new Branch service.
func NewService(repo Repository, index ManagerIndex, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		index:     index,
		txManager: txManager,
		now:       entity.SystemClock,
	}
}

// Create validates and stores a branch. A preset ManagerID is indexed in the same transaction.
func (s *Service) Create(ctx context.Context, b *Branch) error {
	if id.IsNil(b.ID) {
		b.BaseEntity = entity.NewBaseEntity(s.now())
	}
	if err := b.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create branch: %w", err)
		}
		if b.ManagerID != nil {
			if err := s.assign(ctx, b, *b.ManagerID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID returns a branch.
func (s *Service) GetByID(ctx context.Context, branchID id.ID) (*Branch, error) {
	return s.repo.GetByID(ctx, branchID)
}

// List returns branches matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Branch, error) {
	return s.repo.List(ctx, filter)
}

// BranchOf resolves the branch managed by userID.
func (s *Service) BranchOf(ctx context.Context, userID id.ID) (id.ID, error) {
	return s.index.BranchOf(ctx, userID)
}

// AssignManager makes userID the manager of branchID.
// A user already managing another branch is rejected with CONFLICT.
func (s *Service) AssignManager(ctx context.Context, branchID, userID id.ID) error {
	if id.IsNil(userID) {
		return apperror.NewValidation("manager is required").WithDetail("field", "managerId")
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, branchID)
		if err != nil {
			return err
		}
		return s.assign(ctx, b, userID)
	})
}

func (s *Service) assign(ctx context.Context, b *Branch, userID id.ID) error {
	current, err := s.index.BranchOf(ctx, userID)
	switch {
	case err == nil && current != b.ID:
		return apperror.NewConflict("user already manages another branch").
			WithDetail("user_id", userID.String()).
			WithDetail("branch_id", current.String())
	case err != nil && !apperror.Is(err, apperror.CodeNotABranchManager):
		return err
	}

	if err := s.index.Assign(ctx, userID, b.ID); err != nil {
		return fmt.Errorf("index manager: %w", err)
	}

	b.ManagerID = &userID
	b.Touch(s.now())
	if err := s.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}

	logger.Info(ctx, "branch manager assigned",
		"event", "branch.manager_assigned",
		"branch_id", b.ID,
		"manager_id", userID,
	)
	return nil
}

// Deactivate marks the branch inactive. It stops being a valid transfer destination.
func (s *Service) Deactivate(ctx context.Context, branchID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, branchID)
		if err != nil {
			return err
		}
		if !b.Active {
			return nil
		}
		b.Active = false
		b.Touch(s.now())
		return s.repo.Update(ctx, b)
	})
}
