package branch

import (
	"context"

	"branchstock/internal/core/id"
)

// Repository defines Branch persistence.
type Repository interface {
	Create(ctx context.Context, b *Branch) error
	Update(ctx context.Context, b *Branch) error
	GetByID(ctx context.Context, branchID id.ID) (*Branch, error)

	// GetForUpdate retrieves the branch with a row lock.
	// Used to serialize credit checks against the same destination.
	GetForUpdate(ctx context.Context, branchID id.ID) (*Branch, error)

	List(ctx context.Context, filter ListFilter) ([]*Branch, error)
}

// ManagerIndex is the derived user → branch lookup.
// A user manages at most one branch and a branch has at most one manager.
type ManagerIndex interface {
	// BranchOf returns the branch managed by userID or NOT_A_BRANCH_MANAGER.
	BranchOf(ctx context.Context, userID id.ID) (id.ID, error)

	// Assign maps userID to branchID, replacing the branch's previous manager.
	Assign(ctx context.Context, userID, branchID id.ID) error

	// Release removes the mapping for branchID, if any.
	Release(ctx context.Context, branchID id.ID) error
}
