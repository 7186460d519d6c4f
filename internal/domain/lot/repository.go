package lot

import (
	"context"
	"time"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// Repository defines Lot persistence.
//
// The ...ForUpdate methods take row locks and must run inside a transaction.
// Available listings return active lots with remaining > 0 in FIFO order.
type Repository interface {
	Create(ctx context.Context, l *Lot) error
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)
	GetForUpdate(ctx context.Context, lotID id.ID) (*Lot, error)

	// FindByNumber returns NOT_FOUND when the branch holds no such lot of the product.
	FindByNumber(ctx context.Context, branchID, productID id.ID, lotNumber string) (*Lot, error)

	ListAvailable(ctx context.Context, productID, branchID id.ID) ([]*Lot, error)
	ListAvailableForUpdate(ctx context.Context, productID, branchID id.ID) ([]*Lot, error)

	// UpdateRemaining sets remaining to next only if it still equals expected.
	// A mismatch returns CONCURRENT_MODIFICATION.
	UpdateRemaining(ctx context.Context, lotID id.ID, expected, next types.Quantity) error

	SetActive(ctx context.Context, lotID id.ID, active bool) error

	// ListByBranch returns the available lots of every product at the branch.
	ListByBranch(ctx context.Context, branchID id.ID) ([]*Lot, error)

	// ListExpiring returns available lots expiring before the cutoff.
	ListExpiring(ctx context.Context, before time.Time) ([]*Lot, error)
}
