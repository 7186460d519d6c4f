package allocation

import (
	"context"
	"fmt"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/lot"
)

// Allocator loads candidate lots and plans against them.
type Allocator struct {
	lots lot.Repository
}

// NewAllocator creates a new Allocator.
func NewAllocator(lots lot.Repository) *Allocator {
	return &Allocator{lots: lots}
}

// Allocate locks the candidate lots and plans. Must run inside the caller's transaction,
// which is then responsible for applying the takes.
func (a *Allocator) Allocate(ctx context.Context, productID, branchID id.ID, qty types.Quantity) (*Allocation, error) {
	lots, err := a.lots.ListAvailableForUpdate(ctx, productID, branchID)
	if err != nil {
		return nil, fmt.Errorf("lock lots: %w", err)
	}
	return Plan(productID, lots, qty)
}

// Preview plans without locks. The result may be stale by the time it is used.
func (a *Allocator) Preview(ctx context.Context, productID, branchID id.ID, qty types.Quantity) (*Allocation, types.Quantity, error) {
	lots, err := a.lots.ListAvailable(ctx, productID, branchID)
	if err != nil {
		return nil, 0, fmt.Errorf("list lots: %w", err)
	}

	var available types.Quantity
	for _, l := range lots {
		if l.Available() {
			available += l.RemainingQuantity
		}
	}

	plan, err := Plan(productID, lots, qty)
	return plan, available, err
}
