// Package creditlimit caps the cost of stock a branch may have in flight.
//
// Committed exposure is the total cost of Sent transfers whose destination
// is the branch. A check approves while committed is strictly below the
// limit; the incoming transfer's own cost is reported but not added.
package creditlimit

import (
	"context"
	"fmt"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/branch"
)

// CommittedReader sums the cost of Sent transfers headed to a branch.
type CommittedReader interface {
	CommittedCost(ctx context.Context, destinationBranchID id.ID) (types.Money, error)
}

// Decision is the outcome of a limit check.
type Decision struct {
	BranchID   id.ID       `json:"branchId"`
	Approved   bool        `json:"approved"`
	Committed  types.Money `json:"committed"`
	Limit      types.Money `json:"limit"`
	Remaining  types.Money `json:"remaining"`
	Additional types.Money `json:"additional"`
}

// Err returns CREDIT_LIMIT_EXCEEDED for a rejected decision.
func (d Decision) Err() error {
	if d.Approved {
		return nil
	}
	return apperror.NewCreditLimitExceeded(d.BranchID.String(), d.Committed.String(), d.Limit.String()).
		WithDetail("additional", d.Additional.String())
}

// Exposure is the branch's current in-flight position.
type Exposure struct {
	BranchID       id.ID       `json:"branchId"`
	CommittedTotal types.Money `json:"committedTotal"`
	Limit          types.Money `json:"limit"`
	Remaining      types.Money `json:"remaining"`
}

// Guard evaluates branch spend limits.
type Guard struct {
	branches     branch.Repository
	committed    CommittedReader
	defaultLimit types.Money
}

// NewGuard creates a Guard. defaultLimit applies to branches without their own limit.
func NewGuard(branches branch.Repository, committed CommittedReader, defaultLimit types.Money) *Guard {
	return &Guard{
		branches:     branches,
		committed:    committed,
		defaultLimit: defaultLimit,
	}
}

// Check evaluates the limit without locking.
func (g *Guard) Check(ctx context.Context, branchID id.ID, additional types.Money) (Decision, error) {
	b, err := g.branches.GetByID(ctx, branchID)
	if err != nil {
		return Decision{}, err
	}
	return g.decide(ctx, b, additional)
}

// CheckForUpdate locks the branch row before summing, so concurrent checks
// for the same branch wait until the first transaction commits.
// Must run inside the transaction that inserts the transfer.
func (g *Guard) CheckForUpdate(ctx context.Context, branchID id.ID, additional types.Money) (Decision, error) {
	b, err := g.branches.GetForUpdate(ctx, branchID)
	if err != nil {
		return Decision{}, err
	}
	return g.decide(ctx, b, additional)
}

// Exposure returns committed, limit and remaining for the branch.
func (g *Guard) Exposure(ctx context.Context, branchID id.ID) (Exposure, error) {
	d, err := g.Check(ctx, branchID, types.Zero())
	if err != nil {
		return Exposure{}, err
	}
	return Exposure{
		BranchID:       branchID,
		CommittedTotal: d.Committed,
		Limit:          d.Limit,
		Remaining:      d.Remaining,
	}, nil
}

func (g *Guard) decide(ctx context.Context, b *branch.Branch, additional types.Money) (Decision, error) {
	committed, err := g.committed.CommittedCost(ctx, b.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("sum committed transfers: %w", err)
	}

	limit := b.EffectiveLimit(g.defaultLimit)
	return Decision{
		BranchID:   b.ID,
		Approved:   committed.LessThan(limit),
		Committed:  committed,
		Limit:      limit,
		Remaining:  limit.Sub(committed),
		Additional: additional,
	}, nil
}
