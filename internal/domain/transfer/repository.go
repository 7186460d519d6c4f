package transfer

import (
	"context"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// Row is a listed transfer with the data joined for display.
type Row struct {
	Transfer
	SourceBranchName      string `db:"source_branch_name"`
	DestinationBranchName string `db:"destination_branch_name"`
	LinesCount            int    `db:"lines_count"`
}

// StatusStats aggregates transfers in one status.
type StatusStats struct {
	Status Status         `db:"status" json:"status"`
	Count  int            `db:"count" json:"count"`
	Units  types.Quantity `db:"units" json:"units"`
	Cost   types.Money    `db:"cost" json:"cost"`
}

// Repository defines Transfer persistence.
type Repository interface {
	// Create inserts the header and its lines.
	Create(ctx context.Context, t *Transfer) error

	// GetByID returns the transfer with lines.
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)

	// GetForUpdate returns the transfer with lines and a row lock on the header.
	GetForUpdate(ctx context.Context, transferID id.ID) (*Transfer, error)

	// UpdateStatus persists status fields if the stored version equals expectedVersion.
	// A mismatch returns CONCURRENT_MODIFICATION.
	UpdateStatus(ctx context.Context, t *Transfer, expectedVersion int) error

	// List returns rows newest first.
	List(ctx context.Context, filter ListFilter) ([]Row, error)

	// Stats aggregates per status; statuses with no transfers may be absent.
	Stats(ctx context.Context, filter StatsFilter) ([]StatusStats, error)

	// CommittedCost sums total_cost of Sent transfers headed to the branch.
	CommittedCost(ctx context.Context, destinationBranchID id.ID) (types.Money, error)
}
