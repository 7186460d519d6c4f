package transfer

import (
	"time"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/allocation"
)

// Summary is the transfer as returned by every lifecycle operation and listing.
type Summary struct {
	ID                    id.ID          `json:"id"`
	Number                string         `json:"number"`
	SourceBranchID        id.ID          `json:"sourceBranchId"`
	SourceBranchName      string         `json:"sourceBranchName"`
	DestinationBranchID   id.ID          `json:"destinationBranchId"`
	DestinationBranchName string         `json:"destinationBranchName"`
	Status                Status         `json:"status"`
	TotalUnits            types.Quantity `json:"totalUnits"`
	TotalCost             types.Money    `json:"totalCost"`
	LinesCount            int            `json:"linesCount"`
	RequestedAt           time.Time      `json:"requestedAt"`
	SentAt                *time.Time     `json:"sentAt,omitempty"`
	ReceivedAt            *time.Time     `json:"receivedAt,omitempty"`
	CancelledAt           *time.Time     `json:"cancelledAt,omitempty"`

	// Flags are computed for the acting user.
	CanReceive bool `json:"canReceive"`
	CanCancel  bool `json:"canCancel"`
}

// Details is a transfer with its lines.
type Details struct {
	Summary
	InitiatedBy id.ID  `json:"initiatedBy"`
	ReceivedBy  *id.ID `json:"receivedBy,omitempty"`
	CancelledBy *id.ID `json:"cancelledBy,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Lines       []Line `json:"lines"`
}

// Availability answers whether the actor's branch can ship a quantity.
type Availability struct {
	ProductID      id.ID                  `json:"productId"`
	BranchID       id.ID                  `json:"branchId"`
	Required       types.Quantity         `json:"required"`
	TotalAvailable types.Quantity         `json:"totalAvailable"`
	Available      bool                   `json:"available"`
	Plan           *allocation.Allocation `json:"plan,omitempty"`
	TotalCost      types.Money            `json:"totalCost"`
	Shortfall      types.Quantity         `json:"shortfall,omitempty"`
}

// Stats aggregates transfers per status.
type Stats struct {
	ByStatus []StatusStats `json:"byStatus"`
	Total    StatusStats   `json:"total"`
}

func summarize(row Row, actorBranch *id.ID) Summary {
	t := row.Transfer
	s := Summary{
		ID:                    t.ID,
		Number:                t.Number,
		SourceBranchID:        t.SourceBranchID,
		SourceBranchName:      row.SourceBranchName,
		DestinationBranchID:   t.DestinationBranchID,
		DestinationBranchName: row.DestinationBranchName,
		Status:                t.Status,
		TotalUnits:            t.TotalUnits,
		TotalCost:             t.TotalCost,
		LinesCount:            row.LinesCount,
		RequestedAt:           t.RequestedAt,
		SentAt:                t.SentAt,
		ReceivedAt:            t.ReceivedAt,
		CancelledAt:           t.CancelledAt,
	}
	if actorBranch != nil && t.Status == StatusSent {
		s.CanReceive = *actorBranch == t.DestinationBranchID
		s.CanCancel = *actorBranch == t.SourceBranchID
	}
	return s
}
