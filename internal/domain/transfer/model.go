// Package transfer drives branch-to-branch stock movements through
// their lifecycle: create (sent), receive and cancel.
package transfer

import (
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	// StatusPending is reserved; no operation produces it.
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusSent, StatusReceived, StatusCancelled}

// ParseStatus rejects anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusSent, StatusReceived, StatusCancelled:
		return st, nil
	}
	return "", apperror.NewValidation("unknown transfer status").WithDetail("value", s)
}

// Label is the display name used in reports.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusSent:
		return "Sent to branch"
	case StatusReceived:
		return "Received at branch"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Action is a lifecycle operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionReceive Action = "receive"
	ActionCancel  Action = "cancel"
)

// CanTransition returns the status reached by applying action to from.
// The zero Status stands for a transfer that does not exist yet.
func CanTransition(from Status, action Action) (Status, bool) {
	switch {
	case from == "" && action == ActionCreate:
		return StatusSent, true
	case from == StatusSent && action == ActionReceive:
		return StatusReceived, true
	case from == StatusSent && action == ActionCancel:
		return StatusCancelled, true
	}
	return from, false
}

// Transfer is an outbound order from one branch to another. It is never deleted.
type Transfer struct {
	entity.BaseEntity

	Number              string `db:"number" json:"number"`
	SourceBranchID      id.ID  `db:"source_branch_id" json:"sourceBranchId"`
	DestinationBranchID id.ID  `db:"destination_branch_id" json:"destinationBranchId"`
	InitiatedBy         id.ID  `db:"initiated_by" json:"initiatedBy"`
	Status              Status `db:"status" json:"status"`

	TotalUnits types.Quantity `db:"total_units" json:"totalUnits"`
	TotalCost  types.Money    `db:"total_cost" json:"totalCost"`

	RequestedAt time.Time  `db:"requested_at" json:"requestedAt"`
	SentAt      *time.Time `db:"sent_at" json:"sentAt,omitempty"`
	ReceivedAt  *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	ReceivedBy  *id.ID     `db:"received_by" json:"receivedBy,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy *id.ID     `db:"cancelled_by" json:"cancelledBy,omitempty"`

	Notes string `db:"notes" json:"notes,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is the quantity drawn from one source lot.
type Line struct {
	ID             id.ID          `db:"id" json:"id"`
	TransferID     id.ID          `db:"transfer_id" json:"transferId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	ProductID      id.ID          `db:"product_id" json:"productId"`
	SourceLotID    id.ID          `db:"source_lot_id" json:"sourceLotId"`
	LotNumber      string         `db:"lot_number" json:"lotNumber"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	UnitCost       types.Money    `db:"unit_cost" json:"unitCost"`
	TotalCost      types.Money    `db:"total_cost" json:"totalCost"`
	ExpirationDate time.Time      `db:"expiration_date" json:"expirationDate"`
}

func newTransfer(source, destination, initiatedBy id.ID, notes string, now time.Time) *Transfer {
	return &Transfer{
		BaseEntity:          entity.NewBaseEntity(now),
		SourceBranchID:      source,
		DestinationBranchID: destination,
		InitiatedBy:         initiatedBy,
		TotalCost:           types.Zero(),
		RequestedAt:         now,
		Notes:               notes,
		Lines:               make([]Line, 0),
	}
}

// addLine appends a line and keeps totals in step.
func (t *Transfer) addLine(l Line) {
	l.ID = id.New()
	l.TransferID = t.ID
	l.LineNo = len(t.Lines) + 1
	t.Lines = append(t.Lines, l)
	t.TotalUnits += l.Quantity
	t.TotalCost = t.TotalCost.Add(l.TotalCost)
}

// apply moves the transfer through action, stamping who and when.
func (t *Transfer) apply(action Action, actorID id.ID, now time.Time) error {
	next, ok := CanTransition(t.Status, action)
	if !ok {
		from := string(t.Status)
		if from == "" {
			from = "none"
		}
		return apperror.NewInvalidStateTransition(t.ID.String(), from, string(action))
	}

	t.Status = next
	switch action {
	case ActionCreate:
		t.SentAt = &now
	case ActionReceive:
		t.ReceivedAt = &now
		t.ReceivedBy = &actorID
	case ActionCancel:
		t.CancelledAt = &now
		t.CancelledBy = &actorID
	}
	if action != ActionCreate {
		t.Touch(now)
	}
	return nil
}
