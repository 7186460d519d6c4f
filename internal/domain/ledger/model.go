// Package ledger provides the append-only record of every lot quantity change.
package ledger

import (
	"context"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// MovementType is the direction of a ledger entry.
type MovementType string

const (
	MovementInbound    MovementType = "inbound"
	MovementOutbound   MovementType = "outbound"
	MovementAdjustment MovementType = "adjustment"
)

// ParseMovementType rejects anything outside the closed set.
func ParseMovementType(s string) (MovementType, error) {
	switch t := MovementType(s); t {
	case MovementInbound, MovementOutbound, MovementAdjustment:
		return t, nil
	}
	return "", apperror.NewValidation("unknown movement type").WithDetail("value", s)
}

// ReferenceKind names the business operation that produced an entry.
type ReferenceKind string

const (
	RefTransfer     ReferenceKind = "transfer"
	RefReceipt      ReferenceKind = "receipt"
	RefCancellation ReferenceKind = "cancellation"
	RefInitialLoad  ReferenceKind = "initial_load"
)

// ParseReferenceKind rejects anything outside the closed set.
func ParseReferenceKind(s string) (ReferenceKind, error) {
	switch k := ReferenceKind(s); k {
	case RefTransfer, RefReceipt, RefCancellation, RefInitialLoad:
		return k, nil
	}
	return "", apperror.NewValidation("unknown reference kind").WithDetail("value", s)
}

// Reasons recorded on entries.
const (
	ReasonTransfer    = "transfer"
	ReasonReceipt     = "receipt"
	ReasonReversal    = "reversal"
	ReasonInitialLoad = "initial_load"
)

// Entry is one immutable stock change on one lot.
type Entry struct {
	ID           id.ID        `db:"id" json:"id"`
	MovementType MovementType `db:"movement_type" json:"movementType"`
	Reason       string       `db:"reason" json:"reason"`

	ProductID id.ID `db:"product_id" json:"productId"`
	LotID     id.ID `db:"lot_id" json:"lotId"`
	BranchID  id.ID `db:"branch_id" json:"branchId"`

	Quantity          types.Quantity `db:"quantity" json:"quantity"`
	PreviousRemaining types.Quantity `db:"previous_remaining" json:"previousRemaining"`
	NewRemaining      types.Quantity `db:"new_remaining" json:"newRemaining"`

	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	TotalCost types.Money `db:"total_cost" json:"totalCost"`

	ReferenceKind ReferenceKind `db:"reference_kind" json:"referenceKind"`
	ReferenceID   id.ID         `db:"reference_id" json:"referenceId"`

	ActorID   id.ID     `db:"actor_id" json:"actorId"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Subject is the lot state an entry is computed from.
type Subject struct {
	ProductID id.ID
	LotID     id.ID
	BranchID  id.ID
	Remaining types.Quantity
	UnitCost  types.Money
}

// Reference points an entry at its originating operation.
type Reference struct {
	Kind  ReferenceKind
	ID    id.ID
	Notes string
}

func newEntry(mt MovementType, reason string, sub Subject, qty types.Quantity, ref Reference, actorID id.ID, now time.Time) *Entry {
	e := &Entry{
		ID:                id.New(),
		MovementType:      mt,
		Reason:            reason,
		ProductID:         sub.ProductID,
		LotID:             sub.LotID,
		BranchID:          sub.BranchID,
		Quantity:          qty,
		PreviousRemaining: sub.Remaining,
		UnitCost:          sub.UnitCost,
		TotalCost:         qty.Cost(sub.UnitCost),
		ReferenceKind:     ref.Kind,
		ReferenceID:       ref.ID,
		ActorID:           actorID,
		Notes:             ref.Notes,
		CreatedAt:         now,
	}
	if mt == MovementOutbound {
		e.NewRemaining = sub.Remaining - qty
	} else {
		e.NewRemaining = sub.Remaining + qty
	}
	return e
}

// NewOutbound records qty leaving the lot.
func NewOutbound(sub Subject, qty types.Quantity, ref Reference, actorID id.ID, now time.Time) *Entry {
	return newEntry(MovementOutbound, ReasonTransfer, sub, qty, ref, actorID, now)
}

// NewInbound records qty arriving at the lot.
func NewInbound(reason string, sub Subject, qty types.Quantity, ref Reference, actorID id.ID, now time.Time) *Entry {
	return newEntry(MovementInbound, reason, sub, qty, ref, actorID, now)
}

// NewAdjustment records qty restored to the lot.
func NewAdjustment(reason string, sub Subject, qty types.Quantity, ref Reference, actorID id.ID, now time.Time) *Entry {
	return newEntry(MovementAdjustment, reason, sub, qty, ref, actorID, now)
}

// Validate implements entity.Validatable.
func (e *Entry) Validate(_ context.Context) error {
	if _, err := ParseMovementType(string(e.MovementType)); err != nil {
		return err
	}
	if _, err := ParseReferenceKind(string(e.ReferenceKind)); err != nil {
		return err
	}
	if id.IsNil(e.LotID) || id.IsNil(e.ProductID) || id.IsNil(e.BranchID) {
		return apperror.NewValidation("ledger entry must reference product, lot and branch")
	}
	if !e.Quantity.IsPositive() {
		return apperror.NewValidation("ledger quantity must be positive").
			WithDetail("quantity", e.Quantity.String())
	}

	want := e.PreviousRemaining + e.Quantity
	if e.MovementType == MovementOutbound {
		want = e.PreviousRemaining - e.Quantity
	}
	if e.NewRemaining != want {
		return apperror.NewValidation("ledger remaining does not match quantity").
			WithDetail("previous", e.PreviousRemaining.String()).
			WithDetail("new", e.NewRemaining.String())
	}
	if e.NewRemaining.IsNegative() {
		return apperror.NewValidation("ledger remaining cannot be negative").
			WithDetail("lot_id", e.LotID.String())
	}
	return nil
}

// SignedQuantity returns the effect on the lot: negative for outbound.
func (e *Entry) SignedQuantity() types.Quantity {
	if e.MovementType == MovementOutbound {
		return -e.Quantity
	}
	return e.Quantity
}
