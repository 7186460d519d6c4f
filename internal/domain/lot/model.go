// Package lot provides the stock-bearing unit: a dated, priced quantity
// of one product at one branch.
package lot

import (
	"context"
	"sort"
	"strings"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/ledger"
)

// Lot is never deleted. RemainingQuantity only moves together with a ledger entry.
type Lot struct {
	entity.BaseEntity

	LotNumber string `db:"lot_number" json:"lotNumber"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	BranchID  id.ID  `db:"branch_id" json:"branchId"`

	OriginalQuantity  types.Quantity `db:"original_quantity" json:"originalQuantity"`
	RemainingQuantity types.Quantity `db:"remaining_quantity" json:"remainingQuantity"`

	ExpirationDate    time.Time   `db:"expiration_date" json:"expirationDate"`
	ManufacturingDate *time.Time  `db:"manufacturing_date" json:"manufacturingDate,omitempty"`
	UnitCost          types.Money `db:"unit_cost" json:"unitCost"`
	EntryDate         time.Time   `db:"entry_date" json:"entryDate"`

	Supplier      string `db:"supplier" json:"supplier,omitempty"`
	InvoiceNumber string `db:"invoice_number" json:"invoiceNumber,omitempty"`
	Notes         string `db:"notes" json:"notes,omitempty"`

	Active bool `db:"active" json:"active"`
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(_ context.Context) error {
	if strings.TrimSpace(l.LotNumber) == "" {
		return apperror.NewValidation("lot number is required").WithDetail("field", "lotNumber")
	}
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(l.BranchID) {
		return apperror.NewValidation("branch is required").WithDetail("field", "branchId")
	}
	if !l.OriginalQuantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if l.RemainingQuantity.IsNegative() || l.RemainingQuantity > l.OriginalQuantity {
		return apperror.NewValidation("remaining quantity out of range").
			WithDetail("remaining", l.RemainingQuantity.String())
	}
	if l.ExpirationDate.IsZero() {
		return apperror.NewValidation("expiration date is required").WithDetail("field", "expirationDate")
	}
	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}
	return nil
}

// Subject returns the lot state ledger entries are computed from.
func (l *Lot) Subject() ledger.Subject {
	return ledger.Subject{
		ProductID: l.ProductID,
		LotID:     l.ID,
		BranchID:  l.BranchID,
		Remaining: l.RemainingQuantity,
		UnitCost:  l.UnitCost,
	}
}

// DaysToExpire counts whole days from now until expiration. Negative once expired.
func (l *Lot) DaysToExpire(now time.Time) int {
	exp := l.ExpirationDate.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	return int(exp.Sub(today).Hours() / 24)
}

// Available reports whether the lot can be allocated from.
func (l *Lot) Available() bool {
	return l.Active && l.RemainingQuantity.IsPositive()
}

// LessFIFO orders by expiration, then entry date, then id.
func LessFIFO(a, b *Lot) bool {
	if !a.ExpirationDate.Equal(b.ExpirationDate) {
		return a.ExpirationDate.Before(b.ExpirationDate)
	}
	if !a.EntryDate.Equal(b.EntryDate) {
		return a.EntryDate.Before(b.EntryDate)
	}
	return id.Less(a.ID, b.ID)
}

// SortFIFO sorts lots in allocation order.
func SortFIFO(lots []*Lot) {
	sort.SliceStable(lots, func(i, j int) bool { return LessFIFO(lots[i], lots[j]) })
}

var _ entity.Validatable = (*Lot)(nil)
