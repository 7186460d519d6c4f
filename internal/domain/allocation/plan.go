// Package allocation selects which lots satisfy a requested quantity,
// earliest expiration first.
package allocation

import (
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/lot"
)

// Take is the quantity drawn from one lot.
type Take struct {
	LotID             id.ID          `json:"lotId"`
	LotNumber         string         `json:"lotNumber"`
	Quantity          types.Quantity `json:"quantity"`
	UnitCost          types.Money    `json:"unitCost"`
	TotalCost         types.Money    `json:"totalCost"`
	ExpirationDate    time.Time      `json:"expirationDate"`
	PreviousRemaining types.Quantity `json:"previousRemaining"`
}

// Allocation is the full plan for one product.
type Allocation struct {
	ProductID id.ID          `json:"productId"`
	Required  types.Quantity `json:"required"`
	Takes     []Take         `json:"takes"`
	TotalCost types.Money    `json:"totalCost"`
}

// Plan draws required from lots in FIFO order.
//
// Lots with nothing remaining are skipped and no lot is used twice.
// When the lots cannot cover required, no plan is returned and the
// error is INSUFFICIENT_STOCK carrying required and available.
func Plan(productID id.ID, lots []*lot.Lot, required types.Quantity) (*Allocation, error) {
	if !required.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("product_id", productID.String()).
			WithDetail("quantity", required.String())
	}

	ordered := make([]*lot.Lot, 0, len(lots))
	seen := make(map[id.ID]struct{}, len(lots))
	var available types.Quantity
	for _, l := range lots {
		if l.ProductID != productID || !l.Available() {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		ordered = append(ordered, l)
		available += l.RemainingQuantity
	}

	if available < required {
		return nil, apperror.NewInsufficientStock(productID.String(), required.String(), available.String())
	}

	lot.SortFIFO(ordered)

	a := &Allocation{
		ProductID: productID,
		Required:  required,
		TotalCost: types.Zero(),
	}
	pending := required
	for _, l := range ordered {
		if pending.IsZero() {
			break
		}
		qty := types.MinQuantity(pending, l.RemainingQuantity)
		cost := qty.Cost(l.UnitCost)
		a.Takes = append(a.Takes, Take{
			LotID:             l.ID,
			LotNumber:         l.LotNumber,
			Quantity:          qty,
			UnitCost:          l.UnitCost,
			TotalCost:         cost,
			ExpirationDate:    l.ExpirationDate,
			PreviousRemaining: l.RemainingQuantity,
		})
		a.TotalCost = a.TotalCost.Add(cost)
		pending -= qty
	}

	return a, nil
}

// Units returns the sum of take quantities.
func (a *Allocation) Units() types.Quantity {
	var total types.Quantity
	for _, t := range a.Takes {
		total += t.Quantity
	}
	return total
}
