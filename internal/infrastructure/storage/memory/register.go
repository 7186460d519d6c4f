package memory

import (
	"context"
	"sort"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
)

// LotRepo implements lot.Repository.
type LotRepo struct{ s *Store }

var _ lot.Repository = (*LotRepo)(nil)

func (r *LotRepo) Create(ctx context.Context, l *lot.Lot) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("lot.create"); err != nil {
			return err
		}
		for _, other := range st.lots {
			if other.BranchID == l.BranchID && other.ProductID == l.ProductID && other.LotNumber == l.LotNumber {
				return apperror.NewDuplicate("lot", "lot_number", l.LotNumber)
			}
		}
		st.lots[l.ID] = *l
		return nil
	})
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	var out *lot.Lot
	err := r.s.view(ctx, func(st *state) error {
		l, ok := st.lots[lotID]
		if !ok {
			return apperror.NewNotFound("lot", lotID)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	return r.GetByID(ctx, lotID)
}

func (r *LotRepo) FindByNumber(ctx context.Context, branchID, productID id.ID, lotNumber string) (*lot.Lot, error) {
	var out *lot.Lot
	err := r.s.view(ctx, func(st *state) error {
		for _, l := range st.lots {
			if l.BranchID == branchID && l.ProductID == productID && l.LotNumber == lotNumber {
				l := l
				out = &l
				return nil
			}
		}
		return apperror.NewNotFound("lot", lotNumber)
	})
	return out, err
}

func (r *LotRepo) collect(ctx context.Context, keep func(l *lot.Lot) bool) ([]*lot.Lot, error) {
	var out []*lot.Lot
	err := r.s.view(ctx, func(st *state) error {
		for _, l := range st.lots {
			l := l
			if l.Available() && keep(&l) {
				out = append(out, &l)
			}
		}
		return nil
	})
	lot.SortFIFO(out)
	return out, err
}

func (r *LotRepo) ListAvailable(ctx context.Context, productID, branchID id.ID) ([]*lot.Lot, error) {
	return r.collect(ctx, func(l *lot.Lot) bool {
		return l.ProductID == productID && l.BranchID == branchID
	})
}

func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, productID, branchID id.ID) ([]*lot.Lot, error) {
	return r.ListAvailable(ctx, productID, branchID)
}

func (r *LotRepo) ListByBranch(ctx context.Context, branchID id.ID) ([]*lot.Lot, error) {
	return r.collect(ctx, func(l *lot.Lot) bool { return l.BranchID == branchID })
}

func (r *LotRepo) ListExpiring(ctx context.Context, before time.Time) ([]*lot.Lot, error) {
	return r.collect(ctx, func(l *lot.Lot) bool { return l.ExpirationDate.Before(before) })
}

func (r *LotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, expected, next types.Quantity) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("lot.update_remaining"); err != nil {
			return err
		}
		l, ok := st.lots[lotID]
		if !ok {
			return apperror.NewNotFound("lot", lotID)
		}
		if l.RemainingQuantity != expected {
			return apperror.NewConcurrentModification("lot", lotID)
		}
		if next.IsNegative() {
			return apperror.NewValidation("remaining quantity cannot be negative").
				WithDetail("lot_id", lotID.String())
		}
		l.RemainingQuantity = next
		l.Touch(time.Now().UTC())
		st.lots[lotID] = l
		return nil
	})
}

func (r *LotRepo) SetActive(ctx context.Context, lotID id.ID, active bool) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("lot.set_active"); err != nil {
			return err
		}
		l, ok := st.lots[lotID]
		if !ok {
			return apperror.NewNotFound("lot", lotID)
		}
		l.Active = active
		l.Touch(time.Now().UTC())
		st.lots[lotID] = l
		return nil
	})
}

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct{ s *Store }

var _ ledger.Repository = (*LedgerRepo)(nil)

func (r *LedgerRepo) Append(ctx context.Context, entries []*ledger.Entry) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("ledger.append"); err != nil {
			return err
		}
		for _, e := range entries {
			st.ledger = append(st.ledger, *e)
		}
		return nil
	})
}

func (r *LedgerRepo) list(ctx context.Context, keep func(e *ledger.Entry) bool) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	err := r.s.view(ctx, func(st *state) error {
		for i := range st.ledger {
			e := st.ledger[i]
			if keep(&e) {
				out = append(out, &e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (r *LedgerRepo) ListByReference(ctx context.Context, referenceID id.ID) ([]*ledger.Entry, error) {
	return r.list(ctx, func(e *ledger.Entry) bool { return e.ReferenceID == referenceID })
}

func (r *LedgerRepo) ListByLot(ctx context.Context, lotID id.ID) ([]*ledger.Entry, error) {
	return r.list(ctx, func(e *ledger.Entry) bool { return e.LotID == lotID })
}

// All returns every ledger entry in append order.
func (r *LedgerRepo) All(ctx context.Context) ([]*ledger.Entry, error) {
	return r.list(ctx, func(*ledger.Entry) bool { return true })
}
