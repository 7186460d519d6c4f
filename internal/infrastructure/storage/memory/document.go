package memory

import (
	"context"
	"sort"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/numerator"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/transfer"
)

// TransferRepo implements transfer.Repository.
type TransferRepo struct{ s *Store }

var _ transfer.Repository = (*TransferRepo)(nil)

func copyTransfer(t transfer.Transfer) *transfer.Transfer {
	t.Lines = append([]transfer.Line(nil), t.Lines...)
	return &t
}

func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("transfer.create"); err != nil {
			return err
		}
		for _, other := range st.transfers {
			if other.Number == t.Number {
				return apperror.NewDuplicate("transfer", "number", t.Number)
			}
		}
		st.transfers[t.ID] = *copyTransfer(*t)
		return nil
	})
}

func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	var out *transfer.Transfer
	err := r.s.view(ctx, func(st *state) error {
		t, ok := st.transfers[transferID]
		if !ok {
			return apperror.NewNotFound("transfer", transferID)
		}
		out = copyTransfer(t)
		return nil
	})
	return out, err
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	return r.GetByID(ctx, transferID)
}

func (r *TransferRepo) UpdateStatus(ctx context.Context, t *transfer.Transfer, expectedVersion int) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("transfer.update_status"); err != nil {
			return err
		}
		cur, ok := st.transfers[t.ID]
		if !ok {
			return apperror.NewNotFound("transfer", t.ID)
		}
		if cur.Version != expectedVersion {
			return apperror.NewConcurrentModification("transfer", t.ID)
		}
		st.transfers[t.ID] = *copyTransfer(*t)
		return nil
	})
}

func (r *TransferRepo) matching(st *state, filter transfer.ListFilter) []transfer.Row {
	var rows []transfer.Row
	for _, t := range st.transfers {
		if !filter.Matches(&t) {
			continue
		}
		rows = append(rows, transfer.Row{
			Transfer:              *copyTransfer(t),
			SourceBranchName:      st.branches[t.SourceBranchID].Name,
			DestinationBranchName: st.branches[t.DestinationBranchID].Name,
			LinesCount:            len(t.Lines),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].RequestedAt.Equal(rows[j].RequestedAt) {
			return rows[i].RequestedAt.After(rows[j].RequestedAt)
		}
		return id.Less(rows[j].ID, rows[i].ID)
	})
	return rows
}

func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) ([]transfer.Row, error) {
	var out []transfer.Row
	err := r.s.view(ctx, func(st *state) error {
		rows := r.matching(st, filter)
		if filter.Offset >= len(rows) {
			return nil
		}
		rows = rows[filter.Offset:]
		if filter.Limit > 0 && len(rows) > filter.Limit {
			rows = rows[:filter.Limit]
		}
		out = rows
		return nil
	})
	return out, err
}

func (r *TransferRepo) Stats(ctx context.Context, filter transfer.StatsFilter) ([]transfer.StatusStats, error) {
	var out []transfer.StatusStats
	err := r.s.view(ctx, func(st *state) error {
		agg := make(map[transfer.Status]*transfer.StatusStats)
		for _, row := range r.matching(st, filter.ListFilter()) {
			s, ok := agg[row.Status]
			if !ok {
				s = &transfer.StatusStats{Status: row.Status, Cost: types.Zero()}
				agg[row.Status] = s
			}
			s.Count++
			s.Units += row.TotalUnits
			s.Cost = s.Cost.Add(row.TotalCost)
		}
		for _, status := range transfer.AllStatuses {
			if s, ok := agg[status]; ok {
				out = append(out, *s)
			}
		}
		return nil
	})
	return out, err
}

func (r *TransferRepo) CommittedCost(ctx context.Context, destinationBranchID id.ID) (types.Money, error) {
	total := types.Zero()
	err := r.s.view(ctx, func(st *state) error {
		for _, t := range st.transfers {
			if t.DestinationBranchID == destinationBranchID && t.Status == transfer.StatusSent {
				total = total.Add(t.TotalCost)
			}
		}
		return nil
	})
	return total, err
}

// GetNextNumber implements numerator.Generator. Counters live in the
// transactional state, so a rolled-back create releases its number.
func (s *Store) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	var out string
	err := s.view(ctx, func(st *state) error {
		if err := s.fault("numerator.next"); err != nil {
			return err
		}
		key := cfg.Key(period)
		st.counters[key]++
		out = cfg.Format(period, st.counters[key])
		return nil
	})
	return out, err
}

var _ numerator.Generator = (*Store)(nil)
