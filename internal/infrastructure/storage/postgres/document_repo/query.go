package document_repo

import (
	"github.com/Masterminds/squirrel"

	"branchstock/internal/core/id"
	"branchstock/internal/domain/transfer"
)

// listQuery joins branch names and line counts onto each header, newest first.
func (r *TransferRepo) listQuery(filter transfer.ListFilter) squirrel.SelectBuilder {
	cols := make([]string, 0, len(r.headCols)+3)
	for _, c := range r.headCols {
		cols = append(cols, "t."+c)
	}
	cols = append(cols,
		"sb.name AS source_branch_name",
		"db.name AS destination_branch_name",
		"(SELECT COUNT(*) FROM transfer_lines l WHERE l.transfer_id = t.id) AS lines_count",
	)

	q := r.builder.
		Select(cols...).
		From(transfersTable + " t").
		Join("branches sb ON sb.id = t.source_branch_id").
		Join("branches db ON db.id = t.destination_branch_id")

	q = applyScope(q, filter)

	if filter.DestinationBranchID != nil {
		q = q.Where(squirrel.Eq{"t.destination_branch_id": *filter.DestinationBranchID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"t.status": *filter.Status})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"t.number": "%" + filter.Search + "%"})
	}

	q = q.OrderBy("t.requested_at DESC", "t.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// applyScope adds the date range and branch visibility shared by List and Stats.
func applyScope(q squirrel.SelectBuilder, filter transfer.ListFilter) squirrel.SelectBuilder {
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"t.requested_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"t.requested_at": *filter.DateTo})
	}
	if filter.VisibleTo != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"t.source_branch_id": *filter.VisibleTo},
			squirrel.Eq{"t.destination_branch_id": *filter.VisibleTo},
		})
	}
	return q
}

func (r *TransferRepo) statsQuery(filter transfer.StatsFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(
			"t.status",
			"COUNT(*) AS count",
			"COALESCE(SUM(t.total_units), 0)::BIGINT AS units",
			"COALESCE(SUM(t.total_cost), 0) AS cost",
		).
		From(transfersTable + " t")

	return applyScope(q, filter.ListFilter()).GroupBy("t.status")
}

func (r *TransferRepo) committedQuery(destinationBranchID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select("COALESCE(SUM(total_cost), 0)").
		From(transfersTable).
		Where(squirrel.Eq{
			"destination_branch_id": destinationBranchID,
			"status":                transfer.StatusSent,
		})
}
