// Package document_repo provides the PostgreSQL implementation of the transfer repository.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/transfer"
	"branchstock/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "transfers"
	transferLinesTable = "transfer_lines"
)

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
	headCols []string
	lineCols []string
}

var _ transfer.Repository = (*TransferRepo)(nil)

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		headCols: postgres.ExtractDBColumns[transfer.Transfer](),
		lineCols: postgres.ExtractDBColumns[transfer.Line](),
	}
}

// Create inserts the header, then the lines with COPY.
func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	sql, args, err := r.builder.
		Insert(transfersTable).
		SetMap(postgres.Pick(postgres.StructToMap(t), r.headCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}

	if len(t.Lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(t.Lines))
	for i := range t.Lines {
		data := postgres.StructToMap(&t.Lines[i])
		row := make([]any, len(r.lineCols))
		for j, col := range r.lineCols {
			row[j] = data[col]
		}
		rows = append(rows, row)
	}

	if _, err := r.inserter.CopyFromSlice(ctx, transferLinesTable, r.lineCols, rows); err != nil {
		return fmt.Errorf("copy transfer lines: %w", err)
	}
	return nil
}

func (r *TransferRepo) get(ctx context.Context, transferID id.ID, forUpdate bool) (*transfer.Transfer, error) {
	q := r.builder.Select(r.headCols...).From(transfersTable).Where(squirrel.Eq{"id": transferID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)

	var t transfer.Transfer
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID)
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	linesSQL, linesArgs, err := r.builder.
		Select(r.lineCols...).
		From(transferLinesTable).
		Where(squirrel.Eq{"transfer_id": transferID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	t.Lines = make([]transfer.Line, 0)
	if err := pgxscan.Select(ctx, querier, &t.Lines, linesSQL, linesArgs...); err != nil {
		return nil, fmt.Errorf("select transfer lines: %w", err)
	}
	return &t, nil
}

func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	return r.get(ctx, transferID, false)
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*transfer.Transfer, error) {
	return r.get(ctx, transferID, true)
}

// UpdateStatus writes the lifecycle columns guarded by expectedVersion.
func (r *TransferRepo) UpdateStatus(ctx context.Context, t *transfer.Transfer, expectedVersion int) error {
	sql, args, err := r.builder.
		Update(transfersTable).
		SetMap(map[string]any{
			"status":       t.Status,
			"sent_at":      t.SentAt,
			"received_at":  t.ReceivedAt,
			"received_by":  t.ReceivedBy,
			"cancelled_at": t.CancelledAt,
			"cancelled_by": t.CancelledBy,
			"version":      t.Version,
			"updated_at":   t.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": t.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("transfer", t.ID)
	}
	return nil
}

func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) ([]transfer.Row, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []transfer.Row
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return rows, nil
}

func (r *TransferRepo) Stats(ctx context.Context, filter transfer.StatsFilter) ([]transfer.StatusStats, error) {
	sql, args, err := r.statsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stats []transfer.StatusStats
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &stats, sql, args...); err != nil {
		return nil, fmt.Errorf("transfer stats: %w", err)
	}

	// Report in lifecycle order.
	ordered := make([]transfer.StatusStats, 0, len(stats))
	for _, status := range transfer.AllStatuses {
		for _, s := range stats {
			if s.Status == status {
				ordered = append(ordered, s)
			}
		}
	}
	return ordered, nil
}

func (r *TransferRepo) CommittedCost(ctx context.Context, destinationBranchID id.ID) (types.Money, error) {
	sql, args, err := r.committedQuery(destinationBranchID).ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	total := types.Zero()
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return types.Zero(), fmt.Errorf("committed cost: %w", err)
	}
	return total, nil
}
