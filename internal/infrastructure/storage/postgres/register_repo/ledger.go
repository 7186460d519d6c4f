package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"branchstock/internal/core/id"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/infrastructure/storage/postgres"
)

const ledgerTable = "stock_ledger"

// LedgerRepo implements ledger.Repository. Rows are append-only.
type LedgerRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
	builder  squirrel.StatementBuilderType
	cols     []string
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:      txm,
		inserter: postgres.NewBatchInserter(txm),
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cols:     postgres.ExtractDBColumns[ledger.Entry](),
	}
}

// ledgerRows flattens entries into COPY rows ordered like cols.
func ledgerRows(cols []string, entries []*ledger.Entry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		data := postgres.StructToMap(e)
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = data[col]
		}
		rows = append(rows, row)
	}
	return rows
}

// Append writes entries with COPY inside a transaction, or a multi-row INSERT otherwise.
func (r *LedgerRepo) Append(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := ledgerRows(r.cols, entries)

	if r.txm.InTransaction(ctx) {
		if _, err := r.inserter.CopyFromSlice(ctx, ledgerTable, r.cols, rows); err != nil {
			return fmt.Errorf("copy ledger entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(ledgerTable).Columns(r.cols...)
	for _, row := range rows {
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert ledger entries: %w", err)
	}
	return nil
}

func (r *LedgerRepo) list(ctx context.Context, where squirrel.Eq) ([]*ledger.Entry, error) {
	sql, args, err := r.builder.
		Select(r.cols...).
		From(ledgerTable).
		Where(where).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*ledger.Entry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepo) ListByReference(ctx context.Context, referenceID id.ID) ([]*ledger.Entry, error) {
	return r.list(ctx, squirrel.Eq{"reference_id": referenceID})
}

func (r *LedgerRepo) ListByLot(ctx context.Context, lotID id.ID) ([]*ledger.Entry, error) {
	return r.list(ctx, squirrel.Eq{"lot_id": lotID})
}
