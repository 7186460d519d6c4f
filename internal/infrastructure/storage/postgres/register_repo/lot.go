// Package register_repo provides PostgreSQL implementations for lot and ledger repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/lot"
	"branchstock/internal/infrastructure/storage/postgres"
)

const lotsTable = "lots"

// fifoOrder is the consumption order: earliest expiration, then earliest entry, then id.
var fifoOrder = []string{"expiration_date", "entry_date", "id"}

// LotRepo implements lot.Repository.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	cols    []string
}

var _ lot.Repository = (*LotRepo)(nil)

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cols:    postgres.ExtractDBColumns[lot.Lot](),
	}
}

func (r *LotRepo) Create(ctx context.Context, l *lot.Lot) error {
	sql, args, err := r.builder.
		Insert(lotsTable).
		SetMap(postgres.Pick(postgres.StructToMap(l), r.cols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (r *LotRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.cols...).From(lotsTable)
}

func (r *LotRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*lot.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lot.Lot
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", key)
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return &l, nil
}

func (r *LotRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*lot.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []*lot.Lot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lots, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return lots, nil
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": lotID}), lotID)
}

func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": lotID}).Suffix("FOR UPDATE"), lotID)
}

func (r *LotRepo) FindByNumber(ctx context.Context, branchID, productID id.ID, lotNumber string) (*lot.Lot, error) {
	q := r.baseSelect().Where(squirrel.Eq{
		"branch_id":  branchID,
		"product_id": productID,
		"lot_number": lotNumber,
	})
	return r.getOne(ctx, q, lotNumber)
}

// availableQuery selects active lots with stock left, in FIFO order.
func (r *LotRepo) availableQuery(where squirrel.Sqlizer) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(where).
		Where(squirrel.Gt{"remaining_quantity": 0}).
		Where(squirrel.Eq{"active": true}).
		OrderBy(fifoOrder...)
}

func (r *LotRepo) ListAvailable(ctx context.Context, productID, branchID id.ID) ([]*lot.Lot, error) {
	return r.list(ctx, r.availableQuery(squirrel.Eq{"product_id": productID, "branch_id": branchID}))
}

// ListAvailableForUpdate locks the returned rows in FIFO order, so concurrent
// allocators of the same product queue behind each other.
func (r *LotRepo) ListAvailableForUpdate(ctx context.Context, productID, branchID id.ID) ([]*lot.Lot, error) {
	q := r.availableQuery(squirrel.Eq{"product_id": productID, "branch_id": branchID}).Suffix("FOR UPDATE")
	return r.list(ctx, q)
}

func (r *LotRepo) ListByBranch(ctx context.Context, branchID id.ID) ([]*lot.Lot, error) {
	return r.list(ctx, r.availableQuery(squirrel.Eq{"branch_id": branchID}))
}

func (r *LotRepo) ListExpiring(ctx context.Context, before time.Time) ([]*lot.Lot, error) {
	return r.list(ctx, r.availableQuery(squirrel.Lt{"expiration_date": before}))
}

// UpdateRemaining is a compare-and-set on remaining_quantity.
func (r *LotRepo) UpdateRemaining(ctx context.Context, lotID id.ID, expected, next types.Quantity) error {
	if next.IsNegative() {
		return apperror.NewValidation("remaining quantity cannot be negative").
			WithDetail("lot_id", lotID.String())
	}

	sql, args, err := r.builder.
		Update(lotsTable).
		Set("remaining_quantity", next).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": lotID, "remaining_quantity": expected}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot remaining: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("lot", lotID)
	}
	return nil
}

func (r *LotRepo) SetActive(ctx context.Context, lotID id.ID, active bool) error {
	sql, args, err := r.setActiveQuery(lotID, active).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("lot", lotID)
	}
	return nil
}

func (r *LotRepo) setActiveQuery(lotID id.ID, active bool) squirrel.UpdateBuilder {
	return r.builder.
		Update(lotsTable).
		Set("active", active).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": lotID})
}
