package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/domain/branch"
	"branchstock/internal/infrastructure/storage/postgres"
)

const (
	branchesTable       = "branches"
	branchManagersTable = "branch_managers"
)

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	*BaseCatalogRepo[*branch.Branch]
}

var _ branch.Repository = (*BranchRepo)(nil)

// NewBranchRepo creates a new branch repository.
func NewBranchRepo(txm *postgres.TxManager) *BranchRepo {
	return &BranchRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			branchesTable,
			"branch",
			postgres.ExtractDBColumns[branch.Branch](),
			func() *branch.Branch { return &branch.Branch{} },
		),
	}
}

// List returns branches ordered by code.
func (r *BranchRepo) List(ctx context.Context, filter branch.ListFilter) ([]*branch.Branch, error) {
	return r.selectAll(ctx, r.listQuery(filter))
}

func (r *BranchRepo) listQuery(filter branch.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	return q.OrderBy("code")
}

// ManagerIndex implements branch.ManagerIndex on branch_managers.
// user_id and branch_id are both unique, which keeps the mapping one-to-one.
type ManagerIndex struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ branch.ManagerIndex = (*ManagerIndex)(nil)

// NewManagerIndex creates the manager lookup.
func NewManagerIndex(txm *postgres.TxManager) *ManagerIndex {
	return &ManagerIndex{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (m *ManagerIndex) BranchOf(ctx context.Context, userID id.ID) (id.ID, error) {
	sql, args, err := m.builder.
		Select("branch_id").
		From(branchManagersTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return id.Nil(), fmt.Errorf("build query: %w", err)
	}

	var branchID id.ID
	if err := pgxscan.Get(ctx, m.txm.GetQuerier(ctx), &branchID, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return id.Nil(), apperror.NewNotABranchManager(userID.String())
		}
		return id.Nil(), fmt.Errorf("get manager branch: %w", err)
	}
	return branchID, nil
}

// Assign replaces the branch's previous manager and moves userID onto branchID.
func (m *ManagerIndex) Assign(ctx context.Context, userID, branchID id.ID) error {
	querier := m.txm.GetQuerier(ctx)

	if err := m.Release(ctx, branchID); err != nil {
		return err
	}

	sql, args, err := m.builder.
		Insert(branchManagersTable).
		Columns("user_id", "branch_id").
		Values(userID, branchID).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET branch_id = EXCLUDED.branch_id, assigned_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("assign manager: %w", err)
	}
	return nil
}

func (m *ManagerIndex) Release(ctx context.Context, branchID id.ID) error {
	sql, args, err := m.builder.
		Delete(branchManagersTable).
		Where(squirrel.Eq{"branch_id": branchID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := m.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release manager: %w", err)
	}
	return nil
}
