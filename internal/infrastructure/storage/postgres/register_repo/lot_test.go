package register_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/ledger"
)

func TestAvailableQuery_FIFOWithLock(t *testing.T) {
	repo := NewLotRepo(nil)
	productID, branchID := id.New(), id.New()

	q := repo.availableQuery(squirrel.Eq{"product_id": productID, "branch_id": branchID}).Suffix("FOR UPDATE")
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM lots WHERE branch_id = $1 AND product_id = $2 AND remaining_quantity > $3 AND active = $4")
	assert.Contains(t, sql, "ORDER BY expiration_date, entry_date, id FOR UPDATE")
	require.Len(t, args, 4)
	assert.Equal(t, branchID.String(), args[0])
	assert.Equal(t, productID.String(), args[1])
}

func TestSetActiveQuery(t *testing.T) {
	repo := NewLotRepo(nil)
	lotID := id.New()

	sql, args, err := repo.setActiveQuery(lotID, true).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE lots SET active = $1, version = version + 1, updated_at = NOW() WHERE id = $2", sql)
	require.Len(t, args, 2)
	assert.Equal(t, true, args[0])
}

func TestLotColumns(t *testing.T) {
	repo := NewLotRepo(nil)

	for _, col := range []string{"id", "version", "lot_number", "remaining_quantity", "expiration_date", "entry_date"} {
		assert.Contains(t, repo.cols, col)
	}
}

func TestLedgerRows_FollowColumnOrder(t *testing.T) {
	repo := NewLedgerRepo(nil)
	e := &ledger.Entry{
		ID:                id.New(),
		MovementType:      ledger.MovementOutbound,
		Quantity:          types.NewQuantity(20),
		PreviousRemaining: types.NewQuantity(50),
		NewRemaining:      types.NewQuantity(30),
		UnitCost:          types.MustMoney("2.5"),
		TotalCost:         types.MustMoney("50"),
	}

	rows := ledgerRows(repo.cols, []*ledger.Entry{e})
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(repo.cols))

	for i, col := range repo.cols {
		switch col {
		case "id":
			assert.Equal(t, e.ID, rows[0][i])
		case "quantity":
			assert.Equal(t, types.NewQuantity(20), rows[0][i])
		case "new_remaining":
			assert.Equal(t, types.NewQuantity(30), rows[0][i])
		case "movement_type":
			assert.Equal(t, ledger.MovementOutbound, rows[0][i])
		}
	}
}
