package lot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/apperror"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
	"branchstock/internal/infrastructure/storage/memory"
)

var today = time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	store *memory.Store
	svc   *lot.Service
	b     *branch.Branch
	p     *product.Product
	actor appctx.Actor
}

func setup(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	b := branch.NewBranch("A", "Branch A", today)
	require.NoError(t, store.Branches().Create(ctx, b))
	p := product.NewProduct("P", "Paracetamol", "box", today)
	p.UnitCost = types.MustMoney("1.25")
	require.NoError(t, store.Products().Create(ctx, p))

	svc := lot.NewService(store.Lots(), store.Products(), store.Branches(),
		ledger.NewService(store.Ledger()), store, audit.NewRecorder(store))
	svc.WithClock(func() time.Time { return today })

	return &env{ctx: ctx, store: store, svc: svc, b: b, p: p, actor: appctx.Actor{UserID: id.New(), Name: "loader"}}
}

func (e *env) load(t *testing.T, number string, units int64, exp time.Time) *lot.Lot {
	t.Helper()
	l, err := e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber:      number,
		ProductID:      e.p.ID,
		BranchID:       e.b.ID,
		Quantity:       types.NewQuantity(units),
		ExpirationDate: exp,
	})
	require.NoError(t, err)
	return l
}

func TestCreateInitialLot_WritesInboundEntry(t *testing.T) {
	e := setup(t)
	l := e.load(t, " L-1 ", 40, today.AddDate(0, 2, 0))

	assert.Equal(t, "L-1", l.LotNumber)
	assert.Equal(t, types.NewQuantity(40), l.RemainingQuantity)
	assert.True(t, l.UnitCost.Equal(types.MustMoney("1.25")), "defaults to product cost")
	assert.Equal(t, today, l.EntryDate)

	entries, err := e.store.Ledger().ListByLot(e.ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.MovementInbound, entries[0].MovementType)
	assert.Equal(t, ledger.RefInitialLoad, entries[0].ReferenceKind)
	assert.Equal(t, types.Quantity(0), entries[0].PreviousRemaining)
	assert.Equal(t, types.NewQuantity(40), entries[0].NewRemaining)
	assert.True(t, entries[0].TotalCost.Equal(types.MustMoney("50")))

	events := e.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.KindLotCreated, events[0].Kind)
	assert.Equal(t, "loader", events[0].Actor)
}

func TestCreateInitialLot_Rejections(t *testing.T) {
	e := setup(t)
	e.load(t, "L-1", 10, today.AddDate(0, 1, 0))

	_, err := e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber: "L-1", ProductID: e.p.ID, BranchID: e.b.ID,
		Quantity: types.NewQuantity(5), ExpirationDate: today,
	})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicate), "got %v", err)

	_, err = e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber: "L-2", ProductID: e.p.ID, BranchID: e.b.ID,
		Quantity: 0, ExpirationDate: today,
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))

	_, err = e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber: "L-3", ProductID: id.New(), BranchID: e.b.ID,
		Quantity: types.NewQuantity(1), ExpirationDate: today,
	})
	assert.True(t, apperror.IsNotFound(err))

	_, err = e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber: "L-4", ProductID: e.p.ID, BranchID: id.New(),
		Quantity: types.NewQuantity(1), ExpirationDate: today,
	})
	assert.True(t, apperror.IsNotFound(err))

	all, err := e.store.Ledger().All(e.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStockByProduct(t *testing.T) {
	e := setup(t)
	late := e.load(t, "LATE", 10, today.AddDate(0, 0, 90))
	soon := e.load(t, "SOON", 5, today.AddDate(0, 0, 7))

	stock, err := e.svc.StockByProduct(e.ctx, e.p.ID, e.b.ID)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantity(15), stock.Total)
	assert.True(t, stock.TotalValue.Equal(types.MustMoney("18.75")))
	require.Len(t, stock.Lots, 2)
	assert.Equal(t, soon.ID, stock.Lots[0].ID)
	assert.Equal(t, 7, stock.Lots[0].DaysToExpire)
	assert.Equal(t, late.ID, stock.Lots[1].ID)
	assert.Equal(t, 90, stock.Lots[1].DaysToExpire)
}

func TestAvailableProductsAndExpiring(t *testing.T) {
	e := setup(t)
	e.load(t, "L-1", 10, today.AddDate(0, 0, 10))
	e.load(t, "L-2", 10, today.AddDate(0, 0, 60))

	other := product.NewProduct("A", "Aspirin", "box", today)
	require.NoError(t, e.store.Products().Create(e.ctx, other))
	_, err := e.svc.CreateInitialLot(e.ctx, e.actor, lot.NewLotRequest{
		LotNumber: "A-1", ProductID: other.ID, BranchID: e.b.ID,
		Quantity: types.NewQuantity(3), ExpirationDate: today.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	products, err := e.svc.AvailableProducts(e.ctx, e.b.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Aspirin", products[0].ProductName)
	assert.Equal(t, "Paracetamol", products[1].ProductName)
	assert.Len(t, products[1].Lots, 2)

	expiring, err := e.svc.ExpiringWithin(e.ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "L-1", expiring[0].LotNumber)
	assert.Equal(t, 10, expiring[0].DaysToExpire)
}
