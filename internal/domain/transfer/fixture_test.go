package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/creditlimit"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
	"branchstock/internal/domain/transfer"
	"branchstock/internal/infrastructure/storage/memory"
)

var today = time.Date(2024, 11, 15, 9, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func qty(units int64) types.Quantity { return types.NewQuantity(units) }

// fixture: branch A (manager U1) holds lots B1 (100u, exp 2025-01-01, cost 2)
// and B2 (50u, exp 2025-06-01, cost 3) of product P. Branch C is managed by UC,
// branch D by UD. Admin manages nothing.
type fixture struct {
	ctx      context.Context
	store    *memory.Store
	svc      *transfer.Service
	branches *branch.Service
	lots     *lot.Service

	A, C, D *branch.Branch
	P       *product.Product
	B1, B2  *lot.Lot

	U1, UC, UD, Admin appctx.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	ctx := context.Background()
	recorder := audit.NewRecorder(store)
	ledgerSvc := ledger.NewService(store.Ledger())

	f := &fixture{
		ctx:      ctx,
		store:    store,
		branches: branch.NewService(store.Branches(), store.Managers(), store),
		U1:       appctx.Actor{UserID: id.New(), Name: "u1"},
		UC:       appctx.Actor{UserID: id.New(), Name: "uc"},
		UD:       appctx.Actor{UserID: id.New(), Name: "ud"},
		Admin:    appctx.Actor{UserID: id.New(), Name: "admin", IsAdmin: true},
	}

	f.lots = lot.NewService(store.Lots(), store.Products(), store.Branches(), ledgerSvc, store, recorder)
	f.lots.WithClock(func() time.Time { return today })

	f.svc = transfer.NewService(transfer.ServiceConfig{
		Repo:      store.Transfers(),
		Branches:  store.Branches(),
		Managers:  store.Managers(),
		Products:  store.Products(),
		Lots:      store.Lots(),
		Ledger:    ledgerSvc,
		Guard:     creditlimit.NewGuard(store.Branches(), store.Transfers(), types.MustMoney("5000")),
		Numerator: store,
		TxManager: store,
		Audit:     recorder,
		Clock:     func() time.Time { return today },
	})

	f.A = f.newBranch(t, "A", f.U1)
	f.C = f.newBranch(t, "C", f.UC)
	f.D = f.newBranch(t, "D", f.UD)

	f.P = product.NewProduct("P", "Product P", "unit", today)
	f.P.UnitCost = types.MustMoney("2")
	require.NoError(t, product.NewService(store.Products()).Create(ctx, f.P))

	f.B1 = f.newLot(t, f.A, "B1", 100, date(2025, 1, 1), "2")
	f.B2 = f.newLot(t, f.A, "B2", 50, date(2025, 6, 1), "3")
	return f
}

func (f *fixture) newBranch(t *testing.T, code string, manager appctx.Actor) *branch.Branch {
	t.Helper()
	b := branch.NewBranch(code, "Branch "+code, today)
	require.NoError(t, f.branches.Create(f.ctx, b))
	require.NoError(t, f.branches.AssignManager(f.ctx, b.ID, manager.UserID))
	return b
}

func (f *fixture) newLot(t *testing.T, b *branch.Branch, number string, units int64, exp time.Time, cost string) *lot.Lot {
	t.Helper()
	unitCost := types.MustMoney(cost)
	l, err := f.lots.CreateInitialLot(f.ctx, f.Admin, lot.NewLotRequest{
		LotNumber:      number,
		ProductID:      f.P.ID,
		BranchID:       b.ID,
		Quantity:       qty(units),
		ExpirationDate: exp,
		UnitCost:       &unitCost,
		Supplier:       "Acme",
		InvoiceNumber:  "INV-" + number,
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) remaining(t *testing.T, lotID id.ID) types.Quantity {
	t.Helper()
	l, err := f.store.Lots().GetByID(f.ctx, lotID)
	require.NoError(t, err)
	return l.RemainingQuantity
}

func (f *fixture) create(t *testing.T, units int64) *transfer.Summary {
	t.Helper()
	sum, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(units)}},
	})
	require.NoError(t, err)
	return sum
}
