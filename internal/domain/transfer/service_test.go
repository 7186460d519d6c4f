package transfer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/apperror"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/product"
	"branchstock/internal/domain/transfer"
)

func TestCreate_DrawsFIFOAcrossLots(t *testing.T) {
	f := newFixture(t)

	sum := f.create(t, 120)

	assert.Equal(t, "SAL-2024-00001", sum.Number)
	assert.Equal(t, transfer.StatusSent, sum.Status)
	assert.Equal(t, "Branch A", sum.SourceBranchName)
	assert.Equal(t, "Branch C", sum.DestinationBranchName)
	assert.Equal(t, qty(120), sum.TotalUnits)
	assert.True(t, sum.TotalCost.Equal(types.MustMoney("260")), "got %s", sum.TotalCost)
	assert.Equal(t, 2, sum.LinesCount)
	assert.True(t, sum.CanCancel)
	assert.False(t, sum.CanReceive)
	require.NotNil(t, sum.SentAt)

	assert.Equal(t, qty(0), f.remaining(t, f.B1.ID))
	assert.Equal(t, qty(30), f.remaining(t, f.B2.ID))

	details, err := f.svc.Details(f.ctx, f.U1, sum.ID)
	require.NoError(t, err)
	require.Len(t, details.Lines, 2)
	assert.Equal(t, "B1", details.Lines[0].LotNumber)
	assert.Equal(t, qty(100), details.Lines[0].Quantity)
	assert.Equal(t, "B2", details.Lines[1].LotNumber)
	assert.Equal(t, qty(20), details.Lines[1].Quantity)

	entries, err := f.store.Ledger().ListByReference(f.ctx, sum.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var drawn types.Quantity
	for _, e := range entries {
		assert.Equal(t, ledger.MovementOutbound, e.MovementType)
		assert.Equal(t, ledger.RefTransfer, e.ReferenceKind)
		assert.Equal(t, f.U1.UserID, e.ActorID)
		drawn += e.Quantity
	}
	assert.Equal(t, sum.TotalUnits, drawn)
}

func TestCreate_InsufficientStockLeavesLotsUnchanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(200)}},
	})
	require.True(t, apperror.Is(err, apperror.CodeInsufficientStock), "got %v", err)

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, qty(200).String(), appErr.Details["required"])
	assert.Equal(t, qty(150).String(), appErr.Details["available"])
	assert.Equal(t, f.P.ID.String(), appErr.Details["product_id"])

	assert.Equal(t, qty(100), f.remaining(t, f.B1.ID))
	assert.Equal(t, qty(50), f.remaining(t, f.B2.ID))

	all, err := f.store.Ledger().All(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "only the initial loads")

	// The failed create did not consume a number.
	assert.Equal(t, "SAL-2024-00001", f.create(t, 1).Number)
}

func TestCreate_LaterLinesSeeEarlierDecrements(t *testing.T) {
	f := newFixture(t)

	sum, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines: []transfer.LineRequest{
			{ProductID: f.P.ID, Quantity: qty(60)},
			{ProductID: f.P.ID, Quantity: qty(60)},
		},
	})
	require.NoError(t, err)

	details, err := f.svc.Details(f.ctx, f.U1, sum.ID)
	require.NoError(t, err)
	require.Len(t, details.Lines, 3)
	assert.Equal(t, []string{"B1", "B1", "B2"}, []string{
		details.Lines[0].LotNumber, details.Lines[1].LotNumber, details.Lines[2].LotNumber,
	})
	assert.Equal(t, qty(40), details.Lines[1].Quantity)
	assert.Equal(t, qty(20), details.Lines[2].Quantity)
	assert.Equal(t, qty(30), f.remaining(t, f.B2.ID))
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		actor func(f *fixture) appctx.Actor
		req   func(f *fixture) transfer.CreateRequest
		code  string
	}{
		{
			name:  "not a branch manager",
			actor: func(f *fixture) appctx.Actor { return f.Admin },
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: f.C.ID, Lines: []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(1)}}}
			},
			code: apperror.CodeNotABranchManager,
		},
		{
			name: "same branch",
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: f.A.ID, Lines: []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(1)}}}
			},
			code: apperror.CodeInvalidDestination,
		},
		{
			name: "unknown destination",
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: id.New(), Lines: []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(1)}}}
			},
			code: apperror.CodeInvalidDestination,
		},
		{
			name: "zero quantity",
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: f.C.ID, Lines: []transfer.LineRequest{{ProductID: f.P.ID, Quantity: 0}}}
			},
			code: apperror.CodeValidation,
		},
		{
			name: "no lines",
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: f.C.ID}
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown product",
			req: func(f *fixture) transfer.CreateRequest {
				return transfer.CreateRequest{DestinationBranchID: f.C.ID, Lines: []transfer.LineRequest{{ProductID: id.New(), Quantity: qty(1)}}}
			},
			code: apperror.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			actor := f.U1
			if tt.actor != nil {
				actor = tt.actor(f)
			}

			_, err := f.svc.Create(f.ctx, actor, tt.req(f))
			assert.True(t, apperror.Is(err, tt.code), "want %s, got %v", tt.code, err)
			assert.Equal(t, qty(100), f.remaining(t, f.B1.ID))
		})
	}
}

func TestCreate_InactiveDestination(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.branches.Deactivate(f.ctx, f.C.ID))

	_, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(1)}},
	})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidDestination))
}

func TestCreate_InactiveProduct(t *testing.T) {
	f := newFixture(t)
	p := product.NewProduct("X", "Retired", "unit", today)
	p.Active = false
	require.NoError(t, f.store.Products().Create(f.ctx, p))

	_, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: p.ID, Quantity: qty(1)}},
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestCreate_CreditLimitChecksCommittedBeforeAdding(t *testing.T) {
	f := newFixture(t)
	limit := types.MustMoney("250")
	f.C.SpendLimit = &limit
	require.NoError(t, f.store.Branches().Update(f.ctx, f.C))

	// Committed is 0 < 250: approved even though this transfer alone costs 260.
	first := f.create(t, 120)
	assert.True(t, first.TotalCost.GreaterThan(limit))

	exp, err := f.svc.Exposure(f.ctx, f.C.ID)
	require.NoError(t, err)
	assert.True(t, exp.CommittedTotal.Equal(types.MustMoney("260")))
	assert.True(t, exp.Remaining.Equal(types.MustMoney("-10")))

	// Committed 260 >= 250: rejected before any allocation.
	_, err = f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(1)}},
	})
	require.True(t, apperror.Is(err, apperror.CodeCreditLimitExceeded), "got %v", err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "260", appErr.Details["committed"])
	assert.Equal(t, "250", appErr.Details["limit"])
	assert.Equal(t, qty(30), f.remaining(t, f.B2.ID))

	// Receiving releases the exposure.
	_, err = f.svc.Receive(f.ctx, f.UC, first.ID)
	require.NoError(t, err)
	f.create(t, 1)
}

func TestReceive_CreatesLotsAtDestination(t *testing.T) {
	f := newFixture(t)
	sent := f.create(t, 120)

	got, err := f.svc.Receive(f.ctx, f.UC, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusReceived, got.Status)
	require.NotNil(t, got.ReceivedAt)
	assert.False(t, got.CanReceive)

	b1, err := f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B1")
	require.NoError(t, err)
	assert.Equal(t, qty(100), b1.RemainingQuantity)
	assert.Equal(t, qty(100), b1.OriginalQuantity)
	assert.Equal(t, f.B1.ExpirationDate, b1.ExpirationDate)
	assert.True(t, b1.UnitCost.Equal(f.B1.UnitCost))
	assert.Equal(t, "Acme", b1.Supplier)
	assert.Equal(t, "INV-B1", b1.InvoiceNumber)

	b2, err := f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B2")
	require.NoError(t, err)
	assert.Equal(t, qty(20), b2.RemainingQuantity)

	details, err := f.svc.Details(f.ctx, f.UC, sent.ID)
	require.NoError(t, err)
	require.NotNil(t, details.ReceivedBy)
	assert.Equal(t, f.UC.UserID, *details.ReceivedBy)

	entries, err := f.store.Ledger().ListByReference(f.ctx, sent.ID)
	require.NoError(t, err)
	var inbound int
	for _, e := range entries {
		if e.MovementType == ledger.MovementInbound {
			inbound++
			assert.Equal(t, f.C.ID, e.BranchID)
		}
	}
	assert.Equal(t, 2, inbound)

	exp, err := f.svc.Exposure(f.ctx, f.C.ID)
	require.NoError(t, err)
	assert.True(t, exp.CommittedTotal.IsZero())
}

func TestReceive_IncrementsExistingDestinationLot(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, first.ID)
	require.NoError(t, err)

	second := f.create(t, 15)
	_, err = f.svc.Receive(f.ctx, f.UC, second.ID)
	require.NoError(t, err)

	b1, err := f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B1")
	require.NoError(t, err)
	assert.Equal(t, qty(25), b1.RemainingQuantity)

	history, err := f.store.Ledger().ListByLot(f.ctx, b1.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, qty(10), history[1].PreviousRemaining)
	assert.Equal(t, qty(25), history[1].NewRemaining)
}

func TestReceive_ReactivatesDeactivatedDestinationLot(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, first.ID)
	require.NoError(t, err)

	b1, err := f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B1")
	require.NoError(t, err)
	require.NoError(t, f.store.Lots().SetActive(f.ctx, b1.ID, false))

	available, err := f.store.Lots().ListAvailable(f.ctx, f.P.ID, f.C.ID)
	require.NoError(t, err)
	assert.Empty(t, available)

	second := f.create(t, 15)
	_, err = f.svc.Receive(f.ctx, f.UC, second.ID)
	require.NoError(t, err)

	got, err := f.store.Lots().GetByID(f.ctx, b1.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, qty(25), got.RemainingQuantity)

	available, err = f.store.Lots().ListAvailable(f.ctx, f.P.ID, f.C.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, b1.ID, available[0].ID)
}

func TestReceive_SetActiveFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, first.ID)
	require.NoError(t, err)
	b1, err := f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B1")
	require.NoError(t, err)
	require.NoError(t, f.store.Lots().SetActive(f.ctx, b1.ID, false))

	second := f.create(t, 15)
	f.store.FailOn("lot.set_active", errors.New("disk full"))
	_, err = f.svc.Receive(f.ctx, f.UC, second.ID)
	require.Error(t, err)

	got, err := f.store.Lots().GetByID(f.ctx, b1.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, qty(10), got.RemainingQuantity)
}

func TestTerminalStatesRejectSecondTransition(t *testing.T) {
	f := newFixture(t)

	received := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, received.ID)
	require.NoError(t, err)
	_, err = f.svc.Receive(f.ctx, f.UC, received.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStateTransition))
	_, err = f.svc.Cancel(f.ctx, f.U1, received.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStateTransition))

	cancelled := f.create(t, 10)
	_, err = f.svc.Cancel(f.ctx, f.U1, cancelled.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, f.U1, cancelled.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStateTransition))
	_, err = f.svc.Receive(f.ctx, f.UC, cancelled.ID)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStateTransition))
}

func TestReceiveAndCancel_RequireTheRightManager(t *testing.T) {
	f := newFixture(t)
	sent := f.create(t, 10)

	_, err := f.svc.Receive(f.ctx, f.U1, sent.ID)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
	_, err = f.svc.Receive(f.ctx, f.Admin, sent.ID)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
	_, err = f.svc.Cancel(f.ctx, f.UC, sent.ID)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))

	_, err = f.svc.Receive(f.ctx, f.UC, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestCancel_RestoresLotsAndNetsLedgerToZero(t *testing.T) {
	f := newFixture(t)
	sent := f.create(t, 120)

	got, err := f.svc.Cancel(f.ctx, f.U1, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	assert.Equal(t, qty(100), f.remaining(t, f.B1.ID))
	assert.Equal(t, qty(50), f.remaining(t, f.B2.ID))

	entries, err := f.store.Ledger().ListByReference(f.ctx, sent.ID)
	require.NoError(t, err)
	net := map[id.ID]types.Quantity{}
	for _, e := range entries {
		net[e.LotID] += e.SignedQuantity()
		if e.MovementType == ledger.MovementAdjustment {
			assert.Equal(t, ledger.ReasonReversal, e.Reason)
			assert.Equal(t, ledger.RefCancellation, e.ReferenceKind)
		}
	}
	assert.Len(t, net, 2)
	for lotID, q := range net {
		assert.True(t, q.IsZero(), "lot %s nets %s", lotID, q)
	}

	exp, err := f.svc.Exposure(f.ctx, f.C.ID)
	require.NoError(t, err)
	assert.True(t, exp.CommittedTotal.IsZero())
}

func TestCreate_FailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("ledger.append", errors.New("disk full"))

	_, err := f.svc.Create(f.ctx, f.U1, transfer.CreateRequest{
		DestinationBranchID: f.C.ID,
		Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(120)}},
	})
	require.Error(t, err)

	assert.Equal(t, qty(100), f.remaining(t, f.B1.ID))
	assert.Equal(t, qty(50), f.remaining(t, f.B2.ID))
	list, err := f.svc.List(f.ctx, f.Admin, transfer.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "SAL-2024-00001", f.create(t, 1).Number)
}

func TestReceive_FailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	sent := f.create(t, 120)
	f.store.FailOn("transfer.update_status", errors.New("disk full"))

	_, err := f.svc.Receive(f.ctx, f.UC, sent.ID)
	require.Error(t, err)

	_, err = f.store.Lots().FindByNumber(f.ctx, f.C.ID, f.P.ID, "B1")
	assert.True(t, apperror.IsNotFound(err))
	details, err := f.svc.Details(f.ctx, f.UC, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusSent, details.Status)
}

func TestCreate_ConcurrentCallsNeverOverdraw(t *testing.T) {
	f := newFixture(t)

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
		short   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := f.svc.Create(context.Background(), f.U1, transfer.CreateRequest{
				DestinationBranchID: f.C.ID,
				Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(10)}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock), "got %v", err)
				short++
				return
			}
			assert.False(t, numbers[sum.Number], "duplicate number %s", sum.Number)
			numbers[sum.Number] = true
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, 15)
	assert.Equal(t, 5, short)
	assert.Equal(t, qty(0), f.remaining(t, f.B1.ID))
	assert.Equal(t, qty(0), f.remaining(t, f.B2.ID))
}

func TestCreate_ConcurrentCallsShareOneCreditCheck(t *testing.T) {
	f := newFixture(t)
	limit := types.MustMoney("10")
	f.C.SpendLimit = &limit
	require.NoError(t, f.store.Branches().Update(f.ctx, f.C))

	// Each transfer costs 20; once one is committed the destination is over its limit.
	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), f.U1, transfer.CreateRequest{
				DestinationBranchID: f.C.ID,
				Lines:               []transfer.LineRequest{{ProductID: f.P.ID, Quantity: qty(10)}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, apperror.Is(err, apperror.CodeCreditLimitExceeded), "got %v", err)
				rejected++
				return
			}
			approved++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, qty(90), f.remaining(t, f.B1.ID))

	exp, err := f.svc.Exposure(f.ctx, f.C.ID)
	require.NoError(t, err)
	assert.True(t, exp.CommittedTotal.Equal(types.MustMoney("20")))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.CheckAvailability(f.ctx, f.U1, f.P.ID, qty(120))
	require.NoError(t, err)
	assert.True(t, ok.Available)
	assert.Equal(t, qty(150), ok.TotalAvailable)
	require.NotNil(t, ok.Plan)
	assert.Len(t, ok.Plan.Takes, 2)
	assert.True(t, ok.TotalCost.Equal(types.MustMoney("260")))

	short, err := f.svc.CheckAvailability(f.ctx, f.U1, f.P.ID, qty(200))
	require.NoError(t, err)
	assert.False(t, short.Available)
	assert.Nil(t, short.Plan)
	assert.Equal(t, qty(50), short.Shortfall)

	// Nothing was reserved.
	assert.Equal(t, qty(100), f.remaining(t, f.B1.ID))

	_, err = f.svc.CheckAvailability(f.ctx, f.Admin, f.P.ID, qty(1))
	assert.True(t, apperror.Is(err, apperror.CodeNotABranchManager))
}

func TestList_Visibility(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, 10)
	second := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, second.ID)
	require.NoError(t, err)

	mine, err := f.svc.List(f.ctx, f.UC, transfer.ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	byID := map[id.ID]transfer.Summary{}
	for _, s := range mine {
		byID[s.ID] = s
	}
	assert.True(t, byID[first.ID].CanReceive)
	assert.False(t, byID[first.ID].CanCancel)
	assert.False(t, byID[second.ID].CanReceive)

	outsider, err := f.svc.List(f.ctx, f.UD, transfer.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, outsider)

	nobody, err := f.svc.List(f.ctx, appctx.Actor{UserID: id.New()}, transfer.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, nobody)

	all, err := f.svc.List(f.ctx, f.Admin, transfer.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sent := transfer.StatusSent
	onlySent, err := f.svc.List(f.ctx, f.Admin, transfer.ListFilter{Status: &sent})
	require.NoError(t, err)
	require.Len(t, onlySent, 1)
	assert.Equal(t, first.ID, onlySent[0].ID)

	search, err := f.svc.List(f.ctx, f.Admin, transfer.ListFilter{Search: "sal-2024-00002"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, second.ID, search[0].ID)

	_, err = f.svc.Details(f.ctx, f.UD, first.ID)
	assert.True(t, apperror.Is(err, apperror.CodeForbidden))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.create(t, 10)
	cancelled := f.create(t, 5)
	_, err := f.svc.Cancel(f.ctx, f.U1, cancelled.ID)
	require.NoError(t, err)

	stats, err := f.svc.Stats(f.ctx, f.Admin, transfer.StatsFilter{})
	require.NoError(t, err)

	require.Len(t, stats.ByStatus, len(transfer.AllStatuses))
	counts := map[transfer.Status]int{}
	for _, s := range stats.ByStatus {
		counts[s.Status] = s.Count
	}
	assert.Equal(t, 1, counts[transfer.StatusSent])
	assert.Equal(t, 1, counts[transfer.StatusCancelled])
	assert.Equal(t, 0, counts[transfer.StatusReceived])
	assert.Equal(t, 2, stats.Total.Count)
	assert.Equal(t, qty(15), stats.Total.Units)

	outsider, err := f.svc.Stats(f.ctx, f.UD, transfer.StatsFilter{})
	require.NoError(t, err)
	assert.Zero(t, outsider.Total.Count)
}

func TestLifecycle_EmitsAuditEvents(t *testing.T) {
	f := newFixture(t)
	sent := f.create(t, 10)
	_, err := f.svc.Receive(f.ctx, f.UC, sent.ID)
	require.NoError(t, err)

	var kinds []audit.Kind
	for _, e := range f.store.Events() {
		if e.EntityType == "transfer" {
			kinds = append(kinds, e.Kind)
			assert.Equal(t, sent.ID, e.EntityID)
		}
	}
	assert.Equal(t, []audit.Kind{audit.KindTransferCreated, audit.KindTransferReceived}, kinds)
}
