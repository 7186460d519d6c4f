package transfer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"branchstock/internal/core/apperror"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/numerator"
	"branchstock/internal/core/tx"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/allocation"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/creditlimit"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
)

var tracer = otel.Tracer("branchstock/transfer")

// ServiceConfig wires the Service collaborators.
type ServiceConfig struct {
	Repo      Repository
	Branches  branch.Repository
	Managers  branch.ManagerIndex
	Products  product.Repository
	Lots      lot.Repository
	Ledger    *ledger.Service
	Guard     *creditlimit.Guard
	Numerator numerator.Generator
	TxManager tx.Manager
	Audit     *audit.Recorder

	// Numbering defaults to SAL-YEAR-NNNNN.
	Numbering numerator.Config

	// Clock defaults to the system clock.
	Clock entity.Clock
}

// Service is the transfer lifecycle manager.
// Create, Receive and Cancel each run as one transaction; any error rolls back
// every lot, ledger and transfer write of that call.
type Service struct {
	repo      Repository
	branches  branch.Repository
	managers  branch.ManagerIndex
	products  product.Repository
	lots      lot.Repository
	allocator *allocation.Allocator
	ledger    *ledger.Service
	guard     *creditlimit.Guard
	numerator numerator.Generator
	numbering numerator.Config
	txManager tx.Manager
	audit     *audit.Recorder
	now       entity.Clock
}

// NewService creates a new Transfer service.
func NewService(cfg ServiceConfig) *Service {
	numbering := cfg.Numbering
	if numbering.Prefix == "" {
		numbering = numerator.DefaultConfig("SAL")
	}
	now := cfg.Clock
	if now == nil {
		now = entity.SystemClock
	}
	return &Service{
		repo:      cfg.Repo,
		branches:  cfg.Branches,
		managers:  cfg.Managers,
		products:  cfg.Products,
		lots:      cfg.Lots,
		allocator: allocation.NewAllocator(cfg.Lots),
		ledger:    cfg.Ledger,
		guard:     cfg.Guard,
		numerator: cfg.Numerator,
		numbering: numbering,
		txManager: cfg.TxManager,
		audit:     cfg.Audit,
		now:       now,
	}
}

// Create ships stock from the actor's branch to the requested destination.
func (s *Service) Create(ctx context.Context, actor appctx.Actor, req CreateRequest) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "transfer.Create")
	defer span.End()

	if err := req.Normalize(); err != nil {
		return nil, endSpan(span, err)
	}

	var (
		t   *Transfer
		sum Summary
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		source, err := s.managedBranch(ctx, actor)
		if err != nil {
			return err
		}

		dest, err := s.branches.GetByID(ctx, req.DestinationBranchID)
		switch {
		case apperror.IsNotFound(err):
			return apperror.NewInvalidDestination("destination branch does not exist").
				WithDetail("branch_id", req.DestinationBranchID.String())
		case err != nil:
			return err
		case !dest.Active:
			return apperror.NewInvalidDestination("destination branch is inactive").
				WithDetail("branch_id", dest.ID.String())
		case dest.ID == source.ID:
			return apperror.NewInvalidDestination("destination must differ from the source branch").
				WithDetail("branch_id", dest.ID.String())
		}

		decision, err := s.guard.CheckForUpdate(ctx, dest.ID, types.Zero())
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}

		t = newTransfer(source.ID, dest.ID, actor.UserID, req.Notes, now)

		if err := s.lockSourceLots(ctx, source.ID, req.Lines); err != nil {
			return err
		}

		entries := make([]*ledger.Entry, 0, len(req.Lines))
		for i, lr := range req.Lines {
			if _, err := product.RequireActive(ctx, s.products, lr.ProductID); err != nil {
				return err
			}
			if !lr.Quantity.IsPositive() {
				return apperror.NewValidation("quantity must be positive").
					WithDetail("field", "lines").
					WithDetail("lineNo", i+1).
					WithDetail("product_id", lr.ProductID.String())
			}

			plan, err := s.allocator.Allocate(ctx, lr.ProductID, source.ID, lr.Quantity)
			if err != nil {
				return err
			}

			for _, take := range plan.Takes {
				next := take.PreviousRemaining - take.Quantity
				if err := s.lots.UpdateRemaining(ctx, take.LotID, take.PreviousRemaining, next); err != nil {
					return err
				}
				entries = append(entries, ledger.NewOutbound(ledger.Subject{
					ProductID: lr.ProductID,
					LotID:     take.LotID,
					BranchID:  source.ID,
					Remaining: take.PreviousRemaining,
					UnitCost:  take.UnitCost,
				}, take.Quantity, ledger.Reference{Kind: ledger.RefTransfer, ID: t.ID}, actor.UserID, now))

				t.addLine(Line{
					ProductID:      lr.ProductID,
					SourceLotID:    take.LotID,
					LotNumber:      take.LotNumber,
					Quantity:       take.Quantity,
					UnitCost:       take.UnitCost,
					TotalCost:      take.TotalCost,
					ExpirationDate: take.ExpirationDate,
				})
			}
		}

		// Numbered last so the counter row is held for as little time as possible.
		number, err := s.numerator.GetNextNumber(ctx, s.numbering, numerator.DefaultOptions(), now)
		if err != nil {
			return fmt.Errorf("generate transfer number: %w", err)
		}
		t.Number = number
		for _, e := range entries {
			e.Notes = "transfer " + number
		}

		if err := t.apply(ActionCreate, actor.UserID, now); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := s.ledger.Record(ctx, entries...); err != nil {
			return err
		}

		sum = summarize(Row{
			Transfer:              *t,
			SourceBranchName:      source.Name,
			DestinationBranchName: dest.Name,
			LinesCount:            len(t.Lines),
		}, &source.ID)
		return nil
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.String("transfer.id", t.ID.String()), attribute.String("transfer.number", t.Number))
	s.record(ctx, actor, audit.KindTransferCreated, t)
	return &sum, nil
}

// lockSourceLots takes row locks on every requested product's lots in product id
// order, so concurrent creates with overlapping products lock in the same order.
func (s *Service) lockSourceLots(ctx context.Context, sourceID id.ID, lines []LineRequest) error {
	productIDs := make([]id.ID, 0, len(lines))
	seen := make(map[id.ID]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		productIDs = append(productIDs, l.ProductID)
	}
	sort.Slice(productIDs, func(i, j int) bool { return id.Less(productIDs[i], productIDs[j]) })

	for _, pid := range productIDs {
		if _, err := s.lots.ListAvailableForUpdate(ctx, pid, sourceID); err != nil {
			return fmt.Errorf("lock lots: %w", err)
		}
	}
	return nil
}

// Receive books the shipped lots into the destination branch.
func (s *Service) Receive(ctx context.Context, actor appctx.Actor, transferID id.ID) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "transfer.Receive",
		trace.WithAttributes(attribute.String("transfer.id", transferID.String())))
	defer span.End()

	var (
		t   *Transfer
		sum Summary
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		var err error
		t, err = s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if _, ok := CanTransition(t.Status, ActionReceive); !ok {
			return apperror.NewInvalidStateTransition(t.ID.String(), string(t.Status), string(ActionReceive))
		}
		if err := s.requireManagerOf(ctx, actor, t.DestinationBranchID, "only the destination branch manager can receive this transfer"); err != nil {
			return err
		}

		ref := ledger.Reference{Kind: ledger.RefReceipt, ID: t.ID, Notes: "receipt " + t.Number}
		entries := make([]*ledger.Entry, 0, len(t.Lines))
		for _, line := range t.Lines {
			entry, err := s.receiveLine(ctx, actor, t, line, ref, now)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		if err := s.ledger.Record(ctx, entries...); err != nil {
			return err
		}

		expected := t.Version
		if err := t.apply(ActionReceive, actor.UserID, now); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}

		sum, err = s.summary(ctx, t, &t.DestinationBranchID)
		return err
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.String("transfer.number", t.Number))
	s.record(ctx, actor, audit.KindTransferReceived, t)
	return &sum, nil
}

// receiveLine adds the line quantity to the matching destination lot,
// creating the lot from the source lot's data when the branch has none.
func (s *Service) receiveLine(ctx context.Context, actor appctx.Actor, t *Transfer, line Line, ref ledger.Reference, now time.Time) (*ledger.Entry, error) {
	existing, err := s.lots.FindByNumber(ctx, t.DestinationBranchID, line.ProductID, line.LotNumber)
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	if err == nil {
		locked, err := s.lots.GetForUpdate(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		prev := locked.RemainingQuantity
		if err := s.lots.UpdateRemaining(ctx, locked.ID, prev, prev+line.Quantity); err != nil {
			return nil, err
		}
		// Received stock is always allocatable.
		if !locked.Active {
			if err := s.lots.SetActive(ctx, locked.ID, true); err != nil {
				return nil, err
			}
		}
		return ledger.NewInbound(ledger.ReasonReceipt, locked.Subject(), line.Quantity, ref, actor.UserID, now), nil
	}

	src, err := s.lots.GetByID(ctx, line.SourceLotID)
	if err != nil {
		return nil, fmt.Errorf("load source lot: %w", err)
	}

	created := &lot.Lot{
		BaseEntity:        entity.NewBaseEntity(now),
		LotNumber:         line.LotNumber,
		ProductID:         line.ProductID,
		BranchID:          t.DestinationBranchID,
		OriginalQuantity:  line.Quantity,
		RemainingQuantity: line.Quantity,
		ExpirationDate:    line.ExpirationDate,
		ManufacturingDate: src.ManufacturingDate,
		UnitCost:          line.UnitCost,
		EntryDate:         now,
		Supplier:          src.Supplier,
		InvoiceNumber:     src.InvoiceNumber,
		Notes:             "received via " + t.Number,
		Active:            true,
	}
	if err := s.lots.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("create received lot: %w", err)
	}

	sub := created.Subject()
	sub.Remaining = 0
	return ledger.NewInbound(ledger.ReasonReceipt, sub, line.Quantity, ref, actor.UserID, now), nil
}

// Cancel returns the shipped quantities to their source lots.
func (s *Service) Cancel(ctx context.Context, actor appctx.Actor, transferID id.ID) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "transfer.Cancel",
		trace.WithAttributes(attribute.String("transfer.id", transferID.String())))
	defer span.End()

	var (
		t   *Transfer
		sum Summary
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		var err error
		t, err = s.repo.GetForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if _, ok := CanTransition(t.Status, ActionCancel); !ok {
			return apperror.NewInvalidStateTransition(t.ID.String(), string(t.Status), string(ActionCancel))
		}
		if err := s.requireManagerOf(ctx, actor, t.SourceBranchID, "only the source branch manager can cancel this transfer"); err != nil {
			return err
		}

		ref := ledger.Reference{Kind: ledger.RefCancellation, ID: t.ID, Notes: "cancellation " + t.Number}
		entries := make([]*ledger.Entry, 0, len(t.Lines))
		for _, line := range t.Lines {
			src, err := s.lots.GetForUpdate(ctx, line.SourceLotID)
			if err != nil {
				return err
			}
			prev := src.RemainingQuantity
			if err := s.lots.UpdateRemaining(ctx, src.ID, prev, prev+line.Quantity); err != nil {
				return err
			}
			entries = append(entries, ledger.NewAdjustment(ledger.ReasonReversal, src.Subject(), line.Quantity, ref, actor.UserID, now))
		}
		if err := s.ledger.Record(ctx, entries...); err != nil {
			return err
		}

		expected := t.Version
		if err := t.apply(ActionCancel, actor.UserID, now); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}

		sum, err = s.summary(ctx, t, &t.SourceBranchID)
		return err
	})
	if err != nil {
		return nil, endSpan(span, err)
	}

	span.SetAttributes(attribute.String("transfer.number", t.Number))
	s.record(ctx, actor, audit.KindTransferCancelled, t)
	return &sum, nil
}

// CheckAvailability previews a FIFO allocation on the actor's branch. Nothing is locked.
func (s *Service) CheckAvailability(ctx context.Context, actor appctx.Actor, productID id.ID, qty types.Quantity) (*Availability, error) {
	source, err := s.managedBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	if _, err := product.RequireActive(ctx, s.products, productID); err != nil {
		return nil, err
	}

	plan, available, err := s.allocator.Preview(ctx, productID, source.ID, qty)
	res := &Availability{
		ProductID:      productID,
		BranchID:       source.ID,
		Required:       qty,
		TotalAvailable: available,
		TotalCost:      types.Zero(),
	}
	switch {
	case apperror.Is(err, apperror.CodeInsufficientStock):
		res.Shortfall = qty - available
		return res, nil
	case err != nil:
		return nil, err
	}

	res.Available = true
	res.Plan = plan
	res.TotalCost = plan.TotalCost
	return res, nil
}

// List returns transfers visible to the actor, newest first.
// Non-admins only see transfers their branch sends or receives.
func (s *Service) List(ctx context.Context, actor appctx.Actor, filter ListFilter) ([]Summary, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	actorBranch, err := s.actorBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		if actorBranch == nil {
			return []Summary{}, nil
		}
		filter.VisibleTo = actorBranch
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, summarize(row, actorBranch))
	}
	return out, nil
}

// Details returns a transfer with lines if the actor may see it.
func (s *Service) Details(ctx context.Context, actor appctx.Actor, transferID id.ID) (*Details, error) {
	t, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	actorBranch, err := s.actorBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && (actorBranch == nil ||
		(*actorBranch != t.SourceBranchID && *actorBranch != t.DestinationBranchID)) {
		return nil, apperror.NewForbidden("transfer is not visible to this user")
	}

	sum, err := s.summary(ctx, t, actorBranch)
	if err != nil {
		return nil, err
	}
	return &Details{
		Summary:     sum,
		InitiatedBy: t.InitiatedBy,
		ReceivedBy:  t.ReceivedBy,
		CancelledBy: t.CancelledBy,
		Notes:       t.Notes,
		Lines:       t.Lines,
	}, nil
}

// Stats counts transfers, units and cost per status. Non-admins are scoped to their branch.
func (s *Service) Stats(ctx context.Context, actor appctx.Actor, filter StatsFilter) (*Stats, error) {
	if !actor.IsAdmin {
		b, err := s.managedBranch(ctx, actor)
		if err != nil {
			return nil, err
		}
		filter.BranchID = &b.ID
	}

	rows, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("transfer stats: %w", err)
	}

	byStatus := make(map[Status]StatusStats, len(rows))
	for _, r := range rows {
		byStatus[r.Status] = r
	}

	out := &Stats{Total: StatusStats{Cost: types.Zero()}}
	for _, st := range AllStatuses {
		r, ok := byStatus[st]
		if !ok {
			r = StatusStats{Status: st, Cost: types.Zero()}
		}
		out.ByStatus = append(out.ByStatus, r)
		out.Total.Count += r.Count
		out.Total.Units += r.Units
		out.Total.Cost = out.Total.Cost.Add(r.Cost)
	}
	return out, nil
}

// Exposure reports the branch's in-flight cost against its limit.
func (s *Service) Exposure(ctx context.Context, branchID id.ID) (creditlimit.Exposure, error) {
	return s.guard.Exposure(ctx, branchID)
}

// managedBranch resolves the actor's branch, which must exist and be active.
func (s *Service) managedBranch(ctx context.Context, actor appctx.Actor) (*branch.Branch, error) {
	branchID, err := s.managers.BranchOf(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	b, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if !b.Active {
		return nil, apperror.NewNotABranchManager(actor.UserID.String())
	}
	return b, nil
}

// actorBranch is managedBranch for read paths: a non-manager yields nil.
func (s *Service) actorBranch(ctx context.Context, actor appctx.Actor) (*id.ID, error) {
	branchID, err := s.managers.BranchOf(ctx, actor.UserID)
	switch {
	case apperror.Is(err, apperror.CodeNotABranchManager):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &branchID, nil
}

func (s *Service) requireManagerOf(ctx context.Context, actor appctx.Actor, branchID id.ID, msg string) error {
	managed, err := s.actorBranch(ctx, actor)
	if err != nil {
		return err
	}
	if managed == nil || *managed != branchID {
		return apperror.NewForbidden(msg).WithDetail("branch_id", branchID.String())
	}
	return nil
}

func (s *Service) summary(ctx context.Context, t *Transfer, actorBranch *id.ID) (Summary, error) {
	src, err := s.branches.GetByID(ctx, t.SourceBranchID)
	if err != nil {
		return Summary{}, err
	}
	dst, err := s.branches.GetByID(ctx, t.DestinationBranchID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(Row{
		Transfer:              *t,
		SourceBranchName:      src.Name,
		DestinationBranchName: dst.Name,
		LinesCount:            len(t.Lines),
	}, actorBranch), nil
}

func (s *Service) record(ctx context.Context, actor appctx.Actor, kind audit.Kind, t *Transfer) {
	s.audit.Record(ctx, actor, audit.Event{
		Kind:       kind,
		EntityType: "transfer",
		EntityID:   t.ID,
		Payload: map[string]any{
			"number":                t.Number,
			"source_branch_id":      t.SourceBranchID.String(),
			"destination_branch_id": t.DestinationBranchID.String(),
			"total_units":           t.TotalUnits.String(),
			"total_cost":            t.TotalCost.String(),
			"status":                string(t.Status),
		},
	})
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
