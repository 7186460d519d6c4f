package lot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"branchstock/internal/core/apperror"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/tx"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/product"
)

// NewLotRequest is an initial stock load. Optional fields are pointers.
type NewLotRequest struct {
	LotNumber         string         `json:"lotNumber"`
	ProductID         id.ID          `json:"productId"`
	BranchID          id.ID          `json:"branchId"`
	Quantity          types.Quantity `json:"quantity"`
	ExpirationDate    time.Time      `json:"expirationDate"`
	ManufacturingDate *time.Time     `json:"manufacturingDate,omitempty"`
	EntryDate         *time.Time     `json:"entryDate,omitempty"`

	// UnitCost defaults to the product's catalog cost.
	UnitCost *types.Money `json:"unitCost,omitempty"`

	Supplier      string `json:"supplier,omitempty"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// View is a lot with its distance to expiration.
type View struct {
	*Lot
	DaysToExpire int `json:"daysToExpire"`
}

// ProductStock groups the available lots of one product at one branch.
type ProductStock struct {
	ProductID   id.ID          `json:"productId"`
	ProductCode string         `json:"productCode,omitempty"`
	ProductName string         `json:"productName,omitempty"`
	BranchID    id.ID          `json:"branchId"`
	Total       types.Quantity `json:"total"`
	TotalValue  types.Money    `json:"totalValue"`
	Lots        []View         `json:"lots"`
}

// Service provides stock loading and read views over lots.
type Service struct {
	repo      Repository
	products  product.Repository
	branches  branch.Repository
	ledger    *ledger.Service
	txManager tx.Manager
	audit     *audit.Recorder
	now       entity.Clock
}

// NewService creates a new Lot service.
func NewService(
	repo Repository,
	products product.Repository,
	branches branch.Repository,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
	recorder *audit.Recorder,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		branches:  branches,
		ledger:    ledgerSvc,
		txManager: txManager,
		audit:     recorder,
		now:       entity.SystemClock,
	}
}

// WithClock replaces the clock used for entry dates and expiry math.
func (s *Service) WithClock(c entity.Clock) *Service {
	if c != nil {
		s.now = c
	}
	return s
}

// CreateInitialLot stores a new lot and its inbound ledger entry in one transaction.
func (s *Service) CreateInitialLot(ctx context.Context, actor appctx.Actor, req NewLotRequest) (*Lot, error) {
	now := s.now()
	req.LotNumber = strings.TrimSpace(req.LotNumber)

	l := &Lot{
		BaseEntity:        entity.NewBaseEntity(now),
		LotNumber:         req.LotNumber,
		ProductID:         req.ProductID,
		BranchID:          req.BranchID,
		OriginalQuantity:  req.Quantity,
		RemainingQuantity: req.Quantity,
		ExpirationDate:    req.ExpirationDate,
		ManufacturingDate: req.ManufacturingDate,
		EntryDate:         now,
		Supplier:          req.Supplier,
		InvoiceNumber:     req.InvoiceNumber,
		Notes:             req.Notes,
		Active:            true,
	}
	if req.EntryDate != nil {
		l.EntryDate = *req.EntryDate
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := product.RequireActive(ctx, s.products, req.ProductID)
		if err != nil {
			return err
		}
		if _, err := s.branches.GetByID(ctx, req.BranchID); err != nil {
			return err
		}

		l.UnitCost = p.UnitCost
		if req.UnitCost != nil {
			l.UnitCost = *req.UnitCost
		}
		if err := l.Validate(ctx); err != nil {
			return err
		}

		existing, err := s.repo.FindByNumber(ctx, l.BranchID, l.ProductID, l.LotNumber)
		switch {
		case err == nil && existing != nil:
			return apperror.NewDuplicate("lot", "lot_number", l.LotNumber)
		case err != nil && !apperror.IsNotFound(err):
			return err
		}

		if err := s.repo.Create(ctx, l); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}

		// The entry starts from zero: the whole lot is the inbound quantity.
		sub := l.Subject()
		sub.Remaining = 0
		entry := ledger.NewInbound(ledger.ReasonInitialLoad, sub, l.OriginalQuantity,
			ledger.Reference{Kind: ledger.RefInitialLoad, ID: l.ID, Notes: l.Notes},
			actor.UserID, now)
		return s.ledger.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, audit.Event{
		Kind:       audit.KindLotCreated,
		EntityType: "lot",
		EntityID:   l.ID,
		Payload: map[string]any{
			"lot_number": l.LotNumber,
			"branch_id":  l.BranchID.String(),
			"quantity":   l.OriginalQuantity.String(),
		},
	})
	return l, nil
}

// GetByID returns a lot.
func (s *Service) GetByID(ctx context.Context, lotID id.ID) (*Lot, error) {
	return s.repo.GetByID(ctx, lotID)
}

// StockByProduct returns the available lots of productID at branchID in FIFO order.
func (s *Service) StockByProduct(ctx context.Context, productID, branchID id.ID) (*ProductStock, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	lots, err := s.repo.ListAvailable(ctx, productID, branchID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}

	stock := s.group(p, branchID, lots)
	return &stock, nil
}

// AvailableProducts groups every available lot at branchID by product, ordered by product name.
func (s *Service) AvailableProducts(ctx context.Context, branchID id.ID) ([]ProductStock, error) {
	if _, err := s.branches.GetByID(ctx, branchID); err != nil {
		return nil, err
	}
	lots, err := s.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}

	byProduct := make(map[id.ID][]*Lot)
	var productIDs []id.ID
	for _, l := range lots {
		if _, seen := byProduct[l.ProductID]; !seen {
			productIDs = append(productIDs, l.ProductID)
		}
		byProduct[l.ProductID] = append(byProduct[l.ProductID], l)
	}

	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	result := make([]ProductStock, 0, len(productIDs))
	for _, pid := range productIDs {
		p, ok := products[pid]
		if !ok || !p.Active {
			continue
		}
		result = append(result, s.group(p, branchID, byProduct[pid]))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductName != result[j].ProductName {
			return result[i].ProductName < result[j].ProductName
		}
		return id.Less(result[i].ProductID, result[j].ProductID)
	})
	return result, nil
}

// ExpiringWithin lists available lots at any branch expiring within d.
func (s *Service) ExpiringWithin(ctx context.Context, d time.Duration) ([]View, error) {
	now := s.now()
	lots, err := s.repo.ListExpiring(ctx, now.Add(d))
	if err != nil {
		return nil, fmt.Errorf("list expiring lots: %w", err)
	}
	views := make([]View, 0, len(lots))
	for _, l := range lots {
		views = append(views, View{Lot: l, DaysToExpire: l.DaysToExpire(now)})
	}
	return views, nil
}

func (s *Service) group(p *product.Product, branchID id.ID, lots []*Lot) ProductStock {
	now := s.now()
	SortFIFO(lots)

	stock := ProductStock{
		ProductID:   p.ID,
		ProductCode: p.Code,
		ProductName: p.Name,
		BranchID:    branchID,
		TotalValue:  types.Zero(),
		Lots:        make([]View, 0, len(lots)),
	}
	for _, l := range lots {
		stock.Total += l.RemainingQuantity
		stock.TotalValue = stock.TotalValue.Add(l.RemainingQuantity.Cost(l.UnitCost))
		stock.Lots = append(stock.Lots, View{Lot: l, DaysToExpire: l.DaysToExpire(now)})
	}
	return stock
}
