// Package main loads branches, products, managers and initial lots into the database.
//
// The data comes from the JSON file named by SEED_FILE, or the built-in demo
// fixture when it is unset. Records that already exist are skipped, so the
// command can be re-run.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"branchstock/internal/app"
	"branchstock/internal/config"
	"branchstock/internal/core/apperror"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
	"branchstock/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := logger.WithLogger(context.Background(), log)

	f, err := loadFixture(os.Getenv("SEED_FILE"))
	if err != nil {
		log.Fatalw("failed to load fixture", "error", err)
	}

	a, err := app.Open(ctx, cfg, app.Options{Migrate: true})
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	defer a.Close()

	log.Info("connected to database")

	actor := appctx.Actor{Name: "seed", IsAdmin: true}
	ctx = appctx.WithActor(ctx, actor)

	branches, err := seedBranches(ctx, a, f.Branches, log)
	if err != nil {
		log.Fatalw("failed to seed branches", "error", err)
	}
	products, err := seedProducts(ctx, a, f.Products, log)
	if err != nil {
		log.Fatalw("failed to seed products", "error", err)
	}
	if err := seedLots(ctx, a, actor, f.Lots, branches, products, log); err != nil {
		log.Fatalw("failed to seed lots", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedBranches(ctx context.Context, a *app.App, items []branchFixture, log *logger.Logger) (map[string]id.ID, error) {
	existing, err := a.Branches.List(ctx, branch.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	byCode := make(map[string]id.ID, len(existing)+len(items))
	for _, b := range existing {
		byCode[b.Code] = b.ID
	}

	for _, item := range items {
		if branchID, ok := byCode[item.Code]; ok {
			log.Infow("branch already exists", "code", item.Code, "branch_id", branchID)
			continue
		}

		b := branch.NewBranch(item.Code, item.Name, time.Now())
		b.Address = item.Address
		b.City = item.City
		b.Phone = item.Phone
		b.Email = item.Email
		b.SpendLimit = item.SpendLimit
		b.ManagerID = item.ManagerID

		if err := a.Branches.Create(ctx, b); err != nil {
			return nil, fmt.Errorf("branch %s: %w", item.Code, err)
		}
		byCode[b.Code] = b.ID
		log.Infow("branch created", "code", b.Code, "branch_id", b.ID)
	}
	return byCode, nil
}

func seedProducts(ctx context.Context, a *app.App, items []productFixture, log *logger.Logger) (map[string]id.ID, error) {
	existing, err := a.Products.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	byCode := make(map[string]id.ID, len(existing)+len(items))
	for _, p := range existing {
		byCode[p.Code] = p.ID
	}

	for _, item := range items {
		if _, ok := byCode[item.Code]; ok {
			log.Infow("product already exists", "code", item.Code)
			continue
		}

		p := product.NewProduct(item.Code, item.Name, item.UnitOfMeasure, time.Now())
		p.UnitCost = item.UnitCost
		p.Price = item.Price

		if err := a.Products.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("product %s: %w", item.Code, err)
		}
		byCode[p.Code] = p.ID
		log.Infow("product created", "code", p.Code, "product_id", p.ID)
	}
	return byCode, nil
}

func seedLots(
	ctx context.Context,
	a *app.App,
	actor appctx.Actor,
	items []lotFixture,
	branches, products map[string]id.ID,
	log *logger.Logger,
) error {
	for _, item := range items {
		expires, err := item.expiration()
		if err != nil {
			return fmt.Errorf("lot %s: %w", item.LotNumber, err)
		}

		l, err := a.Lots.CreateInitialLot(ctx, actor, lot.NewLotRequest{
			LotNumber:      item.LotNumber,
			ProductID:      products[item.Product],
			BranchID:       branches[item.Branch],
			Quantity:       item.Quantity,
			ExpirationDate: expires,
			UnitCost:       item.UnitCost,
			Supplier:       item.Supplier,
			InvoiceNumber:  item.InvoiceNumber,
			Notes:          item.Notes,
		})
		if apperror.Is(err, apperror.CodeDuplicate) {
			log.Infow("lot already exists", "branch", item.Branch, "lot_number", item.LotNumber)
			continue
		}
		if err != nil {
			return fmt.Errorf("lot %s at %s: %w", item.LotNumber, item.Branch, err)
		}
		log.Infow("lot created",
			"branch", item.Branch,
			"product", item.Product,
			"lot_number", l.LotNumber,
			"quantity", l.OriginalQuantity.String(),
		)
	}
	return nil
}
