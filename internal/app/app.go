// Package app assembles the PostgreSQL-backed services shared by the commands.
package app

import (
	"context"
	"fmt"

	"branchstock/internal/config"
	"branchstock/internal/core/numerator"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/creditlimit"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
	"branchstock/internal/domain/transfer"
	"branchstock/internal/infrastructure/storage/postgres"
	"branchstock/internal/infrastructure/storage/postgres/catalog_repo"
	"branchstock/internal/infrastructure/storage/postgres/document_repo"
	"branchstock/internal/infrastructure/storage/postgres/register_repo"
	pgnum "branchstock/pkg/numerator"
)

// Options controls what Open does besides wiring.
type Options struct {
	// Migrate applies pending schema migrations before wiring.
	Migrate bool
}

// App holds the pool and every service built on it.
type App struct {
	Config    *config.Config
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Audit     *postgres.AuditSink

	// Numbers issues transfer numbers in the Numbering format.
	Numbers   *pgnum.Service
	Numbering numerator.Config

	Branches  *branch.Service
	Products  *product.Service
	Lots      *lot.Service
	Ledger    *ledger.Service
	Guard     *creditlimit.Guard
	Transfers *transfer.Service
}

// Open connects to PostgreSQL and wires the services.
// The caller owns the returned App and must Close it.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB.PoolConfig())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if opts.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	a, err := wire(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg *config.Config, pool *postgres.Pool) (*App, error) {
	txm := postgres.NewTxManager(pool, cfg.DB.TxOptions())

	sink, err := postgres.NewAuditSink(txm, cfg.Audit.CompressThreshold)
	if err != nil {
		return nil, fmt.Errorf("audit sink: %w", err)
	}
	recorder := audit.NewRecorder(sink)

	branchRepo := catalog_repo.NewBranchRepo(txm)
	managers := catalog_repo.NewManagerIndex(txm)
	productRepo := catalog_repo.NewProductRepo(txm)
	lotRepo := register_repo.NewLotRepo(txm)
	transferRepo := document_repo.NewTransferRepo(txm)

	ledgerSvc := ledger.NewService(register_repo.NewLedgerRepo(txm))
	guard := creditlimit.NewGuard(branchRepo, transferRepo, cfg.Transfer.DefaultSpendLimit)

	nums := pgnum.New(func(ctx context.Context) pgnum.Querier {
		return txm.GetQuerier(ctx)
	})
	numbering := numerator.DefaultConfig(cfg.Transfer.NumberPrefix)

	return &App{
		Config:    cfg,
		Pool:      pool,
		TxManager: txm,
		Audit:     sink,
		Numbers:   nums,
		Numbering: numbering,
		Branches:  branch.NewService(branchRepo, managers, txm),
		Products:  product.NewService(productRepo),
		Lots:      lot.NewService(lotRepo, productRepo, branchRepo, ledgerSvc, txm, recorder),
		Ledger:    ledgerSvc,
		Guard:     guard,
		Transfers: transfer.NewService(transfer.ServiceConfig{
			Repo:      transferRepo,
			Branches:  branchRepo,
			Managers:  managers,
			Products:  productRepo,
			Lots:      lotRepo,
			Ledger:    ledgerSvc,
			Guard:     guard,
			Numerator: nums,
			TxManager: txm,
			Audit:     recorder,
			Numbering: numbering,
		}),
	}, nil
}

// Close releases the pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
