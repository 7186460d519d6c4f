// Package main exports transfers and their per-status totals to an Excel workbook.
//
// Usage:
//
//	report [output.xlsx]
//
// REPORT_FROM and REPORT_TO (YYYY-MM-DD), REPORT_BRANCH (branch code) and
// REPORT_STATUS narrow the export.
package main

import (
	"context"
	"fmt"
	"os"

	"branchstock/internal/app"
	"branchstock/internal/config"
	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/transfer"
	"branchstock/internal/infrastructure/export"
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

	opts, err := parseOptions(os.Getenv, os.Args[1:])
	if err != nil {
		log.Fatalw("invalid options", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	a, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer a.Close()

	if err := run(ctx, a, opts, log); err != nil {
		log.Fatalw("report failed", "error", err)
	}
}

func run(ctx context.Context, a *app.App, opts options, log *logger.Logger) error {
	actor := appctx.Actor{Name: "report", IsAdmin: true}
	ctx = appctx.WithActor(ctx, actor)

	var scope *id.ID
	if opts.Branch != "" {
		branchID, err := branchByCode(ctx, a.Branches, opts.Branch)
		if err != nil {
			return err
		}
		scope = &branchID
	}

	rows, err := collect(ctx, a.Transfers, actor, transfer.ListFilter{
		DateFrom:  opts.From,
		DateTo:    opts.To,
		Status:    opts.Status,
		VisibleTo: scope,
	}, opts.PageSize)
	if err != nil {
		return err
	}

	stats, err := a.Transfers.Stats(ctx, actor, transfer.StatsFilter{
		DateFrom: opts.From,
		DateTo:   opts.To,
		BranchID: scope,
	})
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.WriteTransferReport(out, rows, stats); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log.Infow("report written",
		"path", opts.Output,
		"transfers", len(rows),
		"total_cost", stats.Total.Cost.String(),
	)
	return nil
}

type transferLister interface {
	List(ctx context.Context, actor appctx.Actor, filter transfer.ListFilter) ([]transfer.Summary, error)
}

// collect pages through the listing until a short page comes back.
func collect(ctx context.Context, svc transferLister, actor appctx.Actor, filter transfer.ListFilter, pageSize int) ([]transfer.Summary, error) {
	var out []transfer.Summary
	filter.Limit = pageSize
	for {
		page, err := svc.List(ctx, actor, filter)
		if err != nil {
			return nil, fmt.Errorf("list transfers: %w", err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
		filter.Offset += len(page)
	}
}

type branchLister interface {
	List(ctx context.Context, filter branch.ListFilter) ([]*branch.Branch, error)
}

func branchByCode(ctx context.Context, branches branchLister, code string) (id.ID, error) {
	items, err := branches.List(ctx, branch.ListFilter{})
	if err != nil {
		return id.Nil(), fmt.Errorf("list branches: %w", err)
	}
	for _, b := range items {
		if b.Code == code {
			return b.ID, nil
		}
	}
	return id.Nil(), fmt.Errorf("unknown branch %q", code)
}
