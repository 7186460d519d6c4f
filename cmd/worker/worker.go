package main

import (
	"context"
	"time"

	"branchstock/internal/core/id"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/creditlimit"
	"branchstock/internal/domain/lot"
	"branchstock/pkg/logger"
)

// BranchLister lists the branches to report on.
type BranchLister interface {
	List(ctx context.Context, filter branch.ListFilter) ([]*branch.Branch, error)
}

// ExposureReader reports a branch's committed transfer cost against its limit.
type ExposureReader interface {
	Exposure(ctx context.Context, branchID id.ID) (creditlimit.Exposure, error)
}

// ExpiryReader lists available lots expiring within a window.
type ExpiryReader interface {
	ExpiringWithin(ctx context.Context, d time.Duration) ([]lot.View, error)
}

// PoolMonitor logs connection pool statistics.
type PoolMonitor interface {
	LogStats(ctx context.Context)
}

// WorkerConfig wires the Worker collaborators. PoolMonitor is optional.
type WorkerConfig struct {
	Interval    time.Duration
	ExpiryDays  int
	Branches    BranchLister
	Exposure    ExposureReader
	Lots        ExpiryReader
	PoolMonitor PoolMonitor
}

// Worker runs the periodic report.
type Worker struct {
	cfg WorkerConfig
	log *logger.Logger
}

func NewWorker(cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Worker{
		cfg: cfg,
		log: log.WithComponent("worker"),
	}
}

// Run reports once immediately and then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	w.reportExposure(ctx)
	w.reportExpiring(ctx)
	if w.cfg.PoolMonitor != nil {
		w.cfg.PoolMonitor.LogStats(logger.WithLogger(ctx, w.log))
	}
}

func (w *Worker) reportExposure(ctx context.Context) {
	branches, err := w.cfg.Branches.List(ctx, branch.ListFilter{ActiveOnly: true})
	if err != nil {
		w.log.Errorw("failed to list branches", "error", err)
		return
	}

	for _, b := range branches {
		exp, err := w.cfg.Exposure.Exposure(ctx, b.ID)
		if err != nil {
			w.log.Errorw("failed to read exposure", "branch", b.Code, "error", err)
			continue
		}

		fields := []any{
			"branch", b.Code,
			"committed", exp.CommittedTotal.String(),
			"limit", exp.Limit.String(),
			"remaining", exp.Remaining.String(),
		}
		if exp.Remaining.Sign() <= 0 {
			w.log.Warnw("branch at spend limit", fields...)
			continue
		}
		w.log.Infow("branch exposure", fields...)
	}
}

func (w *Worker) reportExpiring(ctx context.Context) {
	if w.cfg.ExpiryDays <= 0 {
		return
	}

	window := time.Duration(w.cfg.ExpiryDays) * 24 * time.Hour
	views, err := w.cfg.Lots.ExpiringWithin(ctx, window)
	if err != nil {
		w.log.Errorw("failed to list expiring lots", "error", err)
		return
	}

	for _, v := range views {
		w.log.Warnw("lot expiring soon",
			"lot_id", v.ID,
			"lot_number", v.LotNumber,
			"branch_id", v.BranchID,
			"remaining", v.RemainingQuantity.String(),
			"days_to_expire", v.DaysToExpire,
		)
	}
	w.log.Infow("expiry check done", "lots", len(views), "window_days", w.cfg.ExpiryDays)
}
