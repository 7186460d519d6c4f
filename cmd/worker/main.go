// Package main is the entry point for the branchstock background worker.
// It periodically logs each branch's in-flight transfer exposure, lots that
// are about to expire and connection pool statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"branchstock/internal/app"
	"branchstock/internal/config"
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
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting branchstock worker")

	a, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer a.Close()

	worker := NewWorker(WorkerConfig{
		Interval:    cfg.Worker.Interval,
		ExpiryDays:  cfg.Worker.ExpiryWarningDays,
		Branches:    a.Branches,
		Exposure:    a.Transfers,
		Lots:        a.Lots,
		PoolMonitor: a.Pool,
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
