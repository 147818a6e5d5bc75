// Package main provides the PropGEN outbox dispatcher daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easeworks/propgen/pkg/outbox"
	"github.com/robfig/cron/v3"
)

// SweepManager runs the outbox dispatcher on a fixed schedule until the
// process is signalled to stop.
type SweepManager struct {
	dispatcher *outbox.Dispatcher
	interval   time.Duration
	cron       *cron.Cron
	logger     *slog.Logger
}

func NewSweepManager(dispatcher *outbox.Dispatcher, interval time.Duration, logger *slog.Logger) *SweepManager {
	return &SweepManager{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger.With("module", "sweep_manager"),
	}
}

// Start schedules sweeps and blocks until SIGINT or SIGTERM.
func (sm *SweepManager) Start(ctx context.Context) error {
	smCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sm.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	spec := fmt.Sprintf("@every %s", sm.interval)

	_, err := sm.cron.AddFunc(spec, func() {
		sm.sweep(smCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule outbox sweep: %w", err)
	}

	sm.cron.Start()
	sm.logger.InfoContext(smCtx, "Sweep manager started", "interval", sm.interval)

	sm.waitForSignal(smCtx)

	stopCtx := sm.cron.Stop()
	<-stopCtx.Done()

	sm.logger.InfoContext(smCtx, "Sweep manager stopped")

	return nil
}

func (sm *SweepManager) sweep(ctx context.Context) {
	processed, err := sm.dispatcher.Sweep(ctx)
	if err != nil {
		sm.logger.ErrorContext(ctx, "Outbox sweep failed", "error", err)

		return
	}

	if processed > 0 {
		sm.logger.InfoContext(ctx, "Outbox sweep completed", "processed", processed)
	}
}

func (sm *SweepManager) waitForSignal(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		sm.logger.InfoContext(ctx, "Received signal, shutting down gracefully", "signal", sig)
	case <-ctx.Done():
		sm.logger.InfoContext(ctx, "Context cancelled, shutting down")
	}
}
