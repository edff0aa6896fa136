// Package sweeper closes participant windows whose timeout elapsed
// without a stop action ever arriving.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/replyloop/actions-worker/internal/shared/domain/clock"
)

// WindowStore closes overdue windows in bulk.
type WindowStore interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically expires unattended participant windows.
type Sweeper struct {
	store    WindowStore
	clock    clock.Clock
	interval time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	ctx context.Context
}

// New creates a sweeper that runs every interval once started.
func New(store WindowStore, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		clock:    clk,
		interval: interval,
		cron:     cron.New(),
		logger:   logger.With("component", "sweeper"),
	}
}

// Start schedules the sweep and runs one immediately so a restart does
// not wait a full interval to catch up.
func (s *Sweeper) Start(ctx context.Context) error {
	s.ctx = ctx

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.sweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.sweep()
	s.cron.Start()
	s.logger.Info("sweeper started", "interval", s.interval)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	swept, err := s.store.ExpireOverdue(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to expire overdue windows", "error", err)
		return
	}
	if swept > 0 {
		s.logger.Info("expired overdue windows", "count", swept)
	}
}
