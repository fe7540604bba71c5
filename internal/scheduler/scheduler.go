// Package scheduler keeps the tier-2 cache warm on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ppiankov/firewatch/internal/logging"
	"github.com/ppiankov/firewatch/internal/metrics"
)

// Refresher re-fetches the live tier and rewrites the cache
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs periodic cache refreshes
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Recorder
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 5m") and registers the refresh job. It does not start the schedule.
func New(spec string, refresher Refresher, timeout time.Duration, logger *zap.Logger, rec *metrics.Recorder) (*Scheduler, error) {
	logger = logging.OrNop(logger)
	if timeout <= 0 {
		timeout = time.Minute
	}

	s := &Scheduler{
		// A slow refresh is skipped rather than stacked
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
		metrics:   rec,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background
func (s *Scheduler) Start() {
	s.logger.Info("cache warm refresh scheduled", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop halts the schedule and returns a context done when a running refresh finishes
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs one refresh immediately
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.Refresh(ctx); err != nil {
		s.metrics.RefreshError()
		s.logger.Warn("scheduled refresh failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	s.logger.Debug("scheduled refresh done", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Scheduler) run() {
	_ = s.RunOnce(context.Background())
}
