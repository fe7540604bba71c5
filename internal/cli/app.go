package cli

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/firewatch/internal/cache"
	"github.com/ppiankov/firewatch/internal/logging"
	"github.com/ppiankov/firewatch/internal/metrics"
	"github.com/ppiankov/firewatch/internal/model"
	"github.com/ppiankov/firewatch/internal/pipeline"
	"github.com/ppiankov/firewatch/internal/source"
	"github.com/ppiankov/firewatch/internal/worker"
)

// app bundles everything a command needs to resolve feeds
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	metrics  *metrics.Recorder
	resolver *pipeline.Resolver
	closers  []io.Closer
}

// newApp wires logging, the cache backend, the live source and the backup
// dataset into a resolver
func newApp(cfg *model.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(),
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		store, err = cache.New(cfg.Cache)
		if err != nil {
			// The resolver works without tier 2
			logger.Warn("cache unavailable, continuing without it",
				zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		}
		if c, ok := store.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}

	limiter := worker.NewLimiter(cfg.Live.RateLimit, cfg.Live.RateBurst)
	live, err := source.NewLive(cfg.Live, limiter)
	if err != nil {
		return nil, err
	}

	backup, err := source.LoadBackup(cfg.Feed.BackupFile)
	if err != nil {
		return nil, fmt.Errorf("load backup dataset: %w", err)
	}

	a.resolver, err = pipeline.NewResolver(cfg, pipeline.Deps{
		Live:    live,
		Cache:   store,
		Backup:  backup,
		Logger:  logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("resolver ready",
		zap.String("provider", cfg.Live.Provider),
		zap.Bool("cache", store != nil),
		zap.Int("backup_fires", len(backup)),
	)
	return a, nil
}

// Close releases backend connections and flushes the logger
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
