package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/firewatch/internal/scheduler"
	"github.com/ppiankov/firewatch/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fire feed over HTTP",
	Long: `Serve exposes the feed as JSON for dashboards:

  GET /api/fires/feed?forceFail=true&lat=..&lon=..
  GET /api/fires/clusters
  GET /api/fires/attribution
  GET /health
  GET /metrics

When server.refresh_cron is set, a background job keeps the cache warm.

Example:
  firewatch serve
  firewatch serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.RefreshCron != "" && cfg.Cache.Enabled {
		sched, err := scheduler.New(cfg.Server.RefreshCron, a.resolver, cfg.Live.Timeout*2, a.logger, a.metrics)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()

		// Warm the cache before the first request
		go func() {
			if err := sched.RunOnce(ctx); err != nil {
				a.logger.Warn("initial cache warm failed", zap.Error(err))
			}
		}()
	}

	srv := server.New(cfg.Server, cfg.Receptor, a.resolver, a.metrics, a.logger)
	return srv.Run(ctx)
}
