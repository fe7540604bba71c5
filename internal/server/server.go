// Package server exposes the fire feed over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/firewatch/internal/logging"
	"github.com/ppiankov/firewatch/internal/metrics"
	"github.com/ppiankov/firewatch/internal/model"
)

// FeedResolver produces feeds for the API
type FeedResolver interface {
	ResolveFor(ctx context.Context, receptor model.Position, forceFail bool) *model.FireFeed
}

// Server is the HTTP API
type Server struct {
	cfg      model.ServerConfig
	receptor model.Position
	resolver FeedResolver
	metrics  *metrics.Recorder
	logger   *zap.Logger
	started  time.Time
	router   *gin.Engine
}

// New builds the server and its routes
func New(cfg model.ServerConfig, receptor model.Position, resolver FeedResolver, rec *metrics.Recorder, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:      cfg,
		receptor: receptor,
		resolver: resolver,
		metrics:  rec,
		logger:   logger,
		started:  time.Now(),
	}
	s.router = s.setupRouter()
	return s
}

// Router returns the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api/fires")
	{
		api.GET("/feed", s.feed)
		api.GET("/clusters", s.clusters)
		api.GET("/attribution", s.attribution)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("api stopped")
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.HTTPRequest(route, strconv.Itoa(code))
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", code),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// resolve parses the common query parameters and resolves a feed
func (s *Server) resolve(c *gin.Context) (*model.FireFeed, bool) {
	forceFail := false
	if raw := c.Query("forceFail"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "forceFail must be a boolean"})
			return nil, false
		}
		forceFail = v
	}

	receptor, err := s.receptorFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return s.resolver.ResolveFor(c.Request.Context(), receptor, forceFail), true
}

func (s *Server) receptorFromQuery(c *gin.Context) (model.Position, error) {
	rawLat, hasLat := c.GetQuery("lat")
	rawLon, hasLon := c.GetQuery("lon")

	if !hasLat && !hasLon {
		return s.receptor, nil
	}
	if hasLat != hasLon {
		return model.Position{}, fmt.Errorf("lat and lon must be given together")
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("invalid lat %q", rawLat)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("invalid lon %q", rawLon)
	}

	pos := model.Position{lat, lon}
	if err := model.ValidatePosition(pos); err != nil {
		return model.Position{}, err
	}
	return pos, nil
}

func (s *Server) feed(c *gin.Context) {
	feed, ok := s.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (s *Server) clusters(c *gin.Context) {
	feed, ok := s.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metadata": feed.Metadata,
		"clusters": feed.Clusters,
	})
}

func (s *Server) attribution(c *gin.Context) {
	feed, ok := s.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"metadata":    feed.Metadata,
		"attribution": feed.Attribution,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"receptor": s.receptor,
	})
}
