package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ppiankov/firewatch/internal/cache"
	"github.com/ppiankov/firewatch/internal/metrics"
	"github.com/ppiankov/firewatch/internal/model"
	"github.com/ppiankov/firewatch/internal/pipeline"
	"github.com/ppiankov/firewatch/internal/source"
)

func newTestServer(t *testing.T) (*Server, *metrics.Recorder) {
	t.Helper()

	backup, err := source.LoadBackup("")
	require.NoError(t, err)

	rec := metrics.NewRecorder()
	cfg := model.DefaultConfig()
	resolver, err := pipeline.NewResolver(cfg, pipeline.Deps{
		Live:    source.NewSimulatedSource(0, nil),
		Cache:   cache.NewMemoryCache(time.Hour, time.Minute),
		Backup:  backup,
		Metrics: rec,
	})
	require.NoError(t, err)

	return New(model.ServerConfig{Mode: gin.TestMode}, cfg.Receptor, resolver, rec, zaptest.NewLogger(t)), rec
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestFeedEndpoint_Live(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/fires/feed")
	require.Equal(t, http.StatusOK, rec.Code)

	var feed model.FireFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, model.StatusLive, feed.Metadata.Status)
	assert.GreaterOrEqual(t, len(feed.AllFires), 40)
	assert.LessOrEqual(t, len(feed.Clusters), 5)
	assert.Equal(t, model.DelhiReceptor, feed.Metadata.Receptor)
}

func TestFeedEndpoint_ForceFail(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/fires/feed?forceFail=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var feed model.FireFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, model.StatusBackup, feed.Metadata.Status)
	assert.True(t, feed.Metadata.IsSimulated)
}

func TestFeedEndpoint_CustomReceptor(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/fires/feed?lat=28.4595&lon=77.0266")
	require.Equal(t, http.StatusOK, rec.Code)

	var feed model.FireFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, model.Position{28.4595, 77.0266}, feed.Metadata.Receptor)
}

func TestFeedEndpoint_BadQuery(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{
		"/api/fires/feed?forceFail=maybe",
		"/api/fires/feed?lat=28.4",
		"/api/fires/feed?lat=abc&lon=77",
		"/api/fires/feed?lat=95&lon=77",
	} {
		t.Run(target, func(t *testing.T) {
			rec := get(t, s, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestClustersAndAttributionEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/fires/clusters")
	require.Equal(t, http.StatusOK, rec.Code)
	var clusters struct {
		Clusters []model.Cluster `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clusters))
	assert.NotEmpty(t, clusters.Clusters)

	rec = get(t, s, "/api/fires/attribution")
	require.Equal(t, http.StatusOK, rec.Code)
	var attribution struct {
		Attribution model.AttributionSummary `json:"attribution"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attribution))
	assert.GreaterOrEqual(t, attribution.Attribution.StubblePercentage, 5)
	assert.LessOrEqual(t, attribution.Attribution.StubblePercentage, 45)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	get(t, s, "/api/fires/feed")
	rec = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `firewatch_http_requests_total{code="200",route="/api/fires/feed"} 1`)
	assert.Contains(t, rec.Body.String(), `firewatch_feed_resolutions_total{tier="live"} 1`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
