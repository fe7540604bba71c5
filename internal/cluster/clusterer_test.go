package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/firewatch/internal/geodesic"
	"github.com/ppiankov/firewatch/internal/model"
)

func newTestClusterer() *Clusterer {
	return NewClusterer(model.DefaultConfig().Clustering)
}

func fire(id string, lat, lon float64, frp *float64, conf string) model.FireDetection {
	return model.FireDetection{
		ID:         id,
		Position:   model.Position{lat, lon},
		FRP:        frp,
		Confidence: model.LabelConfidence(conf),
	}
}

func TestIdentify_Empty(t *testing.T) {
	c := newTestClusterer()

	assert.Empty(t, c.Identify(nil))
	assert.NotNil(t, c.Identify([]model.FireDetection{}))
}

func TestIdentify_ChainIsTransitive(t *testing.T) {
	p1 := fire("p1", 30.00, 75.0, model.Float(10), "High")
	p2 := fire("p2", 30.15, 75.0, model.Float(10), "High")
	p3 := fire("p3", 30.30, 75.0, model.Float(10), "High")

	require.LessOrEqual(t, geodesic.DistanceKm(p1.Position, p2.Position), 20.0)
	require.LessOrEqual(t, geodesic.DistanceKm(p2.Position, p3.Position), 20.0)
	require.Greater(t, geodesic.DistanceKm(p1.Position, p3.Position), 20.0)

	clusters := newTestClusterer().Identify([]model.FireDetection{p1, p2, p3})

	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].FireCount)
	assert.Equal(t, 30.0, clusters[0].TotalFRP)
	assert.InDelta(t, 30.15, clusters[0].Center.Lat(), 1e-9)
	assert.InDelta(t, 75.0, clusters[0].Center.Lon(), 1e-9)
}

func TestIdentify_SingletonsAreKept(t *testing.T) {
	fires := []model.FireDetection{
		fire("a", 29.0, 74.0, model.Float(500), "High"),
		fire("b", 31.0, 76.0, model.Float(5), "Nominal"),
	}

	clusters := newTestClusterer().Identify(fires)

	require.Len(t, clusters, 2)
	assert.Equal(t, 1, clusters[0].FireCount)
	assert.Equal(t, 1, clusters[1].FireCount)
	assert.Equal(t, model.SeverityHigh, clusters[0].Severity)
	assert.Equal(t, model.SeverityLow, clusters[1].Severity)
}

func TestIdentify_CountBoundAndOrder(t *testing.T) {
	var fires []model.FireDetection
	for i := 0; i < 150; i++ {
		// One degree apart in longitude, far beyond the radius
		fires = append(fires, fire("f", 30.0, -170.0+float64(i)*2, model.Float(float64(i+1)), "Nominal"))
	}

	clusters := newTestClusterer().Identify(fires)

	require.Len(t, clusters, 5)
	for i := 1; i < len(clusters); i++ {
		assert.GreaterOrEqual(t, clusters[i-1].TotalFRP, clusters[i].TotalFRP)
	}
	assert.Equal(t, 150.0, clusters[0].TotalFRP)
}

func TestIdentify_DefaultsAndConfidence(t *testing.T) {
	fires := []model.FireDetection{
		fire("a", 30.0, 75.0, nil, "High"),
		fire("b", 30.01, 75.0, nil, "Nominal"),
		{ID: "c", Position: model.Position{30.02, 75.0}, Confidence: model.NumericConfidence(95)},
	}

	clusters := newTestClusterer().Identify(fires)

	require.Len(t, clusters, 1)
	// Absent FRP counts as 20 inside zones
	assert.Equal(t, 60.0, clusters[0].TotalFRP)
	// (90 + 70 + 70) / 3 rounded
	assert.Equal(t, 77.0, clusters[0].AvgConfidence)
	assert.Equal(t, model.SeverityLow, clusters[0].Severity)
	assert.Equal(t, "#10b981", clusters[0].Color)
	assert.Equal(t, "zone-0", clusters[0].ID)
	assert.Equal(t, 20.0, clusters[0].RadiusKm)
	assert.NotEmpty(t, clusters[0].Cell)
}

func TestSeverity_Thresholds(t *testing.T) {
	c := newTestClusterer()

	tests := []struct {
		frp  float64
		want model.Severity
	}{
		{0, model.SeverityLow},
		{100, model.SeverityLow},
		{100.5, model.SeverityModerate},
		{400, model.SeverityModerate},
		{401, model.SeverityHigh},
		{1000, model.SeverityHigh},
		{1000.1, model.SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Severity(tt.frp), "Severity(%g)", tt.frp)
	}
}

func TestIdentify_ExplicitZeroFRPCountsAsZero(t *testing.T) {
	c := newTestClusterer()

	zones := c.Identify([]model.FireDetection{
		fire("zero", 30.0, 75.0, model.Float(0), "High"),
		fire("absent", 30.0, 75.01, nil, "High"),
	})

	require.Len(t, zones, 1)
	assert.Equal(t, 20.0, zones[0].TotalFRP)
}
