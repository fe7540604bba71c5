package geodesic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/firewatch/internal/model"
)

func TestDistanceKm_KnownPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Position
		want float64
		tol  float64
	}{
		{"Delhi to Ludhiana", model.Position{28.6139, 77.2090}, model.Position{30.9010, 75.8573}, 285.0, 5},
		{"one degree of latitude", model.Position{30.0, 75.0}, model.Position{31.0, 75.0}, 111.19, 0.05},
		{"same point", model.Position{30.2, 75.1}, model.Position{30.2, 75.1}, 0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.a, tt.b), tt.tol)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := []model.Position{
		{28.6139, 77.2090},
		{30.2, 75.1},
		{27.0, 78.0},
		{-33.86, 151.21},
		{51.5, -0.12},
	}

	for _, a := range points {
		assert.Zero(t, DistanceKm(a, a), "distance from %v to itself", a)
		for _, b := range points {
			assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9, "%v <-> %v", a, b)
			assert.GreaterOrEqual(t, DistanceKm(a, b), 0.0)
		}
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	d := DistanceKm(model.Position{math.NaN(), 75}, model.Position{30, 75})
	assert.True(t, math.IsNaN(d), "expected NaN, got %v", d)
}

func TestCellToken_StableWithinCell(t *testing.T) {
	a := CellToken(model.Position{30.2000, 75.1000}, 10)
	b := CellToken(model.Position{30.2001, 75.1001}, 10)
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
}
