// Package geodesic provides great-circle distances between fire detections.
package geodesic

import (
	"github.com/golang/geo/s2"

	"github.com/ppiankov/firewatch/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for all distances
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometres.
// Invalid input yields NaN rather than an error.
func DistanceKm(a, b model.Position) float64 {
	return LatLng(a).Distance(LatLng(b)).Radians() * EarthRadiusKm
}

// LatLng converts a position to an s2 point in degrees
func LatLng(p model.Position) s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat(), p.Lon())
}

// CellToken returns the token of the S2 cell containing p at the given level
func CellToken(p model.Position, level int) string {
	if level < 0 || level > s2.MaxLevel {
		level = s2.MaxLevel
	}
	return s2.CellIDFromLatLng(LatLng(p)).Parent(level).ToToken()
}
