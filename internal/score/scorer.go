package score

import (
	"math"

	"github.com/ppiankov/firewatch/internal/geodesic"
	"github.com/ppiankov/firewatch/internal/model"
)

// Scorer estimates how much each fire contributes to pollution at a receptor.
// Transport is modelled as a fixed northwest wind: only fires north and west
// of the receptor contribute, decayed by distance.
type Scorer struct {
	cfg model.AttributionConfig
}

// NewScorer creates a scorer with the given attribution constants
func NewScorer(cfg model.AttributionConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Upwind reports whether p lies strictly north and west of the receptor
func Upwind(p, receptor model.Position) bool {
	return p.Lat() > receptor.Lat() && p.Lon() < receptor.Lon()
}

// Impact returns the unrounded impact of one fire on the receptor.
//
// Formula: frp / (distance_km / decay_scale + 1), zero outside the upwind quadrant.
func (s *Scorer) Impact(f model.FireDetection, receptor model.Position) float64 {
	if !Upwind(f.Position, receptor) {
		return 0
	}
	dist := geodesic.DistanceKm(f.Position, receptor)
	return f.FRPOr(s.cfg.DefaultFRP) / (dist/s.cfg.DecayScaleKm + 1)
}

// ScoreFires returns copies of fires with ImpactScore set (rounded to 0.1)
// and the unrounded total impact of the batch.
func (s *Scorer) ScoreFires(fires []model.FireDetection, receptor model.Position) ([]model.FireDetection, float64) {
	scored := make([]model.FireDetection, len(fires))
	var total float64

	for i, f := range fires {
		impact := s.Impact(f, receptor)
		total += impact
		f.ImpactScore = math.Round(impact*10) / 10
		scored[i] = f
	}

	return scored, total
}

// Percentage maps a total impact onto the clamped stubble burning share.
//
// Formula: min(cap, total / divisor + floor)
func (s *Scorer) Percentage(totalImpact float64) float64 {
	return math.Min(s.cfg.CapPct, totalImpact/s.cfg.ImpactDivisor+s.cfg.FloorPct)
}

// Attribution builds the attribution summary for a scored batch
func (s *Scorer) Attribution(totalImpact float64, fireCount int) model.AttributionSummary {
	pct := s.Percentage(totalImpact)

	return model.AttributionSummary{
		StubblePercentage: int(math.Round(pct)),
		Severity:          s.severity(pct),
		TotalFireCount:    fireCount,
	}
}

// severity buckets the unrounded percentage
func (s *Scorer) severity(pct float64) model.Severity {
	switch {
	case pct > s.cfg.CriticalPct:
		return model.SeverityCritical
	case pct > s.cfg.HighPct:
		return model.SeverityHigh
	default:
		return model.SeverityModerate
	}
}
