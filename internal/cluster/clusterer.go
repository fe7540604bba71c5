// Package cluster groups fire detections into spatial zones.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/firewatch/internal/geodesic"
	"github.com/ppiankov/firewatch/internal/model"
)

// Zone colors shown on the dashboard map, by severity
var severityColors = map[model.Severity]string{
	model.SeverityCritical: "#991b1b",
	model.SeverityHigh:     "#ef4444",
	model.SeverityModerate: "#f97316",
	model.SeverityLow:      "#10b981",
}

// Clusterer groups fires by proximity. Two fires share a zone when a chain of
// fires connects them with every hop within the radius.
type Clusterer struct {
	cfg model.ClusterConfig
}

// NewClusterer creates a clusterer with the given thresholds
func NewClusterer(cfg model.ClusterConfig) *Clusterer {
	return &Clusterer{cfg: cfg}
}

// Identify groups fires into zones and returns the top zones by total FRP.
func (c *Clusterer) Identify(fires []model.FireDetection) []model.Cluster {
	if len(fires) == 0 {
		return []model.Cluster{}
	}

	groups := c.components(fires)

	clusters := make([]model.Cluster, 0, len(groups))
	for idx, members := range groups {
		clusters = append(clusters, c.zone(idx, fires, members))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TotalFRP > clusters[j].TotalFRP
	})

	if c.cfg.MaxClusters > 0 && len(clusters) > c.cfg.MaxClusters {
		clusters = clusters[:c.cfg.MaxClusters]
	}
	return clusters
}

// components runs a breadth-first search from every unvisited fire and
// returns the member indexes of each connected component, in discovery order.
func (c *Clusterer) components(fires []model.FireDetection) [][]int {
	visited := make([]bool, len(fires))
	var groups [][]int

	for seed := range fires {
		if visited[seed] {
			continue
		}

		visited[seed] = true
		queue := []int{seed}
		var members []int

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			members = append(members, current)

			for other := range fires {
				if visited[other] {
					continue
				}
				if geodesic.DistanceKm(fires[current].Position, fires[other].Position) <= c.cfg.RadiusKm {
					visited[other] = true
					queue = append(queue, other)
				}
			}
		}

		groups = append(groups, members)
	}

	return groups
}

// zone aggregates one component into zone metrics
func (c *Clusterer) zone(idx int, fires []model.FireDetection, members []int) model.Cluster {
	var totalFRP, totalConfidence, sumLat, sumLon float64

	for _, i := range members {
		f := fires[i]
		totalFRP += f.FRPOr(c.cfg.DefaultFRP)
		totalConfidence += c.confidenceScore(f.Confidence)
		sumLat += f.Position.Lat()
		sumLon += f.Position.Lon()
	}

	count := float64(len(members))
	center := model.Position{sumLat / count, sumLon / count}
	severity := c.Severity(totalFRP)

	return model.Cluster{
		ID:            fmt.Sprintf("zone-%d", idx),
		Center:        center,
		FireCount:     len(members),
		TotalFRP:      math.Round(totalFRP),
		AvgConfidence: math.Round(totalConfidence / count),
		Severity:      severity,
		Color:         severityColors[severity],
		RadiusKm:      c.cfg.RadiusKm,
		Cell:          geodesic.CellToken(center, c.cfg.CellLevel),
	}
}

// confidenceScore maps a detection confidence onto the coarse zone scale
func (c *Clusterer) confidenceScore(conf model.Confidence) float64 {
	if conf.IsHigh() {
		return c.cfg.HighConfidence
	}
	return c.cfg.OtherConfidence
}

// Severity classifies a zone by its total fire radiative power
func (c *Clusterer) Severity(totalFRP float64) model.Severity {
	switch {
	case totalFRP > c.cfg.CriticalFRP:
		return model.SeverityCritical
	case totalFRP > c.cfg.HighFRP:
		return model.SeverityHigh
	case totalFRP > c.cfg.ModerateFRP:
		return model.SeverityModerate
	default:
		return model.SeverityLow
	}
}
