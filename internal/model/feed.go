package model

import "time"

// FireFeed is the unified feed handed to dashboard consumers
type FireFeed struct {
	Metadata       FeedMetadata       `json:"metadata"`
	AllFires       []FireDetection    `json:"allFires"`       // Sorted by FRP desc, capped
	ImpactfulFires []FireDetection    `json:"impactfulFires"` // Sorted by impact desc, capped
	Clusters       []Cluster          `json:"clusters"`       // Sorted by total FRP desc, capped
	Attribution    AttributionSummary `json:"attribution"`
}

// Tier identifies which acquisition level produced the base fire set
type Tier string

const (
	TierLive     Tier = "live"     // Fresh fetch from the live source
	TierCached   Tier = "cached"   // Cache entry still inside the freshness window
	TierRecovery Tier = "recovery" // Cache entry used after a live failure, regardless of age
	TierBackup   Tier = "backup"   // Bundled pre-downloaded dataset
)

// Status labels shown to dashboard users
const (
	StatusLive   = "Live"
	StatusBackup = "Satellite Backup (Pre-downloaded)"
)

// FeedMetadata describes the provenance of a feed
type FeedMetadata struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Source      string     `json:"source"`
	Status      string     `json:"status"` // Human readable, e.g. "Cached (Fresh: 2m ago)"
	Tier        Tier       `json:"tier"`
	IsLive      bool       `json:"isLive"`
	IsCached    bool       `json:"isCached"`
	IsSimulated bool       `json:"isSimulated"`
	Receptor    Position   `json:"receptor"`
	CachedAt    *time.Time `json:"cachedAt,omitempty"` // Timestamp embedded in the cache envelope, when one was used
}

// Severity is a categorical intensity tier
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Cluster is a spatial zone of fires connected through chains of
// pairwise distances within the clustering radius
type Cluster struct {
	ID            string   `json:"id"`
	Center        Position `json:"center"`
	FireCount     int      `json:"fireCount"`
	TotalFRP      float64  `json:"totalFrp"`
	AvgConfidence float64  `json:"avgConfidence"`
	Severity      Severity `json:"severity"`
	Color         string   `json:"color"`
	RadiusKm      float64  `json:"radiusKm"`
	Cell          string   `json:"cell"` // S2 cell token of the center
}

// AttributionSummary estimates the stubble burning share of pollution at the receptor
type AttributionSummary struct {
	StubblePercentage int      `json:"stubblePercentage"`
	Severity          Severity `json:"severity"`
	TotalFireCount    int      `json:"totalFireCount"`
}
