package model

import (
	"fmt"
	"math"
	"time"
)

// DelhiReceptor is the Delhi city center, the default downwind receptor
var DelhiReceptor = Position{28.6139, 77.2090}

// Config is the complete firewatch configuration
type Config struct {
	Receptor    Position          `mapstructure:"receptor" yaml:"receptor"`
	Feed        FeedConfig        `mapstructure:"feed" yaml:"feed"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Live        LiveConfig        `mapstructure:"live" yaml:"live"`
	Clustering  ClusterConfig     `mapstructure:"clustering" yaml:"clustering"`
	Attribution AttributionConfig `mapstructure:"attribution" yaml:"attribution"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

// FeedConfig bounds the post-processing pipeline
type FeedConfig struct {
	Source       string `mapstructure:"source" yaml:"source"`               // Label written into feed metadata
	MaxFires     int    `mapstructure:"max_fires" yaml:"max_fires"`         // allFires cap
	MaxImpactful int    `mapstructure:"max_impactful" yaml:"max_impactful"` // impactfulFires cap
	BackupFile   string `mapstructure:"backup_file" yaml:"backup_file"`     // Optional override of the bundled backup dataset
}

// CacheConfig configures the tier-2 cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Backend   string        `mapstructure:"backend" yaml:"backend"` // memory, disk, layered, redis
	Key       string        `mapstructure:"key" yaml:"key"`
	FreshTTL  time.Duration `mapstructure:"fresh_ttl" yaml:"fresh_ttl"` // Freshness window checked against the envelope timestamp
	Retention time.Duration `mapstructure:"retention" yaml:"retention"` // How long the backend keeps the envelope for recovery
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	RedisURL  string        `mapstructure:"redis_url" yaml:"redis_url"`
}

// LiveConfig configures the tier-1 live source
type LiveConfig struct {
	Provider      string        `mapstructure:"provider" yaml:"provider"` // simulated, firms
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Latency       time.Duration `mapstructure:"latency" yaml:"latency"` // Artificial delay of the simulated source
	URL           string        `mapstructure:"url" yaml:"url"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence"`
	Region        BoundingBox   `mapstructure:"region" yaml:"region"`
	RateLimit     float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second per host
	RateBurst     int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy"`
}

// BoundingBox is a lat/lon rectangle, inclusive on all edges
type BoundingBox struct {
	MinLat float64 `mapstructure:"min_lat" yaml:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat" yaml:"max_lat"`
	MinLon float64 `mapstructure:"min_lon" yaml:"min_lon"`
	MaxLon float64 `mapstructure:"max_lon" yaml:"max_lon"`
}

// Contains reports whether p lies inside the box
func (b BoundingBox) Contains(p Position) bool {
	return p.Lat() >= b.MinLat && p.Lat() <= b.MaxLat && p.Lon() >= b.MinLon && p.Lon() <= b.MaxLon
}

// ClusterConfig holds the fire zone thresholds
type ClusterConfig struct {
	RadiusKm        float64 `mapstructure:"radius_km" yaml:"radius_km"`
	MaxClusters     int     `mapstructure:"max_clusters" yaml:"max_clusters"`
	DefaultFRP      float64 `mapstructure:"default_frp" yaml:"default_frp"`
	HighConfidence  float64 `mapstructure:"high_confidence" yaml:"high_confidence"`
	OtherConfidence float64 `mapstructure:"other_confidence" yaml:"other_confidence"`
	CriticalFRP     float64 `mapstructure:"critical_frp" yaml:"critical_frp"`
	HighFRP         float64 `mapstructure:"high_frp" yaml:"high_frp"`
	ModerateFRP     float64 `mapstructure:"moderate_frp" yaml:"moderate_frp"`
	CellLevel       int     `mapstructure:"cell_level" yaml:"cell_level"`
}

// AttributionConfig holds the hand-tuned impact and attribution constants
type AttributionConfig struct {
	DefaultFRP    float64 `mapstructure:"default_frp" yaml:"default_frp"`
	DecayScaleKm  float64 `mapstructure:"decay_scale_km" yaml:"decay_scale_km"`
	ImpactDivisor float64 `mapstructure:"impact_divisor" yaml:"impact_divisor"`
	FloorPct      float64 `mapstructure:"floor_pct" yaml:"floor_pct"`
	CapPct        float64 `mapstructure:"cap_pct" yaml:"cap_pct"`
	CriticalPct   float64 `mapstructure:"critical_pct" yaml:"critical_pct"`
	HighPct       float64 `mapstructure:"high_pct" yaml:"high_pct"`
}

// ConcurrencyConfig configures batch resolution
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	RefreshCron string `mapstructure:"refresh_cron" yaml:"refresh_cron"` // Empty disables the warm refresh job
	Mode        string `mapstructure:"mode" yaml:"mode"`                 // gin mode: debug, release, test
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// OutputConfig configures CLI rendering
type OutputConfig struct {
	Verbose       bool `mapstructure:"verbose" yaml:"verbose"`
	IncludeFooter bool `mapstructure:"include_footer" yaml:"include_footer"`
}

// DefaultConfig returns the dashboard defaults
func DefaultConfig() *Config {
	return &Config{
		Receptor: DelhiReceptor,
		Feed: FeedConfig{
			Source:       "NASA-MODIS (Integrated Feed)",
			MaxFires:     100,
			MaxImpactful: 50,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			Key:       "nasa_fire_cache",
			FreshTTL:  5 * time.Minute,
			Retention: 24 * time.Hour,
			Dir:       defaultCacheDir(),
		},
		Live: LiveConfig{
			Provider:      "simulated",
			Timeout:       10 * time.Second,
			Latency:       800 * time.Millisecond,
			URL:           "https://firms.modaps.eosdis.nasa.gov/data/active_fire/modis-c6.1/csv/MODIS_C6_1_South_Asia_24h.csv",
			UserAgent:     "firewatch/0.1 (+https://github.com/ppiankov/firewatch)",
			MaxBodyBytes:  20_000_000,
			MinConfidence: 70,
			Region: BoundingBox{
				MinLat: 28.0, MaxLat: 32.5,
				MinLon: 73.0, MaxLon: 78.0,
			},
			RateLimit: 1,
			RateBurst: 2,
		},
		Clustering: ClusterConfig{
			RadiusKm:        20,
			MaxClusters:     5,
			DefaultFRP:      20,
			HighConfidence:  90,
			OtherConfidence: 70,
			CriticalFRP:     1000,
			HighFRP:         400,
			ModerateFRP:     100,
			CellLevel:       10,
		},
		Attribution: AttributionConfig{
			DefaultFRP:    50,
			DecayScaleKm:  10,
			ImpactDivisor: 50,
			FloorPct:      5,
			CapPct:        45,
			CriticalPct:   35,
			HighPct:       20,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			RefreshCron: "*/5 * * * *",
			Mode:        "release",
		},
		Log: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	if err := ValidatePosition(c.Receptor); err != nil {
		return fmt.Errorf("receptor: %w", err)
	}
	if c.Feed.MaxFires <= 0 {
		return fmt.Errorf("feed.max_fires must be positive, got %d", c.Feed.MaxFires)
	}
	if c.Feed.MaxImpactful <= 0 {
		return fmt.Errorf("feed.max_impactful must be positive, got %d", c.Feed.MaxImpactful)
	}
	if c.Clustering.RadiusKm <= 0 {
		return fmt.Errorf("clustering.radius_km must be positive, got %g", c.Clustering.RadiusKm)
	}
	if c.Clustering.MaxClusters <= 0 {
		return fmt.Errorf("clustering.max_clusters must be positive, got %d", c.Clustering.MaxClusters)
	}
	if c.Attribution.DecayScaleKm <= 0 || c.Attribution.ImpactDivisor <= 0 {
		return fmt.Errorf("attribution.decay_scale_km and attribution.impact_divisor must be positive")
	}
	if c.Attribution.FloorPct > c.Attribution.CapPct {
		return fmt.Errorf("attribution.floor_pct (%g) exceeds cap_pct (%g)", c.Attribution.FloorPct, c.Attribution.CapPct)
	}
	if c.Cache.FreshTTL <= 0 {
		return fmt.Errorf("cache.fresh_ttl must be positive, got %v", c.Cache.FreshTTL)
	}
	switch c.Live.Provider {
	case "simulated", "firms":
	default:
		return fmt.Errorf("unknown live provider %q (want simulated or firms)", c.Live.Provider)
	}
	return nil
}

// ValidatePosition rejects NaN and out-of-range coordinates
func ValidatePosition(p Position) error {
	lat, lon := p.Lat(), p.Lon()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("position %v is not finite", p)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %g out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %g out of range", lon)
	}
	return nil
}

func defaultCacheDir() string {
	return ".firewatch/cache"
}
