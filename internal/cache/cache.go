package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/firewatch/internal/model"
)

// Cache defines the interface for caching.
// A Get miss and an expired entry look the same to callers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Backend names accepted in configuration
const (
	BackendMemory  = "memory"
	BackendDisk    = "disk"
	BackendLayered = "layered"
	BackendRedis   = "redis"
)

// FileName maps an arbitrary key onto a filesystem-safe name
func FileName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return "firewatch-v1-" + hex.EncodeToString(hash[:16])
}

// New builds the backend selected in cfg. Retention becomes the default TTL
// of every layer.
func New(cfg model.CacheConfig) (Cache, error) {
	retention := cfg.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryCache(retention, 10*time.Minute), nil
	case BackendDisk:
		return NewDiskCache(filepath.Clean(cfg.Dir), retention), nil
	case "", BackendLayered:
		return NewLayeredCache(retention, filepath.Clean(cfg.Dir), retention), nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend redis requires cache.redis_url")
		}
		rc, err := NewRedisCache(cfg.RedisURL, retention)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
