package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/lumify/internal/model"
)

// Cache stores opaque values with a per-entry TTL. A zero TTL means the
// cache's default.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// expirer is implemented by caches that can report when an entry expires
type expirer interface {
	GetWithExpiration(key string) ([]byte, time.Time, bool)
}

// Strategy selects where cached values live
type Strategy string

const (
	StrategyDisk    Strategy = "disk"
	StrategyMemory  Strategy = "memory"
	StrategyLayered Strategy = "layered"
	StrategyNone    Strategy = "none"
)

// ParseStrategy accepts the strategy names and the browser storage aliases
// localStorage (disk) and sessionStorage (memory). Empty means disk.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disk", "localstorage":
		return StrategyDisk, nil
	case "memory", "sessionstorage":
		return StrategyMemory, nil
	case "layered":
		return StrategyLayered, nil
	case "none", "off":
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("unknown cache strategy %q", s)
	}
}

// New builds the cache for a strategy. ttl is the default entry lifetime.
func New(strategy string, cfg model.CacheConfig, ttl time.Duration) (Cache, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}

	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	switch s {
	case StrategyMemory:
		return NewMemoryCache(ttl, cleanup), nil
	case StrategyLayered:
		memoryTTL := cfg.MemoryTTL
		if memoryTTL <= 0 || memoryTTL > ttl {
			memoryTTL = ttl
		}
		return NewLayeredCache(NewMemoryCache(memoryTTL, cleanup), NewDiskCache(cfg.Dir, ttl)), nil
	case StrategyNone:
		return NopCache{}, nil
	default:
		return NewDiskCache(cfg.Dir, ttl), nil
	}
}

// PopularKey returns the cache key for an application's popular questions
func PopularKey(appID string) string {
	return Key("popular", appID)
}

// Key builds a namespaced, versioned key from a hashed identifier
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "lumify:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(string) ([]byte, bool)               { return nil, false }
func (NopCache) Set(string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(string) error                     { return nil }
func (NopCache) Clear() error                            { return nil }
