package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// NoExpiration keeps an entry until it is deleted
const NoExpiration time.Duration = -1

// Cache defines the interface for caching. A ttl of 0 uses the backend
// default; NoExpiration keeps the entry forever.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "rubriccheck:v1:"

// Key namespaces a content hash under a blob kind ("analysis", "rewrite")
func Key(kind, id string) string {
	return keyPrefix + kind + ":" + id
}

// New builds the cache backend named in cfg. A disabled cache or the
// "none" backend returns a cache that stores nothing.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return NopCache{}, nil
	}

	dir := ExpandHome(cfg.Dir)
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = NoExpiration
	}

	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return NewMemoryCache(ttl, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(dir, ttl), nil
	case "layered":
		return NewLayeredCache(ttl, dir, ttl), nil
	case "sqlite", "":
		return NewSQLiteCache(filepath.Join(dir, "cache.db"), ttl)
	case "redis":
		return NewRedisCache(cfg.RedisURL, ttl)
	case "none":
		return NopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, disk, layered, sqlite, redis, none)", cfg.Backend)
	}
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(string) ([]byte, bool)                { return nil, false }
func (NopCache) Set(string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(string) error                      { return nil }
func (NopCache) Clear() error                             { return nil }

// ExpandHome resolves a leading ~ to the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// expiry converts a ttl into an absolute deadline; the zero time means never
func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
