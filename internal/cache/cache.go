package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const minCleanupInterval = time.Minute

// Manager is the process-wide in-memory store shared by the story service.
// Entries expire a fixed TTL after they are written; reads never extend it.
// go-cache does its own locking, so Manager is safe for concurrent use.
type Manager struct {
	cache *cache.Cache
}

// NewManager creates a cache whose janitor sweeps expired entries once per
// TTL (never more often than once a minute).
func NewManager(defaultTTL time.Duration) *Manager {
	cleanup := defaultTTL
	if cleanup < minCleanupInterval {
		cleanup = minCleanupInterval
	}
	return &Manager{
		cache: cache.New(defaultTTL, cleanup),
	}
}

// Get returns the value for key unless it is absent or expired.
func (m *Manager) Get(key string) (interface{}, bool) {
	return m.cache.Get(key)
}

// Set stores value for ttl measured from now. A zero ttl uses the default.
func (m *Manager) Set(key string, value interface{}, ttl time.Duration) {
	m.cache.Set(key, value, ttl)
}

func (m *Manager) Delete(key string) {
	m.cache.Delete(key)
}

func (m *Manager) Flush() {
	m.cache.Flush()
}

// ItemCount includes entries that expired but were not swept yet.
func (m *Manager) ItemCount() int {
	return m.cache.ItemCount()
}
