package meraki

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const alertContextCacheSize = 128

var alertContexts = map[string]string{
	"sensor_change_detected":        "Environmental sensor reading has changed significantly",
	"appliance_connectivity_change": "Network appliance connectivity status has changed",
	"client_connectivity_change":    "Client device connectivity status has changed",
	"settings_changed":              "Network or device configuration has been modified",
	"firmware_upgrade_started":      "Device firmware upgrade process has begun",
	"firmware_upgrade_completed":    "Device firmware upgrade has finished",
}

// ContextCache memoizes alert type descriptions. Entries are pure functions
// of the key, so concurrent use needs no coordination beyond the cache's own.
type ContextCache struct {
	cache *lru.Cache[string, string]
}

func NewContextCache(size int) *ContextCache {
	if size <= 0 {
		size = alertContextCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &ContextCache{cache: cache}
}

// Describe returns a short description of alertType.
func (c *ContextCache) Describe(alertType string) string {
	if desc, ok := c.cache.Get(alertType); ok {
		return desc
	}
	desc, ok := alertContexts[alertType]
	if !ok {
		desc = "Unknown alert type"
	}
	c.cache.Add(alertType, desc)
	return desc
}

func (c *ContextCache) len() int { return c.cache.Len() }

var defaultContextCache = NewContextCache(alertContextCacheSize)

// AlertContext describes alertType using the process-wide cache.
func AlertContext(alertType string) string {
	return defaultContextCache.Describe(alertType)
}
