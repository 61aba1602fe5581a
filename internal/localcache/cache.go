// Package localcache implements the device-scoped snapshot store the
// sync gateway falls back on when the remote store is unreachable. It
// keeps the last successful remote read per collection key. Values are
// opaque JSON blobs; callers own (de)serialization.
//
// The contract mirrors a client-side async key-value store: Get never
// fails (internal failures yield the supplied fallback) and Save is
// best-effort (failures are logged, never surfaced). An in-process map
// always backs the cache so a Get after a successful Save returns that
// exact value even with Redis down or never configured; Redis, when
// available, makes snapshots survive process restarts.
package localcache

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Collection key namespace: one key per entity collection. Per-identity
// collections append ":<id>" via Key.
const (
	KeyProfile = "profile"
	KeyVenues  = "venues"
	KeyFeed    = "feed"
	KeyChats   = "chats"
)

// Key builds a per-identity collection key, e.g. Key(KeyChats, 42).
func Key(ns string, id uint64) string {
	return ns + ":" + strconv.FormatUint(id, 10)
}

const redisPrefix = "snapshot:"

// Cache is the snapshot store. A nil Redis client is valid; the cache
// then runs purely in memory, matching the degraded mode the rest of
// the service uses when Redis is unavailable at boot.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration

	mu  sync.RWMutex
	mem map[string][]byte
}

// New constructs a Cache. ttl bounds how long Redis keeps a snapshot;
// zero means no expiry. The in-memory layer never expires.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, mem: make(map[string][]byte)}
}

// Get returns the last saved value for key, preferring Redis, then the
// in-memory copy, then fallback. It never returns an error.
func (c *Cache) Get(ctx context.Context, key string, fallback []byte) []byte {
	if c.rdb != nil {
		if b, err := c.rdb.Get(ctx, redisPrefix+key).Bytes(); err == nil {
			return b
		}
	}
	c.mu.RLock()
	b, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return b
	}
	return fallback
}

// Save stores value under key. The in-memory write cannot fail; a Redis
// failure is logged and swallowed so callers never see it.
func (c *Cache) Save(ctx context.Context, key string, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	c.mu.Lock()
	c.mem[key] = cp
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, redisPrefix+key, value, c.ttl).Err(); err != nil {
			log.Printf("localcache: save %s failed: %v", key, err)
		}
	}
}

// Remove drops the snapshot for key from both layers.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Del(ctx, redisPrefix+key).Err(); err != nil {
			log.Printf("localcache: remove %s failed: %v", key, err)
		}
	}
}
