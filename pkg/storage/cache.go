package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisHistoryCache is a read-through cache in front of a HistoryStore.
// List and GetVersion results are cached; Insert writes through and
// invalidates the source's cached list.
type RedisHistoryCache struct {
	store HistoryStore
	redis *redis.Client
	ttl   time.Duration

	// onHit and onMiss are optional observation hooks.
	onHit  func()
	onMiss func()
}

// NewRedisHistoryCache connects to Redis and wraps the given store.
func NewRedisHistoryCache(store HistoryStore, redisAddr, password string, db int, ttl time.Duration) (*RedisHistoryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisHistoryCache{store: store, redis: client, ttl: ttl}, nil
}

// SetObservers installs cache hit and miss callbacks.
func (c *RedisHistoryCache) SetObservers(onHit, onMiss func()) {
	c.onHit = onHit
	c.onMiss = onMiss
}

// Client exposes the underlying Redis client, for health checks.
func (c *RedisHistoryCache) Client() *redis.Client {
	return c.redis
}

// Close closes the Redis connection.
func (c *RedisHistoryCache) Close() error {
	return c.redis.Close()
}

func (c *RedisHistoryCache) hit() {
	if c.onHit != nil {
		c.onHit()
	}
}

func (c *RedisHistoryCache) miss() {
	if c.onMiss != nil {
		c.onMiss()
	}
}

func listKey(sourceID string) string {
	return "history:list:" + sourceID
}

func versionKey(sourceID string, version int) string {
	return fmt.Sprintf("history:version:%s:%d", sourceID, version)
}

// Insert writes through to the underlying store and drops the source's
// cached list. Version entries are immutable once written, so they are left
// in place.
func (c *RedisHistoryCache) Insert(ctx context.Context, entry *HistoryEntry) error {
	if err := c.store.Insert(ctx, entry); err != nil {
		return err
	}
	c.redis.Del(ctx, listKey(entry.SourceID))
	return nil
}

// List returns the cached history when present, falling back to the store.
func (c *RedisHistoryCache) List(ctx context.Context, sourceID string) ([]*HistoryEntry, error) {
	cached, err := c.redis.Get(ctx, listKey(sourceID)).Bytes()
	if err == nil {
		var entries []*HistoryEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			c.hit()
			return entries, nil
		}
	}
	c.miss()

	entries, err := c.store.List(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entries); err == nil {
		c.redis.Set(ctx, listKey(sourceID), data, c.ttl)
	}
	return entries, nil
}

// GetVersion returns the cached entry when present, falling back to the
// store.
func (c *RedisHistoryCache) GetVersion(ctx context.Context, sourceID string, version int) (*HistoryEntry, error) {
	cached, err := c.redis.Get(ctx, versionKey(sourceID, version)).Bytes()
	if err == nil {
		entry := &HistoryEntry{}
		if err := json.Unmarshal(cached, entry); err == nil {
			c.hit()
			return entry, nil
		}
	}
	c.miss()

	entry, err := c.store.GetVersion(ctx, sourceID, version)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entry); err == nil {
		c.redis.Set(ctx, versionKey(sourceID, version), data, c.ttl)
	}
	return entry, nil
}
