package store

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache keeps the freshest observation per device in redis so
// presence reads never hit the database. Entries expire on their own if the
// device goes quiet.
type PresenceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceCache(rdb *redis.Client, ttl time.Duration) *PresenceCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PresenceCache{rdb: rdb, ttl: ttl}
}

func presenceKey(id string) string { return "device:presence:" + id }

func (c *PresenceCache) Set(ctx context.Context, id string, observationJSON []byte) error {
	return c.rdb.Set(ctx, presenceKey(id), observationJSON, c.ttl).Err()
}

func (c *PresenceCache) Get(ctx context.Context, id string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, presenceKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return b, err
}

func (c *PresenceCache) Delete(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, presenceKey(id)).Err()
}

// PresentIDs lists the devices that still have a live presence entry.
func (c *PresenceCache) PresentIDs(ctx context.Context) ([]string, error) {
	iter := c.rdb.Scan(ctx, 0, presenceKey("*"), 100).Iterator()
	var ids []string
	for iter.Next(ctx) {
		full := iter.Val()
		if !strings.HasPrefix(full, "device:presence:") {
			continue
		}
		ids = append(ids, strings.TrimPrefix(full, "device:presence:"))
	}
	if err := iter.Err(); err != nil {
		return ids, err
	}
	return ids, nil
}
