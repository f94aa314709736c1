package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper short-circuits redelivered webhook events via a redis SETNX lock.
// It is only a fast path: the database unique index on the event ID remains
// the authority, so a redis outage degrades to slightly more DB work.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce reports whether this is the first delivery of the event within
// the TTL window. When redis is unavailable processing proceeds; blocking
// deliveries on a cache would turn an outage into lost payments.
func (d *Deduper) AcquireOnce(ctx context.Context, eventID string) bool {
	key := fmt.Sprintf("webhook:dedup:%s", eventID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release drops the dedup lock so a failed event can be retried immediately.
func (d *Deduper) Release(ctx context.Context, eventID string) {
	key := fmt.Sprintf("webhook:dedup:%s", eventID)
	d.rdb.Del(ctx, key)
}
