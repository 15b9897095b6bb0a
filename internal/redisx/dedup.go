package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Dedup: klaim key via SET NX, event yang di-redeliver cuma diterapkan sekali.
type Dedup struct {
	RDB *redis.Client
}

func (d *Dedup) Claim(ctx context.Context, key string) (bool, error) {
	return d.RDB.SetNX(ctx, DedupKey(key), "1", TTLDedup).Result()
}

func (d *Dedup) Release(ctx context.Context, key string) error {
	return d.RDB.Del(ctx, DedupKey(key)).Err()
}
