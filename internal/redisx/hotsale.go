package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// HotSaleCounter adds units sold to a per-store, per-day sorted set.
type HotSaleCounter struct {
	RDB *redis.Client
}

func (c *HotSaleCounter) Increment(ctx context.Context, storeID, productID int64, day time.Time, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("hot sale amount must be positive, got %d", amount)
	}
	key := HotSaleKey(storeID, day)
	pipe := c.RDB.TxPipeline()
	pipe.ZIncrBy(ctx, key, float64(amount), strconv.FormatInt(productID, 10))
	pipe.Expire(ctx, key, TTLHotSale)
	_, err := pipe.Exec(ctx)
	return err
}

// Score: unit terjual hari itu, 0 kalau belum ada.
func (c *HotSaleCounter) Score(ctx context.Context, storeID, productID int64, day time.Time) (int, error) {
	s, err := c.RDB.ZScore(ctx, HotSaleKey(storeID, day), strconv.FormatInt(productID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(s), nil
}
