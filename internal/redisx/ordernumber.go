package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderNumbers builds yyyyMMddHHmmss + seller id + a per-seller, per-second sequence
// taken from INCR, so every API replica draws from the same counter.
//
// Key per detik hidup selama TTLOrderNumber. Kalau jam replica mundur lebih dari itu,
// sequence bisa mulai ulang; nomor yang bentrok ditolak constraint unik dan PlaceOrder
// retry sekali dengan nomor baru.
type OrderNumbers struct {
	RDB *redis.Client
	Now func() time.Time
}

func (g *OrderNumbers) Next(ctx context.Context, sellerID int64) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	at := now()
	key := OrderNumberKey(sellerID, at)

	pipe := g.RDB.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, TTLOrderNumber)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%04d", at.Format(secondLayout), sellerID, incr.Val()), nil
}
