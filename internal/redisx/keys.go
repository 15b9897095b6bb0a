package redisx

import (
	"fmt"
	"time"
)

const (
	// Hot-sale ranking per store per day: hot_sale:{store_id}:{yyyyMMdd} -> zset(product_id -> units sold)
	KeyHotSale = "hot_sale:%d:%s"

	// Order number sequence per seller per second: ordno:{seller_id}:{yyyyMMddHHmmss} -> counter
	KeyOrderNumber = "ordno:%d:%s"

	// Dedup side effect yang di-redeliver: dedup:{scope}
	KeyDedup = "dedup:%s"
)

const (
	dayLayout    = "20060102"
	secondLayout = "20060102150405"
)

var (
	TTLHotSale     = 90 * 24 * time.Hour
	TTLOrderNumber = 2 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func HotSaleKey(storeID int64, day time.Time) string {
	return fmt.Sprintf(KeyHotSale, storeID, day.Format(dayLayout))
}

func OrderNumberKey(sellerID int64, at time.Time) string {
	return fmt.Sprintf(KeyOrderNumber, sellerID, at.Format(secondLayout))
}

func DedupKey(scope string) string {
	return fmt.Sprintf(KeyDedup, scope)
}
