package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

// HotSales mirrors the Redis sorted sets: one bucket per store and day.
type HotSales struct {
	mu     sync.Mutex
	scores map[string]map[int64]int
}

func NewHotSales() *HotSales {
	return &HotSales{scores: map[string]map[int64]int{}}
}

func (h *HotSales) Increment(ctx context.Context, storeID, productID int64, day time.Time, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("hot sale amount must be positive, got %d", amount)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := bucket(storeID, day)
	if h.scores[key] == nil {
		h.scores[key] = map[int64]int{}
	}
	h.scores[key][productID] += amount
	return nil
}

func (h *HotSales) Score(storeID, productID int64, day time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scores[bucket(storeID, day)][productID]
}

func bucket(storeID int64, day time.Time) string {
	return strconv.FormatInt(storeID, 10) + ":" + day.Format("20060102")
}

// OrderNumbers issues timestamp + seller + process-wide sequence numbers.
type OrderNumbers struct {
	seq atomic.Uint64
	now func() time.Time
}

func NewOrderNumbers() *OrderNumbers {
	return &OrderNumbers{now: time.Now}
}

func (g *OrderNumbers) Next(_ context.Context, sellerID int64) (string, error) {
	n := g.seq.Add(1)
	return fmt.Sprintf("%s%d%06d", g.now().Format("20060102150405"), sellerID, n), nil
}

// Guard remembers claimed keys for the life of the process.
type Guard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{keys: map[string]struct{}{}}
}

func (g *Guard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.keys[key]; ok {
		return false, nil
	}
	g.keys[key] = struct{}{}
	return true, nil
}

func (g *Guard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

var (
	_ sales.HotSaleCounter       = (*HotSales)(nil)
	_ sales.OrderNumberGenerator = (*OrderNumbers)(nil)
	_ sales.Guard                = (*Guard)(nil)
)
