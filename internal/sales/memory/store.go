// Package memory holds in-process sales adapters used when Postgres or Redis is not
// configured, and by unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

// Store keeps products, orders and details in maps guarded by one mutex. Reservations
// are conditional decrements taken under that mutex, so concurrent units of work never
// oversell; a failed unit of work puts its reservations back.
type Store struct {
	mu          sync.Mutex
	products    map[int64]sales.Product
	orders      []sales.SalesOrder
	numbers     map[string]struct{}
	details     map[detailKey]sales.SalesOrderDetail
	nextOrderID int64
	nextDetail  int64
}

type detailKey struct {
	orderID int64
	line    int
}

func NewStore() *Store {
	return &Store{
		products: map[int64]sales.Product{},
		numbers:  map[string]struct{}{},
		details:  map[detailKey]sales.SalesOrderDetail{},
	}
}

// PutProduct inserts or replaces a catalog entry.
func (s *Store) PutProduct(p sales.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutOrder stores a finished order as-is, for reporting fixtures.
func (s *Store) PutOrder(o sales.SalesOrder) sales.SalesOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders = append(s.orders, o)
	s.numbers[numberKey(o.SellerID, o.OrderNumber)] = struct{}{}
	return o
}

func (s *Store) Stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].SalesStock
}

func (s *Store) Orders() []sales.SalesOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sales.SalesOrder(nil), s.orders...)
}

// Details returns an order's detail rows by line number.
func (s *Store) Details(orderID int64) []sales.SalesOrderDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sales.SalesOrderDetail
	for k, d := range s.details {
		if k.orderID == orderID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out
}

func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	if err := s.commit(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (sales.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return sales.Product{}, fmt.Errorf("%w: %d", sales.ErrProductNotFound, id)
	}
	return p, nil
}

func (s *Store) InsertDetail(_ context.Context, d sales.SalesOrderDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasOrder(d.SalesOrderID) {
		return fmt.Errorf("%w: %d", sales.ErrOrderNotFound, d.SalesOrderID)
	}
	k := detailKey{orderID: d.SalesOrderID, line: d.LineNo}
	if _, dup := s.details[k]; dup {
		return nil
	}
	s.nextDetail++
	d.ID = s.nextDetail
	s.details[k] = d
	return nil
}

func (s *Store) ListOrders(_ context.Context, q sales.OrderQuery) (sales.OrderPage, error) {
	s.mu.Lock()
	matched := make([]sales.SalesOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if o.StoreID == q.StoreID && q.Range.Contains(o.CreatedAt) {
			matched = append(matched, o)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		c := compareOrders(matched[i], matched[j], q.Sort.Field)
		if c == 0 {
			c = compareInt(matched[i].ID, matched[j].ID)
		}
		if q.Sort.Desc {
			return c > 0
		}
		return c < 0
	})

	page := sales.OrderPage{Total: len(matched), Page: q.Page, PageSize: q.PageSize, Items: []sales.SalesOrder{}}
	start := q.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = append(page.Items, matched[start:end]...)
	return page, nil
}

func (s *Store) SalesTotals(_ context.Context, storeID int64, r sales.DateRange) (sales.SalesTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := sales.SalesTotals{TotalAmount: decimal.Zero}
	for _, o := range s.orders {
		if o.StoreID != storeID || o.OrderStatus == sales.OrderClosed || !r.Contains(o.CreatedAt) {
			continue
		}
		t.Count++
		t.TotalAmount = t.TotalAmount.Add(o.SumPrice)
	}
	return t, nil
}

func (s *Store) hasOrder(id int64) bool {
	for _, o := range s.orders {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range tx.orders {
		if _, dup := s.numbers[numberKey(o.SellerID, o.OrderNumber)]; dup {
			return fmt.Errorf("%w: %s for seller %d", sales.ErrDuplicateOrderNumber, o.OrderNumber, o.SellerID)
		}
	}
	for _, o := range tx.orders {
		s.numbers[numberKey(o.SellerID, o.OrderNumber)] = struct{}{}
		s.orders = append(s.orders, *o)
	}
	return nil
}

type memTx struct {
	store    *Store
	reserved []reservation
	orders   []*sales.SalesOrder
}

type reservation struct {
	productID int64
	qty       int
}

func (t *memTx) Reserve(_ context.Context, productID int64, qty int) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.products[productID]
	if !ok || p.SalesStock < qty {
		return false, nil
	}
	p.SalesStock -= qty
	t.store.products[productID] = p
	t.reserved = append(t.reserved, reservation{productID: productID, qty: qty})
	return true, nil
}

// CreateOrder assigns the ID right away; the row becomes visible on commit.
func (t *memTx) CreateOrder(_ context.Context, o *sales.SalesOrder) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.nextOrderID++
	o.ID = t.store.nextOrderID
	t.orders = append(t.orders, o)
	return nil
}

func (t *memTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.reserved) - 1; i >= 0; i-- {
		r := t.reserved[i]
		p := t.store.products[r.productID]
		p.SalesStock += r.qty
		t.store.products[r.productID] = p
	}
	t.reserved = nil
	t.orders = nil
}

func compareOrders(a, b sales.SalesOrder, field sales.SortField) int {
	switch field {
	case sales.SortSumPrice:
		return a.SumPrice.Cmp(b.SumPrice)
	case sales.SortOrderNumber:
		return strings.Compare(a.OrderNumber, b.OrderNumber)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func numberKey(seller int64, number string) string {
	return fmt.Sprintf("%d/%s", seller, number)
}

var (
	_ sales.UnitOfWork  = (*Store)(nil)
	_ sales.Catalog     = (*Store)(nil)
	_ sales.DetailStore = (*Store)(nil)
	_ sales.OrderReader = (*Store)(nil)
)
