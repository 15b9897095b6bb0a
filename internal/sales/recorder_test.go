package sales_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
	"github.com/ariefcatur/go-pos-sales/internal/sales/memory"
)

// flakyCounter fails the first n increments.
type flakyCounter struct {
	inner sales.HotSaleCounter
	fails int
}

func (c *flakyCounter) Increment(ctx context.Context, storeID, productID int64, day time.Time, amount int) error {
	if c.fails > 0 {
		c.fails--
		return errors.New("redis timeout")
	}
	return c.inner.Increment(ctx, storeID, productID, day, amount)
}

func placedFixture(store *memory.Store, items ...sales.LineItem) sales.PlacedOrder {
	o := store.PutOrder(sales.SalesOrder{StoreID: 7, SellerID: 42, OrderNumber: "20240315093000420001"})
	return sales.PlacedOrder{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		StoreID:     o.StoreID,
		SellerID:    o.SellerID,
		CreatedAt:   time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC),
		Items:       items,
	}
}

func TestRecorder_WriteDetailsIsolatesFailingLine(t *testing.T) {
	store := memory.NewStore()
	store.PutProduct(sales.Product{ID: 101, Name: "Teh", Title: "Jasmine tea"})
	store.PutProduct(sales.Product{ID: 103, Name: "Roti", Title: "Butter bread"})
	rec := sales.NewRecorder(store, store, memory.NewHotSales())

	o := placedFixture(store,
		sales.LineItem{ProductID: 101, Quantity: 1, Price: dec("4")},
		sales.LineItem{ProductID: 102, Quantity: 1, Price: dec("4")},
		sales.LineItem{ProductID: 103, Quantity: 2, Price: dec("6")},
	)

	err := rec.WriteDetails(context.Background(), o)
	require.ErrorIs(t, err, sales.ErrProductNotFound)
	assert.Contains(t, err.Error(), "line 2")

	details := store.Details(o.OrderID)
	require.Len(t, details, 2)
	assert.Equal(t, 1, details[0].LineNo)
	assert.Equal(t, "Teh", details[0].ProductName)
	assert.Equal(t, 3, details[1].LineNo)
	assert.Equal(t, "Butter bread", details[1].ProductTitle)
}

func TestRecorder_WriteDetailsRepeatsSafely(t *testing.T) {
	store := memory.NewStore()
	store.PutProduct(sales.Product{ID: 101, Name: "Teh"})
	rec := sales.NewRecorder(store, store, memory.NewHotSales())
	o := placedFixture(store, sales.LineItem{ProductID: 101, Quantity: 1, Price: dec("4")})

	require.NoError(t, rec.WriteDetails(context.Background(), o))
	require.NoError(t, rec.WriteDetails(context.Background(), o))
	assert.Len(t, store.Details(o.OrderID), 1)
}

func TestRecorder_HotSaleBucketsByLocalDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	store := memory.NewStore()
	hot := memory.NewHotSales()
	rec := sales.NewRecorder(store, store, hot, sales.WithLocation(jakarta))

	// 20:00 UTC on the 15th is 03:00 on the 16th in WIB.
	o := placedFixture(store, sales.LineItem{ProductID: 101, Quantity: 5, Price: dec("1")})
	require.NoError(t, rec.RecordHotSale(context.Background(), o))

	assert.Equal(t, 5, hot.Score(7, 101, time.Date(2024, 3, 16, 0, 0, 0, 0, jakarta)))
	assert.Zero(t, hot.Score(7, 101, time.Date(2024, 3, 15, 0, 0, 0, 0, jakarta)))
}

func TestRecorder_HotSaleSumsAcrossLines(t *testing.T) {
	store := memory.NewStore()
	hot := memory.NewHotSales()
	rec := sales.NewRecorder(store, store, hot, sales.WithLocation(time.UTC))

	o := placedFixture(store,
		sales.LineItem{ProductID: 101, Quantity: 2, Price: dec("1")},
		sales.LineItem{ProductID: 101, Quantity: 3, Price: dec("1")},
		sales.LineItem{ProductID: 102, Quantity: 1, Price: dec("1")},
	)
	require.NoError(t, rec.RecordHotSale(context.Background(), o))
	assert.Equal(t, 5, hot.Score(7, 101, o.CreatedAt))
	assert.Equal(t, 1, hot.Score(7, 102, o.CreatedAt))
}

func TestRecorder_GuardAppliesRedeliveredOrderOnce(t *testing.T) {
	store := memory.NewStore()
	hot := memory.NewHotSales()
	rec := sales.NewRecorder(store, store, hot, sales.WithLocation(time.UTC), sales.WithGuard(memory.NewGuard()))

	o := placedFixture(store, sales.LineItem{ProductID: 101, Quantity: 4, Price: dec("1")})
	require.NoError(t, rec.RecordHotSale(context.Background(), o))
	require.NoError(t, rec.RecordHotSale(context.Background(), o))
	assert.Equal(t, 4, hot.Score(7, 101, o.CreatedAt))
}

func TestRecorder_GuardReleasesClaimWhenIncrementFails(t *testing.T) {
	store := memory.NewStore()
	hot := memory.NewHotSales()
	counter := &flakyCounter{inner: hot, fails: 1}
	rec := sales.NewRecorder(store, store, counter, sales.WithLocation(time.UTC), sales.WithGuard(memory.NewGuard()))

	o := placedFixture(store,
		sales.LineItem{ProductID: 101, Quantity: 4, Price: dec("1")},
		sales.LineItem{ProductID: 102, Quantity: 1, Price: dec("1")},
	)
	err := rec.RecordHotSale(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Zero(t, hot.Score(7, 101, o.CreatedAt))
	assert.Equal(t, 1, hot.Score(7, 102, o.CreatedAt))

	require.NoError(t, rec.RecordHotSale(context.Background(), o))
	assert.Equal(t, 4, hot.Score(7, 101, o.CreatedAt))
	assert.Equal(t, 1, hot.Score(7, 102, o.CreatedAt))
}
