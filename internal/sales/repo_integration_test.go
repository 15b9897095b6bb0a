//go:build integration

package sales_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-pos-sales/internal/postgres"
	"github.com/ariefcatur/go-pos-sales/internal/sales"
	"github.com/ariefcatur/go-pos-sales/internal/sales/memory"
)

func setupSalesPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sales_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Connect(ctx, dsn, 32)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgres.Migrate(ctx, db))
	require.NoError(t, postgres.Migrate(ctx, db), "schema must apply twice")
	return db
}

func seedProduct(t *testing.T, db *pgxpool.Pool, name string, stock int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO products(product_name, product_title, main_img, sales_stock)
		VALUES ($1, $2, $3, $4) RETURNING id`, name, name+" title", name+".png", stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, db *pgxpool.Pool, id int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(), `SELECT sales_stock FROM products WHERE id = $1`, id).Scan(&n))
	return n
}

func pgService(db *pgxpool.Pool, hot sales.HotSaleCounter) (*sales.Service, *sales.Repo) {
	repo := &sales.Repo{DB: db}
	rec := sales.NewRecorder(repo, repo, hot, sales.WithLocation(time.UTC))
	svc := sales.NewService(&sales.TxRunner{DB: db}, repo, memory.NewOrderNumbers(), syncDeferred{rec: rec})
	return svc, repo
}

func TestPostgres_PlaceOrderEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupSalesPostgres(t)
	hot := memory.NewHotSales()
	svc, repo := pgService(db, hot)
	ctx := context.Background()

	pid := seedProduct(t, db, "kopi", 10)
	conf, err := svc.PlaceOrder(ctx, sales.PlaceOrderRequest{
		StoreID: 7, SellerID: 42,
		Items:    []sales.LineItem{{ProductID: pid, Quantity: 3, Price: dec("2.50")}},
		ToBePaid: dec("1.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, sales.OrderDebt, conf.OrderStatus)
	assert.True(t, dec("7.50").Equal(conf.TotalPrice))
	assert.Equal(t, 7, stockOf(t, db, pid))

	details, err := repo.DetailsByOrder(ctx, conf.OrderID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "kopi title", details[0].ProductTitle)
	assert.True(t, dec("2.50").Equal(details[0].SalesPrice))
	assert.Equal(t, 3, hot.Score(7, pid, conf.CreatedAt))

	day := conf.CreatedAt.Truncate(24 * time.Hour)
	page, err := svc.ListOrders(ctx, sales.OrderQuery{StoreID: 7, Range: sales.DateRange{From: day, To: day.Add(24 * time.Hour)}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	got := page.Items[0]
	assert.Equal(t, conf.OrderNumber, got.OrderNumber)
	assert.True(t, dec("1.25").Equal(got.ToBePaid))
	assert.True(t, conf.CreatedAt.Equal(got.CreatedAt))
}

func TestPostgres_InsufficientStockRollsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupSalesPostgres(t)
	svc, _ := pgService(db, memory.NewHotSales())
	ctx := context.Background()

	a := seedProduct(t, db, "teh", 10)
	b := seedProduct(t, db, "roti", 1)
	_, err := svc.PlaceOrder(ctx, sales.PlaceOrderRequest{
		StoreID: 7, SellerID: 42,
		Items: []sales.LineItem{
			{ProductID: a, Quantity: 4, Price: dec("1")},
			{ProductID: b, Quantity: 2, Price: dec("1")},
		},
	})
	var stock *sales.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, b, stock.ProductID)
	assert.Equal(t, 10, stockOf(t, db, a))
	assert.Equal(t, 1, stockOf(t, db, b))

	var orders int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM sales_orders`).Scan(&orders))
	assert.Zero(t, orders)
}

func TestPostgres_DuplicateOrderNumberIsRetried(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupSalesPostgres(t)
	ctx := context.Background()
	repo := &sales.Repo{DB: db}
	gen := &scriptedNumbers{next: []string{"20240315093000420001", "20240315093000420001", "20240315093000420002"}}
	svc := sales.NewService(&sales.TxRunner{DB: db}, repo, gen, &recordingDeferred{})

	p := seedProduct(t, db, "kopi", 10)
	req := sales.PlaceOrderRequest{StoreID: 7, SellerID: 42, Items: []sales.LineItem{{ProductID: p, Quantity: 1}}}

	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "20240315093000420001", first.OrderNumber)
	assert.Equal(t, "20240315093000420002", second.OrderNumber)
	assert.Equal(t, 8, stockOf(t, db, p))
}

func TestPostgres_ConcurrentPlacementsNeverOversell(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupSalesPostgres(t)
	svc, _ := pgService(db, memory.NewHotSales())
	pid := seedProduct(t, db, "es", 5)

	var placed atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), sales.PlaceOrderRequest{
				StoreID: 7, SellerID: 42,
				Items: []sales.LineItem{{ProductID: pid, Quantity: 1, Price: dec("1")}},
			})
			if errors.Is(err, sales.ErrInsufficientStock) {
				return nil
			}
			if err == nil {
				placed.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(5), placed.Load())
	assert.Equal(t, 0, stockOf(t, db, pid))
}

func TestPostgres_TotalsExcludeClosed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db := setupSalesPostgres(t)
	svc, _ := pgService(db, memory.NewHotSales())
	ctx := context.Background()
	pid := seedProduct(t, db, "kue", 100)

	var ids []int64
	for _, price := range []string{"10.00", "5.50", "3.25"} {
		conf, err := svc.PlaceOrder(ctx, sales.PlaceOrderRequest{
			StoreID: 7, SellerID: 42,
			Items: []sales.LineItem{{ProductID: pid, Quantity: 1, Price: dec(price)}},
		})
		require.NoError(t, err)
		ids = append(ids, conf.OrderID)
	}
	_, err := db.Exec(ctx, `UPDATE sales_orders SET order_status = $1 WHERE id = $2`, string(sales.OrderClosed), ids[1])
	require.NoError(t, err)

	rg := sales.DateRange{From: time.Now().Add(-time.Hour), To: time.Now().Add(time.Hour)}
	totals, err := svc.GetSalesTotals(ctx, 7, rg)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Count)
	assert.True(t, dec("13.25").Equal(totals.TotalAmount), "got %s", totals.TotalAmount)

	page, err := svc.ListOrders(ctx, sales.OrderQuery{StoreID: 7, Range: rg, Sort: sales.SortSpec{Field: sales.SortSumPrice, Desc: true}})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	assert.True(t, dec("10.00").Equal(page.Items[0].SumPrice))
	assert.Equal(t, sales.OrderClosed, page.Items[1].OrderStatus)
}
