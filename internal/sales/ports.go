package sales

import (
	"context"
	"time"
)

// StockLedger decrements sales stock only when enough is available.
// A false result with a nil error means the stock was insufficient.
type StockLedger interface {
	Reserve(ctx context.Context, productID int64, qty int) (bool, error)
}

// OrderWriter inserts an order header and fills in its ID.
type OrderWriter interface {
	CreateOrder(ctx context.Context, order *SalesOrder) error
}

// Tx is the transactional scope handed to a UnitOfWork callback.
type Tx interface {
	StockLedger
	OrderWriter
}

// UnitOfWork commits fn's writes atomically, or none of them when fn returns an error.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
}

// DetailStore ignores a detail whose (order, line) was already written.
type DetailStore interface {
	InsertDetail(ctx context.Context, d SalesOrderDetail) error
}

type OrderReader interface {
	ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error)
	SalesTotals(ctx context.Context, storeID int64, r DateRange) (SalesTotals, error)
}

type HotSaleCounter interface {
	Increment(ctx context.Context, storeID, productID int64, day time.Time, amount int) error
}

type OrderNumberGenerator interface {
	Next(ctx context.Context, sellerID int64) (string, error)
}

// Deferred takes committed orders whose detail rows and hot-sale scores are still pending.
// Schedule must not wait for that work.
type Deferred interface {
	Schedule(ctx context.Context, order PlacedOrder) error
}

// Guard claims a key once so redelivered work is applied a single time.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// UseCases is the surface exposed to transports.
type UseCases interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderConfirmation, error)
	ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error)
	GetSalesTotals(ctx context.Context, storeID int64, r DateRange) (SalesTotals, error)
}
