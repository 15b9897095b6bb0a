package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         int64
	Name       string
	Title      string
	MainImage  string
	SalesStock int
}

type SalesOrder struct {
	ID              int64           `json:"id"`
	StoreID         int64           `json:"storeId"`
	SellerID        int64           `json:"sellerId"`
	OrderNumber     string          `json:"orderNumber"`
	SumPrice        decimal.Decimal `json:"sumPrice"`
	ToBePaid        decimal.Decimal `json:"toBePaid"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	LogisticsStatus LogisticsStatus `json:"logisticsStatus"`
	Remark          string          `json:"remark,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// SalesOrderDetail is the line snapshot written after the order commits.
// Name, title and image are copied from the catalog at write time.
type SalesOrderDetail struct {
	ID           int64
	SalesOrderID int64
	LineNo       int
	ProductID    int64
	ProductName  string
	ProductTitle string
	MainImage    string
	SalesCount   int
	SalesPrice   decimal.Decimal
}

type LineItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type PlaceOrderRequest struct {
	StoreID  int64           `json:"storeId"`
	SellerID int64           `json:"sellerId"`
	Items    []LineItem      `json:"items"`
	ToBePaid decimal.Decimal `json:"toBePaid"`
	Remark   string          `json:"remark,omitempty"`
}

type OrderConfirmation struct {
	OrderID         int64           `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	ToBePaid        decimal.Decimal `json:"toBePaid"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	LogisticsStatus LogisticsStatus `json:"logisticsStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// PlacedOrder is what the deferred side effects need from a committed order.
type PlacedOrder struct {
	OrderID     int64      `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	StoreID     int64      `json:"store_id"`
	SellerID    int64      `json:"seller_id"`
	CreatedAt   time.Time  `json:"created_at"`
	Items       []LineItem `json:"items"`
}

// DateRange is inclusive on both ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

type SalesTotals struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type OrderPage struct {
	Items    []SalesOrder `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}
