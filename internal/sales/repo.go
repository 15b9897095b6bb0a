package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo reads the catalog and writes detail rows and reporting queries against Postgres.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, product_name, product_title, main_img, sales_stock
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Title, &p.MainImage, &p.SalesStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, err
}

func (r *Repo) InsertDetail(ctx context.Context, d SalesOrderDetail) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO sales_order_details(sales_order_id, line_no, product_id, product_name,
		                                product_title, main_img, sales_count, sales_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
		ON CONFLICT (sales_order_id, line_no) DO NOTHING`,
		d.SalesOrderID, d.LineNo, d.ProductID, d.ProductName,
		d.ProductTitle, d.MainImage, d.SalesCount, d.SalesPrice.String())
	return err
}

// DetailsByOrder returns the detail rows of one order by line number.
func (r *Repo) DetailsByOrder(ctx context.Context, orderID int64) ([]SalesOrderDetail, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, sales_order_id, line_no, product_id, product_name, product_title,
		       main_img, sales_count, sales_price::text
		FROM sales_order_details WHERE sales_order_id = $1 ORDER BY line_no`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesOrderDetail
	for rows.Next() {
		var d SalesOrderDetail
		var price string
		if err := rows.Scan(&d.ID, &d.SalesOrderID, &d.LineNo, &d.ProductID, &d.ProductName,
			&d.ProductTitle, &d.MainImage, &d.SalesCount, &price); err != nil {
			return nil, err
		}
		if d.SalesPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("detail %d price: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Column names are fixed here; SortSpec never reaches SQL as text.
var orderColumns = map[SortField]string{
	SortCreatedAt:   "created_time",
	SortSumPrice:    "sum_price",
	SortOrderNumber: "order_number",
}

func (r *Repo) ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error) {
	page := OrderPage{Page: q.Page, PageSize: q.PageSize, Items: []SalesOrder{}}

	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM sales_orders
		WHERE store_id = $1 AND created_time BETWEEN $2 AND $3`,
		q.StoreID, q.Range.From, q.Range.To).Scan(&page.Total)
	if err != nil {
		return OrderPage{}, err
	}
	if page.Total == 0 {
		return page, nil
	}

	col, ok := orderColumns[q.Sort.Field]
	if !ok {
		col = orderColumns[SortCreatedAt]
	}
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, store_id, seller_id, order_number, sum_price::text, to_be_paid::text,
		       order_status, logistics_status, remark, created_time
		FROM sales_orders
		WHERE store_id = $1 AND created_time BETWEEN $2 AND $3
		ORDER BY `+col+` `+dir+`, id `+dir+`
		LIMIT $4 OFFSET $5`,
		q.StoreID, q.Range.From, q.Range.To, q.PageSize, q.Offset())
	if err != nil {
		return OrderPage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return OrderPage{}, err
		}
		page.Items = append(page.Items, o)
	}
	return page, rows.Err()
}

func (r *Repo) SalesTotals(ctx context.Context, storeID int64, rg DateRange) (SalesTotals, error) {
	var t SalesTotals
	var sum string
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(sum_price), 0)::text
		FROM sales_orders
		WHERE store_id = $1 AND created_time BETWEEN $2 AND $3 AND order_status <> $4`,
		storeID, rg.From, rg.To, string(OrderClosed)).Scan(&t.Count, &sum)
	if err != nil {
		return SalesTotals{}, err
	}
	if t.TotalAmount, err = decimal.NewFromString(sum); err != nil {
		return SalesTotals{}, fmt.Errorf("total amount: %w", err)
	}
	return t, nil
}

func scanOrder(row pgx.Row) (SalesOrder, error) {
	var o SalesOrder
	var sum, toBePaid, status, logistics string
	if err := row.Scan(&o.ID, &o.StoreID, &o.SellerID, &o.OrderNumber, &sum, &toBePaid,
		&status, &logistics, &o.Remark, &o.CreatedAt); err != nil {
		return SalesOrder{}, err
	}
	var err error
	if o.SumPrice, err = decimal.NewFromString(sum); err != nil {
		return SalesOrder{}, fmt.Errorf("order %d sum price: %w", o.ID, err)
	}
	if o.ToBePaid, err = decimal.NewFromString(toBePaid); err != nil {
		return SalesOrder{}, fmt.Errorf("order %d to-be-paid: %w", o.ID, err)
	}
	o.OrderStatus = OrderStatus(status)
	o.LogisticsStatus = LogisticsStatus(logistics)
	return o, nil
}

var (
	_ Catalog     = (*Repo)(nil)
	_ DetailStore = (*Repo)(nil)
	_ OrderReader = (*Repo)(nil)
)
