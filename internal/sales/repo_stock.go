package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner is the Postgres unit of work. Reservations rely on a conditional UPDATE, so
// READ COMMITTED is enough to keep concurrent placements from overselling.
type TxRunner struct{ DB *pgxpool.Pool }

func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

// Reserve decrements only while stock covers qty; zero rows affected means insufficient.
func (t *pgTx) Reserve(ctx context.Context, productID int64, qty int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET sales_stock = sales_stock - $2, updated_at = now()
		WHERE id = $1 AND sales_stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o *SalesOrder) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales_orders(store_id, seller_id, order_number, sum_price, to_be_paid,
		                         order_status, logistics_status, remark, created_time)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9)
		RETURNING id`,
		o.StoreID, o.SellerID, o.OrderNumber, o.SumPrice.String(), o.ToBePaid.String(),
		string(o.OrderStatus), string(o.LogisticsStatus), o.Remark, o.CreatedAt,
	).Scan(&o.ID)
	if isOrderNumberConflict(err) {
		return fmt.Errorf("%w: %s for seller %d", ErrDuplicateOrderNumber, o.OrderNumber, o.SellerID)
	}
	return err
}

func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_sales_orders_seller_number"
	}
	return false
}

var _ UnitOfWork = (*TxRunner)(nil)
