package sales

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Submitter runs tasks in the background.
type Submitter interface {
	Submit(task func(ctx context.Context)) error
}

// PoolDispatcher runs the detail write and the hot-sale increment as two independent
// background tasks. Failures are logged and dropped.
type PoolDispatcher struct {
	pool     Submitter
	recorder *Recorder
	logger   *zap.Logger
}

func NewPoolDispatcher(pool Submitter, recorder *Recorder, logger *zap.Logger) *PoolDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolDispatcher{pool: pool, recorder: recorder, logger: logger}
}

func (d *PoolDispatcher) Schedule(_ context.Context, o PlacedOrder) error {
	var errs []error
	if err := d.pool.Submit(d.task("write_details", o, d.recorder.WriteDetails)); err != nil {
		errs = append(errs, fmt.Errorf("write_details: %w", err))
	}
	if err := d.pool.Submit(d.task("record_hot_sale", o, d.recorder.RecordHotSale)); err != nil {
		errs = append(errs, fmt.Errorf("record_hot_sale: %w", err))
	}
	return errors.Join(errs...)
}

func (d *PoolDispatcher) task(effect string, o PlacedOrder, fn func(context.Context, PlacedOrder) error) func(context.Context) {
	return func(ctx context.Context) {
		if err := fn(ctx, o); err != nil {
			d.logger.Error("deferred side effect failed",
				zap.String("effect", effect),
				zap.Int64("order_id", o.OrderID),
				zap.String("order_number", o.OrderNumber),
				zap.Int64("store_id", o.StoreID),
				zap.Error(err))
		}
	}
}

var _ Deferred = (*PoolDispatcher)(nil)
