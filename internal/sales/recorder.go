package sales

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Recorder applies the side effects of a committed order. Each line is handled on its
// own; a failing line is reported in the joined error and the rest still go through.
type Recorder struct {
	catalog  Catalog
	details  DetailStore
	counter  HotSaleCounter
	location *time.Location
	guard    Guard
}

type RecorderOption func(*Recorder)

// WithLocation sets the zone whose calendar day buckets the hot-sale counter.
func WithLocation(loc *time.Location) RecorderOption {
	return func(r *Recorder) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithGuard makes counter increments safe to repeat for the same order line.
func WithGuard(g Guard) RecorderOption {
	return func(r *Recorder) { r.guard = g }
}

func NewRecorder(catalog Catalog, details DetailStore, counter HotSaleCounter, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		catalog:  catalog,
		details:  details,
		counter:  counter,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WriteDetails snapshots each line's product and stores it as a detail row.
func (r *Recorder) WriteDetails(ctx context.Context, o PlacedOrder) error {
	var errs []error
	for i, it := range o.Items {
		line := i + 1
		p, err := r.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d product %d: snapshot: %w", line, it.ProductID, err))
			continue
		}
		d := SalesOrderDetail{
			SalesOrderID: o.OrderID,
			LineNo:       line,
			ProductID:    it.ProductID,
			ProductName:  p.Name,
			ProductTitle: p.Title,
			MainImage:    p.MainImage,
			SalesCount:   it.Quantity,
			SalesPrice:   it.Price,
		}
		if err := r.details.InsertDetail(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("line %d product %d: insert detail: %w", line, it.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

// RecordHotSale adds each line's quantity to the store's counter for the order's day.
func (r *Recorder) RecordHotSale(ctx context.Context, o PlacedOrder) error {
	day := o.CreatedAt.In(r.location)
	var errs []error
	for i, it := range o.Items {
		line := i + 1
		if err := r.incrementLine(ctx, o, line, it, day); err != nil {
			errs = append(errs, fmt.Errorf("line %d product %d: hot sale: %w", line, it.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) incrementLine(ctx context.Context, o PlacedOrder, line int, it LineItem, day time.Time) error {
	if r.guard == nil {
		return r.counter.Increment(ctx, o.StoreID, it.ProductID, day, it.Quantity)
	}
	key := fmt.Sprintf("hot_sale:%d:%d", o.OrderID, line)
	first, err := r.guard.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !first {
		return nil
	}
	if err := r.counter.Increment(ctx, o.StoreID, it.ProductID, day, it.Quantity); err != nil {
		if rerr := r.guard.Release(ctx, key); rerr != nil {
			return errors.Join(err, fmt.Errorf("release claim: %w", rerr))
		}
		return err
	}
	return nil
}
