package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service places sales orders and answers the reporting queries.
type Service struct {
	uow      UnitOfWork
	reader   OrderReader
	numbers  OrderNumberGenerator
	deferred Deferred
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(uow UnitOfWork, reader OrderReader, numbers OrderNumberGenerator, deferred Deferred, opts ...Option) *Service {
	s := &Service{
		uow:      uow,
		reader:   reader,
		numbers:  numbers,
		deferred: deferred,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder reserves stock for every line in request order and writes the header in the
// same transaction. Detail rows and hot-sale scores are handed off after commit and never
// affect the result.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderConfirmation, error) {
	total, err := validatePlaceOrder(req)
	if err != nil {
		return nil, err
	}

	order, err := s.commitOrder(ctx, req, total)
	if errors.Is(err, ErrDuplicateOrderNumber) {
		// A reused sequence second; one more try with a fresh number.
		s.logger.Warn("order number collision, retrying", zap.Int64("seller_id", req.SellerID), zap.Error(err))
		order, err = s.commitOrder(ctx, req, total)
	}
	if err != nil {
		return nil, err
	}

	if len(req.Items) > 0 {
		placed := PlacedOrder{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			StoreID:     order.StoreID,
			SellerID:    order.SellerID,
			CreatedAt:   order.CreatedAt,
			Items:       append([]LineItem(nil), req.Items...),
		}
		if err := s.deferred.Schedule(ctx, placed); err != nil {
			s.logger.Error("deferred side effects not scheduled",
				zap.Int64("order_id", order.ID),
				zap.String("order_number", order.OrderNumber),
				zap.Error(err))
		}
	}

	return &OrderConfirmation{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		TotalPrice:      order.SumPrice,
		ToBePaid:        order.ToBePaid,
		OrderStatus:     order.OrderStatus,
		LogisticsStatus: order.LogisticsStatus,
		CreatedAt:       order.CreatedAt,
	}, nil
}

// commitOrder draws an order number, then reserves every line and inserts the header in
// one transaction.
func (s *Service) commitOrder(ctx context.Context, req PlaceOrderRequest, total decimal.Decimal) (*SalesOrder, error) {
	number, err := s.numbers.Next(ctx, req.SellerID)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	order := &SalesOrder{
		StoreID:         req.StoreID,
		SellerID:        req.SellerID,
		OrderNumber:     number,
		SumPrice:        total,
		ToBePaid:        req.ToBePaid,
		OrderStatus:     StatusFor(req.ToBePaid),
		LogisticsStatus: LogisticsNotSent,
		Remark:          req.Remark,
		CreatedAt:       s.now().UTC().Truncate(time.Microsecond),
	}

	err = s.uow.Run(ctx, func(ctx context.Context, tx Tx) error {
		for _, it := range req.Items {
			ok, err := tx.Reserve(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("reserve product %d: %w", it.ProductID, err)
			}
			if !ok {
				return &InsufficientStockError{ProductID: it.ProductID}
			}
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order header: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders pages through a store's orders in the range, CLOSED ones included.
func (s *Service) ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error) {
	q, err := q.normalize()
	if err != nil {
		return OrderPage{}, err
	}
	return s.reader.ListOrders(ctx, q)
}

// GetSalesTotals counts and sums the store's non-closed orders in the range.
func (s *Service) GetSalesTotals(ctx context.Context, storeID int64, r DateRange) (SalesTotals, error) {
	if storeID <= 0 {
		return SalesTotals{}, invalid("store id must be positive")
	}
	if err := checkRange(r); err != nil {
		return SalesTotals{}, err
	}
	return s.reader.SalesTotals(ctx, storeID, r)
}

func validatePlaceOrder(req PlaceOrderRequest) (decimal.Decimal, error) {
	if req.StoreID <= 0 {
		return decimal.Zero, invalid("store id must be positive")
	}
	if req.SellerID <= 0 {
		return decimal.Zero, invalid("seller id must be positive")
	}
	total := decimal.Zero
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			return decimal.Zero, invalid("item %d: product id must be positive", i+1)
		}
		if it.Quantity <= 0 {
			return decimal.Zero, invalid("item %d: quantity must be positive", i+1)
		}
		if it.Price.IsNegative() {
			return decimal.Zero, invalid("item %d: price must not be negative", i+1)
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if req.ToBePaid.IsNegative() {
		return decimal.Zero, invalid("to-be-paid must not be negative")
	}
	return total, nil
}

var _ UseCases = (*Service)(nil)
