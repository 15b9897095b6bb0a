// Package observability decorates the sales use cases with tracing, metrics and logs.
package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

const tracerName = "github.com/ariefcatur/go-pos-sales/internal/observability"

type Sales struct {
	inner   sales.UseCases
	tracer  trace.Tracer
	logger  *zap.Logger
	meter   metric.Meter
	metrics salesMetrics
}

type Option func(*Sales)

func WithLogger(l *zap.Logger) Option {
	return func(s *Sales) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Sales) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Sales) { s.meter = m }
}

func New(inner sales.UseCases, opts ...Option) *Sales {
	s := &Sales{
		inner:  inner,
		tracer: nooptrace.NewTracerProvider().Tracer(tracerName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meter != nil {
		m, err := newSalesMetrics(s.meter)
		if err != nil {
			s.logger.Warn("sales metrics disabled", zap.Error(err))
		}
		s.metrics = m
	}
	return s
}

func (s *Sales) PlaceOrder(ctx context.Context, req sales.PlaceOrderRequest) (*sales.OrderConfirmation, error) {
	ctx, span := s.tracer.Start(ctx, "Sales.PlaceOrder", trace.WithAttributes(
		attribute.Int64("store.id", req.StoreID),
		attribute.Int64("seller.id", req.SellerID),
		attribute.Int("order.lines", len(req.Items)),
	))
	defer span.End()

	conf, err := s.inner.PlaceOrder(ctx, req)
	if err != nil {
		reason := "error"
		var stock *sales.InsufficientStockError
		switch {
		case errors.As(err, &stock):
			reason = "insufficient_stock"
			span.SetAttributes(attribute.Int64("product.id", stock.ProductID))
		case errors.Is(err, sales.ErrInvalidRequest):
			reason = "invalid"
		}
		s.metrics.recordRejected(ctx, reason)
		if reason == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("place order failed", zap.Int64("store_id", req.StoreID), zap.Error(err))
		} else {
			s.logger.Info("place order rejected", zap.Int64("store_id", req.StoreID), zap.String("reason", reason), zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", conf.OrderNumber), attribute.String("order.status", string(conf.OrderStatus)))
	s.metrics.recordPlaced(ctx, conf.OrderStatus)
	s.logger.Info("order placed",
		zap.Int64("order_id", conf.OrderID),
		zap.String("order_number", conf.OrderNumber),
		zap.String("status", string(conf.OrderStatus)),
		zap.String("total", conf.TotalPrice.String()))
	return conf, nil
}

func (s *Sales) ListOrders(ctx context.Context, q sales.OrderQuery) (sales.OrderPage, error) {
	ctx, span := s.tracer.Start(ctx, "Sales.ListOrders", trace.WithAttributes(attribute.Int64("store.id", q.StoreID)))
	defer span.End()

	page, err := s.inner.ListOrders(ctx, q)
	if err != nil {
		return page, s.fail(span, "list orders failed", err)
	}
	span.SetAttributes(attribute.Int("orders.total", page.Total))
	return page, nil
}

func (s *Sales) GetSalesTotals(ctx context.Context, storeID int64, r sales.DateRange) (sales.SalesTotals, error) {
	ctx, span := s.tracer.Start(ctx, "Sales.GetSalesTotals", trace.WithAttributes(attribute.Int64("store.id", storeID)))
	defer span.End()

	t, err := s.inner.GetSalesTotals(ctx, storeID, r)
	if err != nil {
		return t, s.fail(span, "sales totals failed", err)
	}
	return t, nil
}

func (s *Sales) fail(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if !errors.Is(err, sales.ErrInvalidRequest) {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}

type salesMetrics struct {
	placed   metric.Int64Counter
	rejected metric.Int64Counter
}

func newSalesMetrics(m metric.Meter) (salesMetrics, error) {
	placed, err := m.Int64Counter("sales.orders_placed", metric.WithDescription("Number of sales orders placed"))
	if err != nil {
		return salesMetrics{}, fmt.Errorf("orders_placed counter: %w", err)
	}
	rejected, err := m.Int64Counter("sales.orders_rejected", metric.WithDescription("Number of placements that did not commit"))
	if err != nil {
		return salesMetrics{}, fmt.Errorf("orders_rejected counter: %w", err)
	}
	return salesMetrics{placed: placed, rejected: rejected}, nil
}

func (m salesMetrics) recordPlaced(ctx context.Context, status sales.OrderStatus) {
	if m.placed != nil {
		m.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m salesMetrics) recordRejected(ctx context.Context, reason string) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

var _ sales.UseCases = (*Sales)(nil)
