// Package salesworker applies the deferred side effects of orders published by the API
// in kafka side-effect mode.
package salesworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-pos-sales/internal/kafka"
	"github.com/ariefcatur/go-pos-sales/internal/sales"
)

type Service struct {
	Recorder *sales.Recorder
	Logger   *zap.Logger
}

// HandleOrderPlaced is registered as the consumer handler. Both effects run even when one
// fails; a returned error makes the consumer retry the message and, if it keeps failing,
// stop before committing past it.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.HeaderValue(m, sales.HeaderEventType); t != "" && t != sales.EventOrderPlaced {
		return nil
	}
	var env sales.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// Poison message: commit past it.
		s.logger().Error("undecodable envelope dropped", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != sales.EventOrderPlaced {
		return nil
	}

	o, err := kafkax.UnwrapPayload[sales.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.logger().Error("undecodable payload dropped", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	var errs []error
	if err := s.Recorder.WriteDetails(ctx, o); err != nil {
		errs = append(errs, fmt.Errorf("write details: %w", err))
	}
	if err := s.Recorder.RecordHotSale(ctx, o); err != nil {
		errs = append(errs, fmt.Errorf("record hot sale: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("order %d (%s): %w", o.OrderID, o.OrderNumber, err)
	}
	s.logger().Debug("order side effects applied",
		zap.Int64("order_id", o.OrderID),
		zap.Int("lines", len(o.Items)))
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
