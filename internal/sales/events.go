package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventOrderPlaced = "OrderPlaced"

	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order number
	Payload       json.RawMessage `json:"payload"`
}

// OrderPlacedPayload carries a committed order to the sales worker.
type OrderPlacedPayload = PlacedOrder

// Publisher enqueues a message without waiting for the broker.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// EventDispatcher hands committed orders to the sales worker through Kafka.
type EventDispatcher struct {
	pub      Publisher
	producer string
	now      func() time.Time
}

func NewEventDispatcher(pub Publisher, producer string) *EventDispatcher {
	return &EventDispatcher{pub: pub, producer: producer, now: time.Now}
}

func (d *EventDispatcher) Schedule(_ context.Context, o PlacedOrder) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    d.now().UTC(),
		Producer:      d.producer,
		CorrelationID: o.OrderNumber,
		Payload:       payload,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return d.pub.Publish(PartitionKey(o.StoreID), value,
		kafkago.Header{Key: HeaderEventType, Value: []byte(EventOrderPlaced)},
		kafkago.Header{Key: HeaderEventVersion, Value: []byte("1")},
	)
}

var _ Deferred = (*EventDispatcher)(nil)
