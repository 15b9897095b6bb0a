package salesworker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-pos-sales/internal/sales"
	"github.com/ariefcatur/go-pos-sales/internal/sales/memory"
)

// publishCapture records what EventDispatcher would hand to Kafka.
type publishCapture struct{ msg kafkago.Message }

func (p *publishCapture) Publish(key, value []byte, headers ...kafkago.Header) error {
	p.msg = kafkago.Message{Key: key, Value: value, Headers: headers}
	return nil
}

type worker struct {
	svc   *Service
	store *memory.Store
	hot   *memory.HotSales
	order sales.PlacedOrder
	msg   kafkago.Message
}

func newWorker(t *testing.T) *worker {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(sales.Product{ID: 101, Name: "Teh", Title: "Jasmine tea"})
	hot := memory.NewHotSales()
	rec := sales.NewRecorder(store, store, hot, sales.WithLocation(time.UTC), sales.WithGuard(memory.NewGuard()))

	header := store.PutOrder(sales.SalesOrder{StoreID: 7, SellerID: 42, OrderNumber: "20240315093000420001"})
	o := sales.PlacedOrder{
		OrderID:     header.ID,
		OrderNumber: header.OrderNumber,
		StoreID:     7,
		SellerID:    42,
		CreatedAt:   time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Items:       []sales.LineItem{{ProductID: 101, Quantity: 3, Price: decimal.RequireFromString("2.50")}},
	}
	pub := &publishCapture{}
	require.NoError(t, sales.NewEventDispatcher(pub, "sales-api").Schedule(context.Background(), o))

	return &worker{svc: &Service{Recorder: rec}, store: store, hot: hot, order: o, msg: pub.msg}
}

func TestHandleOrderPlaced_AppliesEffects(t *testing.T) {
	w := newWorker(t)

	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), w.msg))

	details := w.store.Details(w.order.OrderID)
	require.Len(t, details, 1)
	assert.Equal(t, "Jasmine tea", details[0].ProductTitle)
	assert.Equal(t, 3, w.hot.Score(7, 101, w.order.CreatedAt))
}

func TestHandleOrderPlaced_RedeliveryIsIdempotent(t *testing.T) {
	w := newWorker(t)

	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), w.msg))
	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), w.msg))

	assert.Len(t, w.store.Details(w.order.OrderID), 1)
	assert.Equal(t, 3, w.hot.Score(7, 101, w.order.CreatedAt))
}

func TestHandleOrderPlaced_FailureLeavesMessageUncommitted(t *testing.T) {
	w := newWorker(t)
	w.store = memory.NewStore() // header and product are gone
	w.svc.Recorder = sales.NewRecorder(w.store, w.store, w.hot, sales.WithLocation(time.UTC))

	err := w.svc.HandleOrderPlaced(context.Background(), w.msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write details")
	assert.Contains(t, err.Error(), w.order.OrderNumber)
	assert.Equal(t, 3, w.hot.Score(7, 101, w.order.CreatedAt))
}

func TestHandleOrderPlaced_SkipsPoisonAndForeignMessages(t *testing.T) {
	w := newWorker(t)

	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("not json")}))

	other, err := json.Marshal(sales.Envelope{EventType: "OrderCancelled", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: other}))

	bad, err := json.Marshal(sales.Envelope{EventType: sales.EventOrderPlaced, Payload: json.RawMessage(`"oops"`)})
	require.NoError(t, err)
	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: bad}))

	foreign := w.msg
	foreign.Headers = []kafkago.Header{{Key: sales.HeaderEventType, Value: []byte("OrderCancelled")}}
	require.NoError(t, w.svc.HandleOrderPlaced(context.Background(), foreign))

	assert.Empty(t, w.store.Details(w.order.OrderID))
	assert.Zero(t, w.hot.Score(7, 101, w.order.CreatedAt))
}
