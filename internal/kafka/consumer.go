package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r        Reader
	workers  int
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

type ConsumerOption func(*Consumer)

// WithRetry sets how many times a message is handled before the consumer gives up, and the
// first pause between tries. The pause doubles after each failure.
func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

func NewConsumer(brokers []string, group, topic string, workers int, logger *zap.Logger, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return NewConsumerWithReader(r, workers, logger, opts...)
}

func NewConsumerWithReader(r Reader, workers int, logger *zap.Logger, opts ...ConsumerOption) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{r: r, workers: workers, attempts: 3, backoff: 200 * time.Millisecond, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start fetch sampai ctx selesai. Offset group sifatnya kumulatif, jadi commit per partisi
// hanya sampai pesan sukses berurutan terakhir. Pesan yang tetap gagal setelah retry
// menghentikan consumer; pesan itu dan sesudahnya di-redeliver pada run berikutnya.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		offsets  = newOffsetTracker()
		failOnce sync.Once
		failErr  error
	)
	jobs := make(chan *fetched, c.workers*4)
	var wg sync.WaitGroup
	wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go func() {
			defer wg.Done()
			for f := range jobs {
				if runCtx.Err() != nil {
					continue // lagi berhenti, biar di-redeliver
				}
				if err := c.handle(ctx, h, f.msg); err != nil {
					failOnce.Do(func() {
						failErr = fmt.Errorf("partition %d offset %d: %w", f.msg.Partition, f.msg.Offset, err)
						c.logger.Error("message failed after retries, stopping",
							zap.String("topic", f.msg.Topic),
							zap.Int("partition", f.msg.Partition),
							zap.Int64("offset", f.msg.Offset),
							zap.Error(err))
						stop()
					})
					continue
				}
				offsets.complete(f, func(m kafka.Message) {
					if err := c.r.CommitMessages(ctx, m); err != nil {
						c.logger.Warn("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
					}
				})
			}
		}()
	}
	drain := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(runCtx)
		if err != nil {
			drain()
			if runCtx.Err() != nil {
				return failErr
			}
			return err
		}
		select {
		case jobs <- offsets.track(m):
		case <-runCtx.Done():
			drain()
			return failErr
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		c.logger.Warn("handle message failed",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt >= c.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
		wait *= 2
	}
}

type fetched struct {
	msg  kafka.Message
	done bool
}

type partitionKey struct {
	topic     string
	partition int
}

// offsetTracker: pesan in-flight per partisi, urut sesuai fetch.
type offsetTracker struct {
	mu    sync.Mutex
	parts map[partitionKey][]*fetched
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: make(map[partitionKey][]*fetched)}
}

func (t *offsetTracker) track(m kafka.Message) *fetched {
	f := &fetched{msg: m}
	k := partitionKey{topic: m.Topic, partition: m.Partition}
	t.mu.Lock()
	t.parts[k] = append(t.parts[k], f)
	t.mu.Unlock()
	return f
}

// complete menandai f selesai lalu commit pesan terbaru dari prefix yang sudah selesai.
// Commit di dalam lock supaya offset tidak mundur.
func (t *offsetTracker) complete(f *fetched, commit func(kafka.Message)) {
	k := partitionKey{topic: f.msg.Topic, partition: f.msg.Partition}
	t.mu.Lock()
	defer t.mu.Unlock()
	f.done = true
	q := t.parts[k]
	n := 0
	for n < len(q) && q[n].done {
		n++
	}
	if n == 0 {
		return
	}
	last := q[n-1].msg
	clear(q[:n])
	t.parts[k] = q[n:]
	commit(last)
}
