package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a consumed record handed to a Handler.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. A returned error is treated as transient
// and the message is retried; malformed input should be logged and nil returned.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 200 * time.Millisecond
)

// Consumer polls a consumer group and commits offsets after each handled batch.
type Consumer struct {
	client      *kgo.Client
	handler     Handler
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

func WithMaxAttempts(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Consumer) { c.backoff = d }
}

// ClientOptions returns the franz-go options for a group consumer with manual commits.
func ClientOptions(group string, topics ...string) []kgo.Opt {
	return []kgo.Opt{
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
}

// New wraps a client built with ClientOptions.
func New(client *kgo.Client, handler Handler, logger *slog.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		client:      client,
		handler:     handler,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			if ctx.Err() != nil {
				return
			}
			if err := c.handle(ctx, FromRecord(r)); err != nil {
				return
			}
			handled = append(handled, r)
		})
		if len(handled) == 0 {
			continue
		}
		if err := c.client.CommitRecords(ctx, handled...); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "records", len(handled), "error", err)
		}
	}
}

// handle retries transient failures with linear backoff. After the last attempt
// the message is dropped so one poison record cannot stall the partition.
func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler.Handle(ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("message handling failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	c.logger.Error("dropping message after retries",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", fmt.Errorf("after %d attempts: %w", c.maxAttempts, err),
	)
	return nil
}

func (c *Consumer) Close() {
	c.client.Close()
}

// FromRecord converts a franz-go record.
func FromRecord(r *kgo.Record) *Message {
	msg := &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
	if len(r.Headers) > 0 {
		msg.Headers = make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}
