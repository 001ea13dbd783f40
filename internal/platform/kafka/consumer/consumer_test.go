package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromRecord(t *testing.T) {
	ts := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	msg := FromRecord(&kgo.Record{
		Topic:     "case-events",
		Partition: 2,
		Offset:    17,
		Key:       []byte("id"),
		Value:     []byte("{}"),
		Timestamp: ts,
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte("CASE_CLOSED")}},
	})

	assert.Equal(t, "case-events", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(17), msg.Offset)
	assert.Equal(t, ts, msg.Timestamp)
	assert.Equal(t, "CASE_CLOSED", msg.Headers["event_type"])
}

func TestHandleRetries(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		c := New(nil, HandlerFunc(func(ctx context.Context, msg *Message) error {
			calls++
			if calls < 3 {
				return errors.New("db down")
			}
			return nil
		}), discardLogger(), WithBackoff(time.Millisecond))

		require.NoError(t, c.handle(context.Background(), &Message{Topic: "t"}))
		assert.Equal(t, 3, calls)
	})

	t.Run("drops after max attempts", func(t *testing.T) {
		calls := 0
		c := New(nil, HandlerFunc(func(ctx context.Context, msg *Message) error {
			calls++
			return errors.New("always")
		}), discardLogger(), WithMaxAttempts(2), WithBackoff(time.Millisecond))

		require.NoError(t, c.handle(context.Background(), &Message{Topic: "t"}))
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		c := New(nil, HandlerFunc(func(ctx context.Context, msg *Message) error {
			cancel()
			return errors.New("fail")
		}), discardLogger(), WithBackoff(time.Hour))

		assert.ErrorIs(t, c.handle(ctx, &Message{Topic: "t"}), context.Canceled)
	})
}
