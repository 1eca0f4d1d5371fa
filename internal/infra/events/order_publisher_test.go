package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
	hits int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleEvent() model.OrderEvent {
	return model.OrderEvent{
		EventID:    "evt-1",
		Type:       model.OrderEventPlaced,
		OrderID:    10,
		UserID:     3,
		Status:     model.OrderStatusPending,
		Total:      decimal.RequireFromString("400.00"),
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaOrderPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaOrderPublisher(w, zap.NewNop())

	require.NoError(t, p.PublishOrderEvent(context.Background(), sampleEvent()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "10", string(msg.Key))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "order.placed", got["type"])
	assert.Equal(t, "400", got["total"])
	assert.Equal(t, "pending", got["status"])

	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))
}

func TestKafkaOrderPublisher_BreakerOpens(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaOrderPublisher(w, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, p.PublishOrderEvent(ctx, sampleEvent()))
	}

	// 3回失敗したら書き込みに行かない
	err := p.PublishOrderEvent(ctx, sampleEvent())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, w.hits)
}

func TestNopOrderPublisher(t *testing.T) {
	assert.NoError(t, NopOrderPublisher{}.PublishOrderEvent(context.Background(), sampleEvent()))
}
