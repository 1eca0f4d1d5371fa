package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// kafka.Writer の使う部分だけ
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 注文イベントをKafkaへ送る。ブローカーが続けて落ちたらブレーカーで止める。
type KafkaOrderPublisher struct {
	writer  messageWriter
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	timeout time.Duration
}

func NewKafkaOrderPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaOrderPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaOrderPublisher(writer, logger)
}

func newKafkaOrderPublisher(w messageWriter, logger *zap.Logger) *KafkaOrderPublisher {
	settings := gobreaker.Settings{
		Name:        "OrderEvents",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &KafkaOrderPublisher{
		writer:  w,
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// 同じ注文のイベントは同じパーティションに入るようにorder_idをキーにする
func (p *KafkaOrderPublisher) PublishOrderEvent(ctx context.Context, evt model.OrderEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.EventID)},
		},
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		// リクエストのキャンセルに引きずられないように切り離す
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return nil, p.writer.WriteMessages(wctx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Warn("order event dropped, circuit open",
				zap.String("event_id", evt.EventID),
				zap.Int64("order_id", evt.OrderID))
		}
		return err
	}

	p.logger.Info("order event published",
		zap.String("event_id", evt.EventID),
		zap.String("type", string(evt.Type)),
		zap.Int64("order_id", evt.OrderID))
	return nil
}

func (p *KafkaOrderPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// Kafka未設定のとき
type NopOrderPublisher struct{}

func (NopOrderPublisher) PublishOrderEvent(context.Context, model.OrderEvent) error { return nil }
func (NopOrderPublisher) Close() error                                             { return nil }
