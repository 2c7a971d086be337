// Package events publishes capture notifications to Kafka for downstream
// consumers (fulfilment, analytics). The feed is an audit trail, not part of
// the storefront delivery path, so publish failures are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/VictoriaMetrics/metrics"
	"github.com/segmentio/kafka-go"
	"payment-relay/internal/message"
)

var (
	publishSuccessCounter = metrics.GetOrCreateCounter(`payment_events_published_total{result="success"}`)
	publishErrorCounter   = metrics.GetOrCreateCounter(`payment_events_published_total{result="error"}`)
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer Writer
	logger *slog.Logger
}

func NewPublisher(writer Writer, logger *slog.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

// PublishCaptured emits one capture record keyed by cart id, so all events
// for a cart land in the same partition in order.
func (p *Publisher) PublishCaptured(ctx context.Context, event message.CapturedEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error marshalling captured event", "error", err)
		publishErrorCounter.Inc()
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CartID),
		Value: value,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Error publishing captured event", "error", err)
		publishErrorCounter.Inc()
		return
	}

	publishSuccessCounter.Inc()
}
