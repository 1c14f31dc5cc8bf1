package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/geolink/edge/internal/events"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ClicksQueue is the durable enqueue primitive for click events. Keyed
// by account id so one tenant's clicks stay on one partition and reach
// the consumer in order.
type ClicksQueue struct {
	writer *kafkago.Writer
	topic  string
}

func NewClicksQueue(brokers []string, topic string) *ClicksQueue {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &ClicksQueue{writer: writer, topic: topic}
}

func (q *ClicksQueue) Publish(ctx context.Context, msg events.LinkClickMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	tracer := otel.Tracer("clicks-queue")
	ctx, span := tracer.Start(
		ctx,
		"kafka.publish.link_click",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", q.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.kafka.message_key", msg.Data.AccountID),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err = q.writer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte(msg.Data.AccountID),
		Value:   value,
		Headers: carrierToKafkaHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return err
	}

	return nil
}

func (q *ClicksQueue) Close() error {
	return q.writer.Close()
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafkago.Header {
	headers := make([]kafkago.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafkago.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}
