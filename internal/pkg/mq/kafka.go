package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NewKafkaWriter returns a writer for topic with sane batching defaults.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // explicit commits only
	})
}

// KafkaHeaderCarrier adapts kafka headers to the OTel TextMapCarrier so trace
// context can ride along with every message.
type KafkaHeaderCarrier []kafka.Header

func (c *KafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *KafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}

// InjectTraceContext writes the current span context into headers.
func InjectTraceContext(ctx context.Context, headers *[]kafka.Header) {
	carrier := KafkaHeaderCarrier(*headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	*headers = carrier
}

// ExtractTraceContext returns a context linked to the span context found in
// headers, if any.
func ExtractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := KafkaHeaderCarrier(headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}

// ProduceMessage publishes key/value with trace context injected.
func ProduceMessage(ctx context.Context, writer *kafka.Writer, key, value []byte) error {
	msg := kafka.Message{Key: key, Value: value}
	InjectTraceContext(ctx, &msg.Headers)
	return writer.WriteMessages(ctx, msg)
}

var _ propagation.TextMapCarrier = (*KafkaHeaderCarrier)(nil)
