package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gereca/internal/pkg/logger"
	"gereca/internal/pkg/mq"
	reservation "gereca/internal/service/reservation/domain"
)

const consumerServiceName = "push-gateway"

// EventConsumer reads hold lifecycle events off Kafka and routes each one to
// the WebSocket client watching that hold, if connected to this node.
type EventConsumer struct {
	reader *kafka.Reader
	hub    *Hub
	tracer trace.Tracer
}

func NewEventConsumer(reader *kafka.Reader, hub *Hub) *EventConsumer {
	return &EventConsumer{
		reader: reader,
		hub:    hub,
		tracer: otel.Tracer(consumerServiceName),
	}
}

// Run consumes until ctx is cancelled. Messages are committed after routing;
// delivery to a disconnected client is dropped, not retried — the status
// endpoint remains the source of truth.
func (c *EventConsumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch hold event, retrying")
			time.Sleep(5 * time.Second)
			continue
		}
		c.route(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("could not commit hold event offset")
		}
	}
}

func (c *EventConsumer) route(ctx context.Context, msg kafka.Message) {
	parentCtx := mq.ExtractTraceContext(ctx, msg.Headers)
	spanCtx, span := c.tracer.Start(parentCtx, "push-gateway.RouteHoldEvent",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	var event reservation.HoldEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		logger.Ctx(spanCtx).Error().Err(err).Msg("dropping malformed hold event")
		return
	}
	span.SetAttributes(
		attribute.String("hold.id", event.HoldID),
		attribute.String("hold.event", string(event.Kind)),
	)

	if delivered := c.hub.Send(event.HoldID, msg.Value); delivered {
		logger.Ctx(spanCtx).Debug().
			Str("hold_id", event.HoldID).
			Str("kind", string(event.Kind)).
			Msg("hold event pushed")
	}
}

func (c *EventConsumer) Close() error {
	return c.reader.Close()
}
