package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"gereca/internal/pkg/mq"
	"gereca/internal/service/reservation/domain"
)

// HoldEventsTopic carries every hold lifecycle transition. Messages are keyed
// by hold id so one hold's events stay ordered within a partition.
const HoldEventsTopic = "hold-events"

// NotificationKafkaAdapter implements port.HoldNotifier.
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

func (a *NotificationKafkaAdapter) PublishHoldEvent(ctx context.Context, event domain.HoldEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshalling hold event")
	}
	// mq.ProduceMessage injects the trace context into the message headers.
	return mq.ProduceMessage(ctx, a.writer, []byte(event.HoldID), payload)
}

func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
