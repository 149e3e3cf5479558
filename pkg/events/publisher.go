package events

import (
	"context"

	"housecall/pkg/logger"
	"housecall/pkg/middleware"
	"housecall/pkg/model"
)

// BookingPublisher emits booking lifecycle events. Implementations must be
// safe for concurrent use.
type BookingPublisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, event *model.BookingEvent) error
}

type kafkaBookingPublisher struct {
	producer *Producer
	source   string
}

func NewBookingPublisher(producer *Producer, source string) BookingPublisher {
	return &kafkaBookingPublisher{
		producer: producer,
		source:   source,
	}
}

func (p *kafkaBookingPublisher) PublishBookingEvent(ctx context.Context, eventType string, event *model.BookingEvent) error {
	// The HTTP request id, when present, becomes the correlation id so a
	// consumer log line can be traced back to the originating request.
	msg, err := NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestID(ctx)).
		Build()
	if err != nil {
		return err
	}

	return p.producer.Publish(ctx, msg)
}

// NopBookingPublisher discards events. Used when no broker is configured.
type NopBookingPublisher struct{}

func (NopBookingPublisher) PublishBookingEvent(context.Context, string, *model.BookingEvent) error {
	return nil
}

// NewPublisherFromConfig returns a kafka-backed publisher, or a nop publisher
// when brokers is empty.
func NewPublisherFromConfig(brokers []string, topic, dlqTopic, source string, log *logger.Logger) (BookingPublisher, func(), error) {
	if len(brokers) == 0 {
		log.Info("Kafka brokers not configured, event publishing disabled")
		return NopBookingPublisher{}, func() {}, nil
	}

	producer, err := NewProducer(brokers, topic, dlqTopic, log)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close event producer", "error", err)
		}
	}

	return NewBookingPublisher(producer, source), closeFn, nil
}
