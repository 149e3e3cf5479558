package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"housecall/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Consumer reads the events topic with a consumer group, retrying failed
// handler calls and parking poison messages on the DLQ.
type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	maxRetries int
	handler    MessageHandler
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
}

func NewConsumer(brokers []string, topic, groupID, dlqTopic string, maxRetries int, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.FirstOffset,
		Logger:         kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:    kafka.LoggerFunc(func(msg string, args ...any) { log.Error(fmt.Sprintf(msg, args...)) }),
	})

	consumer := &Consumer{
		reader:     reader,
		topic:      topic,
		maxRetries: maxRetries,
		handler:    handler,
		log:        log,
	}

	if dlqTopic != "" {
		consumer.dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			MaxAttempts:  3,
			Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...any) { log.Error(fmt.Sprintf(msg, args...)) }),
		}
	}

	return consumer, nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.mu.RUnlock()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Error("Failed to fetch message", "topic", c.topic, "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		msg := c.convertMessage(kafkaMsg)

		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Error("Failed to process message",
				"topic", c.topic,
				"event_id", msg.GetEventID(),
				"correlation_id", msg.GetCorrelationID(),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			c.log.Error("Failed to commit offset", "topic", c.topic, "error", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			msg.IncrementRetryCount()
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}

		if lastErr = c.handler(ctx, msg); lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if c.dlqWriter != nil {
		msg.Headers[HeaderOriginalTopic] = c.topic
		msg.Headers["failure-reason"] = lastErr.Error()

		if dlqErr := c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg)); dlqErr != nil {
			return fmt.Errorf("failed to park message on DLQ: %v (handler error: %w)", dlqErr, lastErr)
		}
		c.log.Warn("Message parked on DLQ",
			"topic", c.topic,
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
			"retries", c.maxRetries,
		)
		return nil
	}

	return lastErr
}

func (c *Consumer) convertMessage(kafkaMsg kafka.Message) Message {
	msg := Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}

	for _, h := range kafkaMsg.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}

	return msg
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.dlqWriter != nil {
		if err := c.dlqWriter.Close(); err != nil {
			c.log.Error("Failed to close DLQ writer", "error", err)
		}
	}

	return c.reader.Close()
}
