package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"housecall/internal/notifier"
	"housecall/pkg/config"
	"housecall/pkg/events"
)

const (
	ServiceName = "notifier"

	consumerMaxRetries = 3
)

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Notifier service")

	n := notifier.New(cfg.Log)
	consumer, err := events.NewConsumer(
		cfg.KafkaBrokers,
		cfg.KafkaEventsTopic,
		cfg.KafkaGroupID,
		cfg.KafkaDLQTopic,
		consumerMaxRetries,
		n.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		cfg.Log.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}
