package main

import (
	"housecall/internal/bookings/handler"
	"housecall/internal/bookings/lifecycle"
	"housecall/internal/bookings/repository"
	"housecall/internal/bookings/service"
	"housecall/internal/bookings/validator"
	"housecall/pkg/app"
	"housecall/pkg/config"
	"housecall/pkg/events"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")

	publisher, closePublisher, err := events.NewPublisherFromConfig(
		cfg.KafkaBrokers,
		cfg.KafkaEventsTopic,
		cfg.KafkaDLQTopic,
		ServiceName,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}
	defer closePublisher()

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.BookingPublisher) service.BookingService {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	catalog := repository.NewMongoServiceCatalog(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		catalog,
		service.NewConflictChecker(bookingRepo, cfg.MaxBookingDurationMin),
		lifecycle.New(lifecycle.DefaultPolicy()),
		validator.NewBookingValidator(cfg.Log, cfg.MaxBookingDurationMin, cfg.MaxNotesLength),
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
