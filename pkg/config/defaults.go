package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "housecall"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0
	DefaultCacheTTL  = 5 * time.Minute

	DefaultKafkaBrokers     = ""
	DefaultKafkaEventsTopic = "booking-events"
	DefaultKafkaDLQTopic    = "booking-events-dlq"
	DefaultKafkaGroupID     = "notifier"

	DefaultPort = "8080"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDefaultBookingDurationMin = 60
	DefaultMaxBookingDurationMin     = 480
	DefaultMaxNotesLength            = 500

	DefaultPaginationLimit = 100
)
