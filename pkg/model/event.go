package model

import "time"

// Booking lifecycle event types published to the events topic.
const (
	EventBookingCreated        = "booking.created"
	EventBookingWorkerAssigned = "booking.worker_assigned"
	EventBookingStatusChanged  = "booking.status_changed"
	EventBookingRescheduled    = "booking.rescheduled"
)

// BookingEvent is the payload published after every successful booking mutation.
// Consumers (e.g. the notifier) use it to build customer and worker notifications.
type BookingEvent struct {
	BookingID      string    `json:"booking_id"`
	CustomerID     string    `json:"customer_id"`
	WorkerID       string    `json:"worker_id,omitempty"`
	ServiceID      string    `json:"service_id"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	DurationMin    int       `json:"duration_min"`
	Version        int64     `json:"version"`
	OccurredAt     time.Time `json:"occurred_at"`
}
