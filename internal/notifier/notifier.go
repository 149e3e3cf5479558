// Package notifier consumes booking lifecycle events and fans them out as
// notification intents. Delivery channels (SMS, push) hang off the intent log;
// the consumer only decides who should hear about what.
package notifier

import (
	"context"
	"fmt"

	"housecall/pkg/events"
	"housecall/pkg/logger"
	"housecall/pkg/model"
)

// Intent is a single notification to a single recipient.
type Intent struct {
	Recipient string
	Role      model.Role
	Message   string
}

type Notifier struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle is the consumer callback. Unknown event types are committed without
// action so a newer producer never wedges an older notifier.
func (n *Notifier) Handle(ctx context.Context, msg events.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return fmt.Errorf("failed to decode booking event: %w", err)
	}

	intents := n.IntentsFor(msg.GetEventType(), &event)
	if len(intents) == 0 {
		n.log.Debug("No notification for event",
			"event_type", msg.GetEventType(),
			"booking_id", event.BookingID,
		)
		return nil
	}

	for _, intent := range intents {
		n.log.Info("Notification intent",
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"booking_id", event.BookingID,
			"recipient", intent.Recipient,
			"role", intent.Role,
			"message", intent.Message,
		)
	}
	return nil
}

// IntentsFor maps one lifecycle event to its recipients.
func (n *Notifier) IntentsFor(eventType string, event *model.BookingEvent) []Intent {
	when := event.ScheduledDate.Format("Mon Jan 2 15:04")

	switch eventType {
	case model.EventBookingCreated:
		return []Intent{{
			Recipient: event.CustomerID,
			Role:      model.RoleCustomer,
			Message:   fmt.Sprintf("Your booking for %s is pending confirmation.", when),
		}}

	case model.EventBookingWorkerAssigned:
		return []Intent{
			{
				Recipient: event.CustomerID,
				Role:      model.RoleCustomer,
				Message:   fmt.Sprintf("A worker has been assigned to your booking for %s.", when),
			},
			{
				Recipient: event.WorkerID,
				Role:      model.RoleWorker,
				Message:   fmt.Sprintf("You have a new job scheduled for %s.", when),
			},
		}

	case model.EventBookingRescheduled:
		intents := []Intent{{
			Recipient: event.CustomerID,
			Role:      model.RoleCustomer,
			Message:   fmt.Sprintf("Your booking was moved to %s.", when),
		}}
		if event.WorkerID != "" {
			intents = append(intents, Intent{
				Recipient: event.WorkerID,
				Role:      model.RoleWorker,
				Message:   fmt.Sprintf("A job was moved to %s.", when),
			})
		}
		return intents

	case model.EventBookingStatusChanged:
		return n.statusChangeIntents(event, when)
	}

	return nil
}

func (n *Notifier) statusChangeIntents(event *model.BookingEvent, when string) []Intent {
	switch event.Status {
	case model.StatusInProgress:
		return []Intent{{
			Recipient: event.CustomerID,
			Role:      model.RoleCustomer,
			Message:   "Your service is now in progress.",
		}}

	case model.StatusCompleted:
		return []Intent{{
			Recipient: event.CustomerID,
			Role:      model.RoleCustomer,
			Message:   "Your service is complete. Thank you for booking with us.",
		}}

	case model.StatusCancelled:
		return []Intent{{
			Recipient: event.CustomerID,
			Role:      model.RoleCustomer,
			Message:   fmt.Sprintf("Your booking for %s was cancelled.", when),
		}}
	}

	return nil
}
