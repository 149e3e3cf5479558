package model

import "time"

// Status is the booking lifecycle state. The wire and storage form uses the
// hyphenated spelling for in-progress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequiresWorker returns true for statuses in which a worker must be assigned.
func (s Status) RequiresWorker() bool {
	return s == StatusConfirmed || s == StatusInProgress || s == StatusCompleted
}

// Role identifies the kind of actor requesting an operation.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" bson:"lng" validate:"min=-180,max=180"`
}

type Address struct {
	Street      string    `json:"street" bson:"street" validate:"required,min=2,max=200"`
	Ward        string    `json:"ward" bson:"ward" validate:"required,min=1,max=100"`
	District    string    `json:"district" bson:"district" validate:"required,min=1,max=100"`
	City        string    `json:"city" bson:"city" validate:"required,min=2,max=100"`
	Coordinates *GeoPoint `json:"coordinates,omitempty" bson:"coordinates,omitempty" validate:"omitempty"`
}

// Booking is a scheduled service engagement between a customer and, once
// confirmed, a worker. Version implements optimistic concurrency: it starts at 1
// and every persisted mutation must increment it through a conditional write.
type Booking struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CustomerID           string    `json:"customer_id" bson:"customer_id" validate:"required"`
	ServiceID            string    `json:"service_id" bson:"service_id" validate:"required,mongodb"`
	WorkerID             string    `json:"worker_id,omitempty" bson:"worker_id,omitempty" validate:"omitempty"`
	Status               Status    `json:"status" bson:"status" validate:"required,oneof=pending confirmed in-progress completed cancelled"`
	ScheduledDate        time.Time `json:"scheduled_date" bson:"scheduled_date" validate:"required"`
	EstimatedDurationMin int       `json:"estimated_duration_min" bson:"estimated_duration_min" validate:"required,min=1,max=1440"`
	Address              Address   `json:"address" bson:"address" validate:"required"`
	Notes                string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	CancelReason         string    `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty" validate:"omitempty,max=500"`
	Version              int64     `json:"version" bson:"version" validate:"omitempty,min=0"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// WindowStart returns the start of the half-open occupancy window.
func (b *Booking) WindowStart() time.Time {
	return b.ScheduledDate
}

// WindowEnd returns the exclusive end of the occupancy window.
func (b *Booking) WindowEnd() time.Time {
	return b.ScheduledDate.Add(time.Duration(b.EstimatedDurationMin) * time.Minute)
}

// Clone returns a shallow copy safe to mutate before a conditional save.
func (b *Booking) Clone() *Booking {
	copied := *b
	if b.Address.Coordinates != nil {
		coords := *b.Address.Coordinates
		copied.Address.Coordinates = &coords
	}
	return &copied
}
