package model

import "time"

// Service is a bookable home-service listing offered on the marketplace.
type Service struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Category     string    `json:"category" bson:"category" validate:"required,min=2,max=50"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	BasePrice    int64     `json:"base_price" bson:"base_price" validate:"required,min=0"`
	DurationMin  int       `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=1440"`
	Cities       []string  `json:"cities" bson:"cities" validate:"required,min=1,max=50,dive,required"`
	ContactPhone string    `json:"contact_phone" bson:"contact_phone" validate:"required,e164"`
	Active       bool      `json:"active" bson:"active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// ServiceUpdate carries a partial update; nil/zero fields are left unchanged.
type ServiceUpdate struct {
	Name         string    `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Category     string    `json:"category,omitempty" validate:"omitempty,min=2,max=50"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=1000"`
	BasePrice    *int64    `json:"base_price,omitempty" validate:"omitempty,min=0"`
	DurationMin  *int      `json:"duration_min,omitempty" validate:"omitempty,min=5,max=1440"`
	Cities       *[]string `json:"cities,omitempty" validate:"omitempty,min=1,max=50,dive,required"`
	ContactPhone string    `json:"contact_phone,omitempty" validate:"omitempty,e164"`
	Active       *bool     `json:"active,omitempty"`
}
