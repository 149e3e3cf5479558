package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"housecall/pkg/logger"
	"housecall/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate       *validator.Validate
	logger         *logger.Logger
	maxDurationMin int
	maxNotesLength int
}

func NewBookingValidator(log *logger.Logger, maxDurationMin, maxNotesLength int) *BookingValidator {
	return &BookingValidator{
		validate:       validator.New(),
		logger:         log,
		maxDurationMin: maxDurationMin,
		maxNotesLength: maxNotesLength,
	}
}

// ValidateCreate checks a booking request before persistence. now is injected
// so the future-date rule is testable.
func (v *BookingValidator) ValidateCreate(booking *model.Booking, now time.Time) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors
	errs = append(errs, v.checkSchedule(booking.ScheduledDate, booking.EstimatedDurationMin, now)...)

	if len(booking.Notes) > v.maxNotesLength {
		errs = append(errs, ValidationError{
			Field:   "Notes",
			Message: fmt.Sprintf("notes must be at most %d characters", v.maxNotesLength),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateReschedule checks the new window of an existing booking.
func (v *BookingValidator) ValidateReschedule(scheduledDate time.Time, durationMin int, now time.Time) error {
	if errs := v.checkSchedule(scheduledDate, durationMin, now); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) checkSchedule(scheduledDate time.Time, durationMin int, now time.Time) ValidationErrors {
	var errs ValidationErrors

	if !scheduledDate.After(now) {
		errs = append(errs, ValidationError{
			Field:   "ScheduledDate",
			Message: "scheduled_date must be in the future",
		})
	}
	if durationMin <= 0 {
		errs = append(errs, ValidationError{
			Field:   "EstimatedDurationMin",
			Message: "estimated_duration_min must be positive",
		})
	} else if durationMin > v.maxDurationMin {
		errs = append(errs, ValidationError{
			Field:   "EstimatedDurationMin",
			Message: fmt.Sprintf("estimated_duration_min must be at most %d", v.maxDurationMin),
		})
	}

	return errs
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
