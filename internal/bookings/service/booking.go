package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "housecall/internal/bookings/errors"
	"housecall/internal/bookings/lifecycle"
	"housecall/internal/bookings/repository"
	"housecall/internal/bookings/validator"
	"housecall/pkg/config"
	apperrors "housecall/pkg/errors"
	"housecall/pkg/events"
	"housecall/pkg/model"
	"housecall/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// Actor identifies who is requesting a lifecycle operation. It comes from the
// authenticated request context at the HTTP boundary.
type Actor struct {
	Role model.Role
	ID   string
}

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByCustomer(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, int64, error)
	AssignWorker(ctx context.Context, bookingID, workerID string, actor Actor, expectedVersion int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, bookingID string, target model.Status, actor Actor, reason string, expectedVersion int64) (*model.Booking, error)
	Reschedule(ctx context.Context, bookingID string, scheduledDate time.Time, durationMin int, actor Actor, expectedVersion int64) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	catalog   repository.ServiceCatalog
	checker   *ConflictChecker
	machine   *lifecycle.Machine
	validator *validator.BookingValidator
	publisher events.BookingPublisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	catalog repository.ServiceCatalog,
	checker *ConflictChecker,
	machine *lifecycle.Machine,
	validator *validator.BookingValidator,
	publisher events.BookingPublisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		catalog:   catalog,
		checker:   checker,
		machine:   machine,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if booking.WorkerID != "" {
		return nil, apperrors.InvalidField("worker_id", "a worker cannot be assigned at creation")
	}
	if booking.Status != "" && booking.Status != model.StatusPending {
		return nil, apperrors.InvalidField("status", "new bookings always start as pending")
	}

	s.applyDefaults(booking)
	s.sanitize(booking)

	if err := s.validator.ValidateCreate(booking, s.now()); err != nil {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"errors": err.Error()})
	}

	svc, err := s.catalog.FindServiceByID(ctx, booking.ServiceID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrServiceNotFound) {
			return nil, apperrors.NotFoundWithID("Service", booking.ServiceID)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidField("service_id", "Invalid service ID format")
		}
		return nil, apperrors.Internal("Failed to verify service", err)
	}
	if !svc.Active {
		return nil, apperrors.InvalidField("service_id", "service is not available for booking")
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"customer_id", booking.CustomerID,
		"service_id", booking.ServiceID,
		"scheduled_date", booking.ScheduledDate,
	)
	s.publish(ctx, model.EventBookingCreated, booking, "")

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	return s.load(ctx, id)
}

func (s *bookingService) GetByCustomer(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, int64, error) {
	if customerID == "" {
		return nil, 0, apperrors.InvalidInput("Customer ID cannot be empty")
	}
	if status != nil && !status.IsValid() {
		return nil, 0, apperrors.InvalidField("status", "unknown booking status")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByCustomer(ctx, customerID, status)
	}()
	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByCustomer(ctx, customerID, status, limit, offset)
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}

	return bookings, count, nil
}

// AssignWorker confirms a pending booking and assigns the worker atomically.
// The scheduling conflict check and the conditional write run inside one
// transaction, so a worker is never double-booked: a concurrent assignment of
// the same worker either loses the version race or is seen by the conflict
// check before either write commits.
func (s *bookingService) AssignWorker(ctx context.Context, bookingID, workerID string, actor Actor, expectedVersion int64) (*model.Booking, error) {
	if workerID == "" {
		return nil, apperrors.InvalidField("worker_id", "Worker ID cannot be empty")
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Version != expectedVersion {
		return nil, apperrors.VersionConflict(expectedVersion, booking.Version)
	}

	var next *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflict, err := s.checker.FindConflict(sessCtx, workerID, booking.WindowStart(), booking.WindowEnd(), booking.ID)
		if err != nil {
			return apperrors.Internal("Failed to check worker availability", err)
		}
		if conflict != nil {
			return apperrors.SchedulingConflict(workerID, conflict.ID)
		}

		transitioned, err := s.machine.Transition(booking, lifecycle.Request{
			Target:   model.StatusConfirmed,
			Actor:    actor.Role,
			ActorID:  actor.ID,
			WorkerID: workerID,
			Now:      s.now(),
		})
		if err != nil {
			return err
		}

		next = transitioned
		return s.save(sessCtx, transitioned, expectedVersion)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Worker assigned",
		"id", next.ID,
		"worker_id", workerID,
		"version", next.Version,
	)
	s.publish(ctx, model.EventBookingWorkerAssigned, next, booking.Status)

	return next, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, bookingID string, target model.Status, actor Actor, reason string, expectedVersion int64) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Version != expectedVersion {
		return nil, apperrors.VersionConflict(expectedVersion, booking.Version)
	}

	next, err := s.machine.Transition(booking, lifecycle.Request{
		Target:  target,
		Actor:   actor.Role,
		ActorID: actor.ID,
		Reason:  sanitizer.NormalizeText(reason),
		Now:     s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, next, expectedVersion); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking status changed",
		"id", next.ID,
		"from", booking.Status,
		"to", next.Status,
		"version", next.Version,
	)
	s.publish(ctx, model.EventBookingStatusChanged, next, booking.Status)

	return next, nil
}

// Reschedule moves a pending booking to a new window. Confirmed and later
// bookings cannot be rescheduled; the customer must cancel and rebook.
func (s *bookingService) Reschedule(ctx context.Context, bookingID string, scheduledDate time.Time, durationMin int, actor Actor, expectedVersion int64) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Version != expectedVersion {
		return nil, apperrors.VersionConflict(expectedVersion, booking.Version)
	}

	if booking.Status != model.StatusPending {
		return nil, apperrors.New(
			apperrors.CodeInvalidTransition,
			"only pending bookings can be rescheduled",
			409,
		).WithDetails(map[string]any{"status": string(booking.Status)})
	}
	if actor.Role == model.RoleWorker {
		return nil, apperrors.Unauthorized("workers cannot reschedule bookings")
	}
	if actor.Role == model.RoleCustomer && actor.ID != booking.CustomerID {
		return nil, apperrors.Unauthorized("customers can only reschedule their own bookings")
	}

	if durationMin == 0 {
		durationMin = booking.EstimatedDurationMin
	}
	if err := s.validator.ValidateReschedule(scheduledDate, durationMin, s.now()); err != nil {
		return nil, apperrors.Validation("Reschedule validation failed", map[string]any{"errors": err.Error()})
	}

	next := booking.Clone()
	next.ScheduledDate = scheduledDate
	next.EstimatedDurationMin = durationMin
	next.Version = booking.Version + 1
	next.UpdatedAt = s.now()

	// Pending bookings have no worker, but if one is ever present the new
	// window must still be free.
	if booking.WorkerID != "" {
		conflict, err := s.checker.FindConflict(ctx, booking.WorkerID, next.WindowStart(), next.WindowEnd(), booking.ID)
		if err != nil {
			return nil, apperrors.Internal("Failed to check worker availability", err)
		}
		if conflict != nil {
			return nil, apperrors.SchedulingConflict(booking.WorkerID, conflict.ID)
		}
	}

	if err := s.save(ctx, next, expectedVersion); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking rescheduled",
		"id", next.ID,
		"scheduled_date", next.ScheduledDate,
		"version", next.Version,
	)
	s.publish(ctx, model.EventBookingRescheduled, next, booking.Status)

	return next, nil
}

func (s *bookingService) applyDefaults(booking *model.Booking) {
	booking.Status = model.StatusPending
	if booking.EstimatedDurationMin == 0 {
		booking.EstimatedDurationMin = s.cfg.DefaultBookingDurationMin
	}
}

func (s *bookingService) sanitize(booking *model.Booking) {
	booking.Notes = sanitizer.NormalizeText(booking.Notes)
	booking.Address.Street = sanitizer.NormalizeText(booking.Address.Street)
	booking.Address.Ward = sanitizer.NormalizeText(booking.Address.Ward)
	booking.Address.District = sanitizer.NormalizeText(booking.Address.District)
	booking.Address.City = sanitizer.NormalizeText(booking.Address.City)
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

// save performs the conditional write. On a version race the current version
// is re-read so the caller gets an actionable conflict payload.
func (s *bookingService) save(ctx context.Context, booking *model.Booking, expectedVersion int64) error {
	err := s.repo.UpdateWithVersion(ctx, booking, expectedVersion)
	if err == nil {
		return nil
	}

	if errors.Is(err, bookingserrors.ErrVersionConflict) {
		actual := int64(-1)
		if current, findErr := s.repo.FindByID(ctx, booking.ID); findErr == nil {
			actual = current.Version
		}
		return apperrors.VersionConflict(expectedVersion, actual)
	}
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", booking.ID)
	}
	return apperrors.Internal("Failed to update booking", err)
}

// publish emits a lifecycle event after a successful persist. Publish failures
// are logged and never fail the operation; the write is the source of truth.
func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking, previous model.Status) {
	event := &model.BookingEvent{
		BookingID:      booking.ID,
		CustomerID:     booking.CustomerID,
		WorkerID:       booking.WorkerID,
		ServiceID:      booking.ServiceID,
		Status:         booking.Status,
		PreviousStatus: previous,
		ScheduledDate:  booking.ScheduledDate,
		DurationMin:    booking.EstimatedDurationMin,
		Version:        booking.Version,
		OccurredAt:     s.now(),
	}

	if err := s.publisher.PublishBookingEvent(ctx, eventType, event); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
