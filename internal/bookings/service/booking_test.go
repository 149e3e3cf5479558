package service

import (
	"context"
	"io"
	"testing"
	"time"

	bookingserrors "housecall/internal/bookings/errors"
	"housecall/internal/bookings/lifecycle"
	"housecall/internal/bookings/validator"
	"housecall/pkg/config"
	mongotx "housecall/pkg/db/mongo"
	apperrors "housecall/pkg/errors"
	"housecall/pkg/logger"
	"housecall/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockBookingRepository struct {
	createFn            func(ctx context.Context, booking *model.Booking) error
	findByIDFn          func(ctx context.Context, id string) (*model.Booking, error)
	findByCustomerFn    func(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, error)
	countByCustomerFn   func(ctx context.Context, customerID string, status *model.Status) (int64, error)
	findInWindowFn      func(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error)
	updateWithVersionFn func(ctx context.Context, booking *model.Booking, expectedVersion int64) error

	transactionCalls int
	inTransaction    bool
	updatedInTx      bool
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return m.createFn(ctx, booking)
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockBookingRepository) FindByCustomer(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, error) {
	return m.findByCustomerFn(ctx, customerID, status, limit, offset)
}

func (m *mockBookingRepository) CountByCustomer(ctx context.Context, customerID string, status *model.Status) (int64, error) {
	return m.countByCustomerFn(ctx, customerID, status)
}

func (m *mockBookingRepository) FindByWorkerInWindow(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error) {
	if m.findInWindowFn == nil {
		return nil, nil
	}
	return m.findInWindowFn(ctx, workerID, statuses, from, to)
}

func (m *mockBookingRepository) UpdateWithVersion(ctx context.Context, booking *model.Booking, expectedVersion int64) error {
	m.updatedInTx = m.inTransaction
	return m.updateWithVersionFn(ctx, booking, expectedVersion)
}

// ExecuteTransaction runs the function with a fake session context, mirroring
// what the mongo manager does.
func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.transactionCalls++
	m.inTransaction = true
	defer func() { m.inTransaction = false }()
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockServiceCatalog struct {
	findFn func(ctx context.Context, id string) (*model.Service, error)
}

func (m *mockServiceCatalog) FindServiceByID(ctx context.Context, id string) (*model.Service, error) {
	return m.findFn(ctx, id)
}

type recordingPublisher struct {
	eventTypes []string
	events     []*model.BookingEvent
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, eventType string, event *model.BookingEvent) error {
	p.eventTypes = append(p.eventTypes, eventType)
	p.events = append(p.events, event)
	return nil
}

var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func newTestService(repo *mockBookingRepository, catalog *mockServiceCatalog, publisher *recordingPublisher) *bookingService {
	cfg := &config.Config{
		DefaultBookingDurationMin: 60,
		MaxBookingDurationMin:     480,
		MaxNotesLength:            500,
		Log:                       logger.New(logger.Config{Output: io.Discard}),
	}

	svc := NewBookingService(
		repo,
		catalog,
		NewConflictChecker(repo, cfg.MaxBookingDurationMin),
		lifecycle.New(nil),
		validator.NewBookingValidator(cfg.Log, cfg.MaxBookingDurationMin, cfg.MaxNotesLength),
		publisher,
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func activeService() *model.Service {
	return &model.Service{
		ID:     "665f1f77bcf86cd799439022",
		Name:   "Deep cleaning",
		Active: true,
	}
}

func createRequest() *model.Booking {
	return &model.Booking{
		CustomerID:    "customer-1",
		ServiceID:     "665f1f77bcf86cd799439022",
		ScheduledDate: testNow.Add(48 * time.Hour),
		Address: model.Address{
			Street:   "12 Tran Hung Dao",
			Ward:     "Ward 5",
			District: "District 1",
			City:     "Ho Chi Minh City",
		},
	}
}

func storedBooking(status model.Status, version int64) *model.Booking {
	b := createRequest()
	b.ID = "665f1f77bcf86cd799439011"
	b.Status = status
	b.Version = version
	b.EstimatedDurationMin = 60
	if status.RequiresWorker() {
		b.WorkerID = "worker-1"
	}
	return b
}

func TestCreate_Success(t *testing.T) {
	var created *model.Booking
	repo := &mockBookingRepository{
		createFn: func(_ context.Context, booking *model.Booking) error {
			booking.ID = "665f1f77bcf86cd799439011"
			booking.Version = 1
			created = booking
			return nil
		},
	}
	catalog := &mockServiceCatalog{
		findFn: func(_ context.Context, _ string) (*model.Service, error) {
			return activeService(), nil
		},
	}
	publisher := &recordingPublisher{}
	svc := newTestService(repo, catalog, publisher)

	req := createRequest()
	req.Notes = "  ring   the doorbell twice  "
	result, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected booking to be persisted")
	}
	if result.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", result.Status)
	}
	if result.Version != 1 {
		t.Errorf("expected version 1, got %d", result.Version)
	}
	if result.EstimatedDurationMin != 60 {
		t.Errorf("expected default duration 60, got %d", result.EstimatedDurationMin)
	}
	if result.Notes != "ring the doorbell twice" {
		t.Errorf("expected normalized notes, got %q", result.Notes)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != model.EventBookingCreated {
		t.Errorf("expected booking.created event, got %v", publisher.eventTypes)
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(b *model.Booking)
		catalog  func(ctx context.Context, id string) (*model.Service, error)
		wantCode string
	}{
		{
			name:     "worker preassigned",
			mutate:   func(b *model.Booking) { b.WorkerID = "worker-1" },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "non-pending initial status",
			mutate:   func(b *model.Booking) { b.Status = model.StatusConfirmed },
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "past scheduled date",
			mutate:   func(b *model.Booking) { b.ScheduledDate = testNow.Add(-time.Hour) },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "duration above maximum",
			mutate:   func(b *model.Booking) { b.EstimatedDurationMin = 9999 },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "missing address",
			mutate:   func(b *model.Booking) { b.Address = model.Address{} },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:   "unknown service",
			mutate: func(b *model.Booking) {},
			catalog: func(_ context.Context, _ string) (*model.Service, error) {
				return nil, bookingserrors.ErrServiceNotFound
			},
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:   "inactive service",
			mutate: func(b *model.Booking) {},
			catalog: func(_ context.Context, _ string) (*model.Service, error) {
				svc := activeService()
				svc.Active = false
				return svc, nil
			},
			wantCode: apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookingRepository{
				createFn: func(_ context.Context, _ *model.Booking) error {
					t.Fatal("booking must not be persisted")
					return nil
				},
			}
			catalogFn := tt.catalog
			if catalogFn == nil {
				catalogFn = func(_ context.Context, _ string) (*model.Service, error) {
					return activeService(), nil
				}
			}
			publisher := &recordingPublisher{}
			svc := newTestService(repo, &mockServiceCatalog{findFn: catalogFn}, publisher)

			req := createRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), req)
			if !apperrors.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if len(publisher.eventTypes) != 0 {
				t.Errorf("no event must be published on rejection, got %v", publisher.eventTypes)
			}
		})
	}
}

func TestAssignWorker_Success(t *testing.T) {
	stored := storedBooking(model.StatusPending, 1)
	var saved *model.Booking
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, booking *model.Booking, expectedVersion int64) error {
			if expectedVersion != 1 {
				t.Errorf("expected conditional write on version 1, got %d", expectedVersion)
			}
			saved = booking
			return nil
		},
	}
	publisher := &recordingPublisher{}
	svc := newTestService(repo, &mockServiceCatalog{}, publisher)

	result, err := svc.AssignWorker(context.Background(), stored.ID, "worker-1", Actor{Role: model.RoleAdmin, ID: "admin-1"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved == nil {
		t.Fatal("expected booking to be saved")
	}
	if result.Status != model.StatusConfirmed || result.WorkerID != "worker-1" {
		t.Errorf("expected confirmed booking with worker-1, got %s/%q", result.Status, result.WorkerID)
	}
	if result.Version != 2 {
		t.Errorf("expected version 2, got %d", result.Version)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != model.EventBookingWorkerAssigned {
		t.Errorf("expected booking.worker_assigned event, got %v", publisher.eventTypes)
	}
	if publisher.events[0].PreviousStatus != model.StatusPending {
		t.Errorf("expected previous status pending, got %s", publisher.events[0].PreviousStatus)
	}
}

func TestAssignWorker_ConflictCheckAndWriteShareTransaction(t *testing.T) {
	stored := storedBooking(model.StatusPending, 1)
	var checkedInTx bool
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
			return nil
		},
	}
	repo.findInWindowFn = func(_ context.Context, _ string, _ []model.Status, _, _ time.Time) ([]*model.Booking, error) {
		checkedInTx = repo.inTransaction
		return nil, nil
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	_, err := svc.AssignWorker(context.Background(), stored.ID, "worker-1", Actor{Role: model.RoleAdmin, ID: "admin-1"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.transactionCalls != 1 {
		t.Fatalf("expected one transaction, got %d", repo.transactionCalls)
	}
	if !checkedInTx {
		t.Error("conflict check ran outside the transaction")
	}
	if !repo.updatedInTx {
		t.Error("conditional write ran outside the transaction")
	}
}

func TestAssignWorker_StaleVersion(t *testing.T) {
	// A replayed assignment carries the pre-assignment version and must be
	// rejected before any conflict check or write.
	stored := storedBooking(model.StatusConfirmed, 2)
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
			t.Fatal("no write expected on stale version")
			return nil
		},
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	_, err := svc.AssignWorker(context.Background(), stored.ID, "worker-1", Actor{Role: model.RoleAdmin}, 1)
	if !apperrors.IsCode(err, apperrors.CodeVersionConflict) {
		t.Fatalf("expected VERSION_CONFLICT, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Details["expected_version"] != int64(1) || appErr.Details["actual_version"] != int64(2) {
		t.Errorf("expected version details 1/2, got %v", appErr.Details)
	}
}

func TestAssignWorker_SchedulingConflict(t *testing.T) {
	stored := storedBooking(model.StatusPending, 1)
	conflicting := storedBooking(model.StatusConfirmed, 4)
	conflicting.ID = "665f1f77bcf86cd799439033"
	conflicting.ScheduledDate = stored.ScheduledDate.Add(30 * time.Minute)

	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		findInWindowFn: func(_ context.Context, _ string, _ []model.Status, _, _ time.Time) ([]*model.Booking, error) {
			return []*model.Booking{conflicting}, nil
		},
		updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
			t.Fatal("no write expected on scheduling conflict")
			return nil
		},
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	_, err := svc.AssignWorker(context.Background(), stored.ID, "worker-1", Actor{Role: model.RoleAdmin}, 1)
	if !apperrors.IsCode(err, apperrors.CodeSchedulingConflict) {
		t.Fatalf("expected SCHEDULING_CONFLICT, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Details["conflicting_booking_id"] != conflicting.ID {
		t.Errorf("expected conflicting booking id in details, got %v", appErr.Details)
	}
}

func TestUpdateStatus_CancelConfirmed(t *testing.T) {
	stored := storedBooking(model.StatusConfirmed, 2)
	var saved *model.Booking
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, booking *model.Booking, _ int64) error {
			saved = booking
			return nil
		},
	}
	publisher := &recordingPublisher{}
	svc := newTestService(repo, &mockServiceCatalog{}, publisher)

	result, err := svc.UpdateStatus(context.Background(), stored.ID, model.StatusCancelled, Actor{Role: model.RoleCustomer, ID: "customer-1"}, "worker unavailable", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved.WorkerID != "" {
		t.Errorf("worker must be cleared on cancellation, got %q", saved.WorkerID)
	}
	if result.CancelReason != "worker unavailable" {
		t.Errorf("expected cancel reason recorded, got %q", result.CancelReason)
	}
	if result.Version != 3 {
		t.Errorf("expected version 3, got %d", result.Version)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != model.EventBookingStatusChanged {
		t.Errorf("expected booking.status_changed event, got %v", publisher.eventTypes)
	}
}

func TestUpdateStatus_CancelConfirmedWithoutReason(t *testing.T) {
	stored := storedBooking(model.StatusConfirmed, 2)
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
			t.Fatal("no write expected without a reason")
			return nil
		},
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	_, err := svc.UpdateStatus(context.Background(), stored.ID, model.StatusCancelled, Actor{Role: model.RoleCustomer, ID: "customer-1"}, "   ", 2)
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestUpdateStatus_LostVersionRace(t *testing.T) {
	// The load sees version 2 but a concurrent writer commits version 3
	// before our conditional write lands.
	stored := storedBooking(model.StatusConfirmed, 2)
	raced := stored.Clone()
	raced.Version = 3

	loads := 0
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			loads++
			if loads == 1 {
				return stored.Clone(), nil
			}
			return raced, nil
		},
		updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
			return bookingserrors.ErrVersionConflict
		},
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	_, err := svc.UpdateStatus(context.Background(), stored.ID, model.StatusInProgress, Actor{Role: model.RoleWorker, ID: "worker-1"}, "", 2)
	if !apperrors.IsCode(err, apperrors.CodeVersionConflict) {
		t.Fatalf("expected VERSION_CONFLICT, got %v", err)
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Details["actual_version"] != int64(3) {
		t.Errorf("expected actual version 3 from re-read, got %v", appErr.Details)
	}
}

func TestReschedule_Pending(t *testing.T) {
	stored := storedBooking(model.StatusPending, 1)
	newDate := testNow.Add(72 * time.Hour)

	var saved *model.Booking
	repo := &mockBookingRepository{
		findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
			return stored.Clone(), nil
		},
		updateWithVersionFn: func(_ context.Context, booking *model.Booking, _ int64) error {
			saved = booking
			return nil
		},
	}
	publisher := &recordingPublisher{}
	svc := newTestService(repo, &mockServiceCatalog{}, publisher)

	result, err := svc.Reschedule(context.Background(), stored.ID, newDate, 90, Actor{Role: model.RoleCustomer, ID: "customer-1"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !saved.ScheduledDate.Equal(newDate) || saved.EstimatedDurationMin != 90 {
		t.Errorf("expected new window persisted, got %v/%d", saved.ScheduledDate, saved.EstimatedDurationMin)
	}
	if result.Version != 2 {
		t.Errorf("expected version 2, got %d", result.Version)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != model.EventBookingRescheduled {
		t.Errorf("expected booking.rescheduled event, got %v", publisher.eventTypes)
	}
}

func TestReschedule_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		status   model.Status
		actor    Actor
		date     time.Time
		wantCode string
	}{
		{
			name:     "confirmed booking cannot be rescheduled",
			status:   model.StatusConfirmed,
			actor:    Actor{Role: model.RoleCustomer, ID: "customer-1"},
			date:     testNow.Add(72 * time.Hour),
			wantCode: apperrors.CodeInvalidTransition,
		},
		{
			name:     "worker cannot reschedule",
			status:   model.StatusPending,
			actor:    Actor{Role: model.RoleWorker, ID: "worker-1"},
			date:     testNow.Add(72 * time.Hour),
			wantCode: apperrors.CodeUnauthorized,
		},
		{
			name:     "other customer cannot reschedule",
			status:   model.StatusPending,
			actor:    Actor{Role: model.RoleCustomer, ID: "customer-2"},
			date:     testNow.Add(72 * time.Hour),
			wantCode: apperrors.CodeUnauthorized,
		},
		{
			name:     "past date rejected",
			status:   model.StatusPending,
			actor:    Actor{Role: model.RoleCustomer, ID: "customer-1"},
			date:     testNow.Add(-time.Hour),
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := storedBooking(tt.status, 2)
			repo := &mockBookingRepository{
				findByIDFn: func(_ context.Context, _ string) (*model.Booking, error) {
					return stored.Clone(), nil
				},
				updateWithVersionFn: func(_ context.Context, _ *model.Booking, _ int64) error {
					t.Fatal("no write expected")
					return nil
				},
			}
			svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

			_, err := svc.Reschedule(context.Background(), stored.ID, tt.date, 60, tt.actor, 2)
			if !apperrors.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestGetByCustomer(t *testing.T) {
	repo := &mockBookingRepository{
		findByCustomerFn: func(_ context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, error) {
			if customerID != "customer-1" {
				t.Errorf("expected customer-1, got %s", customerID)
			}
			if limit != 10 {
				t.Errorf("expected fallback limit 10, got %d", limit)
			}
			return []*model.Booking{storedBooking(model.StatusPending, 1)}, nil
		},
		countByCustomerFn: func(_ context.Context, _ string, _ *model.Status) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(repo, &mockServiceCatalog{}, &recordingPublisher{})

	bookings, count, err := svc.GetByCustomer(context.Background(), "customer-1", nil, 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 || count != 1 {
		t.Errorf("expected one booking with count 1, got %d/%d", len(bookings), count)
	}

	badStatus := model.Status("archived")
	if _, _, err := svc.GetByCustomer(context.Background(), "customer-1", &badStatus, 10, 0); !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for unknown status, got %v", err)
	}
}
