package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "housecall/internal/bookings/errors"
	"housecall/pkg/config"
	mongotx "housecall/pkg/db/mongo"
	"housecall/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByCustomer(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, error)
	CountByCustomer(ctx context.Context, customerID string, status *model.Status) (int64, error)
	FindByWorkerInWindow(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error)
	UpdateWithVersion(ctx context.Context, booking *model.Booking, expectedVersion int64) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context
// unchanged with a no-op cancel, as wrapping a SessionContext breaks
// transaction semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByCustomer(ctx context.Context, customerID string, status *model.Status, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_date", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildCustomerFilter(customerID, status), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByCustomer(ctx context.Context, customerID string, status *model.Status) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildCustomerFilter(customerID, status))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildCustomerFilter(customerID string, status *model.Status) bson.M {
	filter := bson.M{"customer_id": customerID}
	if status != nil {
		filter["status"] = *status
	}
	return filter
}

// FindByWorkerInWindow returns the worker's bookings in the given statuses
// whose scheduled start falls in [from, to). Callers are expected to do the
// precise interval-overlap check in memory; this query only bounds the scan.
func (r *mongoBookingRepository) FindByWorkerInWindow(ctx context.Context, workerID string, statuses []model.Status, from, to time.Time) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"worker_id": workerID,
		"status":    bson.M{"$in": statuses},
		"scheduled_date": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find worker bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode worker bookings: %w", err)
	}

	return bookings, nil
}

// UpdateWithVersion persists a mutated booking only if the stored document
// still carries expectedVersion. booking.Version must already hold the next
// version. On a miss the booking is re-read to distinguish a deleted document
// from a concurrent writer.
func (r *mongoBookingRepository) UpdateWithVersion(ctx context.Context, booking *model.Booking, expectedVersion int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	filter := bson.M{
		"_id":     objectID,
		"version": expectedVersion,
	}

	set := bson.M{
		"status":                 booking.Status,
		"scheduled_date":         booking.ScheduledDate,
		"estimated_duration_min": booking.EstimatedDurationMin,
		"notes":                  booking.Notes,
		"version":                booking.Version,
		"updated_at":             booking.UpdatedAt,
	}
	unset := bson.M{}

	if booking.WorkerID != "" {
		set["worker_id"] = booking.WorkerID
	} else {
		unset["worker_id"] = ""
	}
	if booking.CancelReason != "" {
		set["cancel_reason"] = booking.CancelReason
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		if _, findErr := r.FindByID(ctx, booking.ID); findErr != nil {
			if errors.Is(findErr, bookingserrors.ErrNotFound) {
				return bookingserrors.ErrNotFound
			}
			return findErr
		}
		return bookingserrors.ErrVersionConflict
	}

	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
