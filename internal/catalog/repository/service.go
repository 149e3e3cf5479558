package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogerrors "housecall/internal/catalog/errors"
	"housecall/pkg/cache"
	"housecall/pkg/config"
	"housecall/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Services"
)

// ListFilter narrows catalog listings. Zero values mean "no filter".
type ListFilter struct {
	Category   string
	City       string
	ActiveOnly bool
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *model.Service) error
	FindByID(ctx context.Context, id string) (*model.Service, error)
	FindAll(ctx context.Context, filter ListFilter, limit int, offset int64) ([]*model.Service, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	Update(ctx context.Context, id string, updates *model.ServiceUpdate) (*model.Service, error)
	Delete(ctx context.Context, id string) error
}

type mongoServiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	cache      *cache.Cache
}

// NewMongoServiceRepository builds the catalog store. c may be nil, in which
// case reads always hit mongo.
func NewMongoServiceRepository(cfg *config.Config, c *cache.Cache) ServiceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		cache:      c,
	}
}

func cacheKey(id string) string {
	return "service:" + id
}

func (r *mongoServiceRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoServiceRepository) Create(ctx context.Context, svc *model.Service) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	svc.CreatedAt = now
	svc.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, svc)
	if err != nil {
		// Relies on a unique index on (name, category).
		if mongo.IsDuplicateKeyError(err) {
			return catalogerrors.ErrDuplicateName
		}
		return fmt.Errorf("failed to create service: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		svc.ID = oid.Hex()
	}
	return nil
}

func (r *mongoServiceRepository) FindByID(ctx context.Context, id string) (*model.Service, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	var svc model.Service
	if r.cache.Get(ctx, cacheKey(id), &svc) {
		return &svc, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&svc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}

	r.cache.Set(ctx, cacheKey(id), &svc)
	return &svc, nil
}

func (r *mongoServiceRepository) FindAll(ctx context.Context, filter ListFilter, limit int, offset int64) ([]*model.Service, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildListFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.Service
	if err = cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	return services, nil
}

func (r *mongoServiceRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildListFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}
	return count, nil
}

func buildListFilter(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.City != "" {
		query["cities"] = filter.City
	}
	if filter.ActiveOnly {
		query["active"] = true
	}
	return query
}

func (r *mongoServiceRepository) Update(ctx context.Context, id string, updates *model.ServiceUpdate) (*model.Service, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if updates.Name != "" {
		set["name"] = updates.Name
	}
	if updates.Category != "" {
		set["category"] = updates.Category
	}
	if updates.Description != nil {
		set["description"] = *updates.Description
	}
	if updates.BasePrice != nil {
		set["base_price"] = *updates.BasePrice
	}
	if updates.DurationMin != nil {
		set["duration_min"] = *updates.DurationMin
	}
	if updates.Cities != nil {
		set["cities"] = *updates.Cities
	}
	if updates.ContactPhone != "" {
		set["contact_phone"] = updates.ContactPhone
	}
	if updates.Active != nil {
		set["active"] = *updates.Active
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var svc model.Service
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&svc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalogerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	r.cache.Delete(ctx, cacheKey(id))
	return &svc, nil
}

func (r *mongoServiceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}

	if result.DeletedCount == 0 {
		return catalogerrors.ErrNotFound
	}

	r.cache.Delete(ctx, cacheKey(id))
	return nil
}
