package repository

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "housecall/internal/bookings/errors"
	"housecall/pkg/config"
	"housecall/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const ServicesCollectionName = "Services"

// ServiceCatalog is the read-only view of the service catalog the booking
// service needs to validate creation requests.
type ServiceCatalog interface {
	FindServiceByID(ctx context.Context, id string) (*model.Service, error)
}

type mongoServiceCatalog struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoServiceCatalog(cfg *config.Config) ServiceCatalog {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceCatalog{
		cfg:        cfg,
		collection: db.Collection(ServicesCollectionName),
	}
}

func (r *mongoServiceCatalog) FindServiceByID(ctx context.Context, id string) (*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var svc model.Service
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&svc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}

	return &svc, nil
}
