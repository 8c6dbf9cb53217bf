// server/internal/storage/profile_store.go
package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/internal/models"
)

type TruckerStore struct {
	coll *mongo.Collection
}

func NewTruckerStore(db *mongo.Database) *TruckerStore {
	return &TruckerStore{coll: db.Collection("truckers")}
}

func (s *TruckerStore) TruckerByUser(ctx context.Context, userID primitive.ObjectID) (*models.Trucker, error) {
	return s.findOne(ctx, bson.M{"user": userID})
}

func (s *TruckerStore) TruckerByID(ctx context.Context, id primitive.ObjectID) (*models.Trucker, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *TruckerStore) findOne(ctx context.Context, filter bson.M) (*models.Trucker, error) {
	var trucker models.Trucker
	err := s.coll.FindOne(ctx, filter).Decode(&trucker)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trucker, nil
}

type ShipperStore struct {
	coll *mongo.Collection
}

func NewShipperStore(db *mongo.Database) *ShipperStore {
	return &ShipperStore{coll: db.Collection("shippers")}
}

func (s *ShipperStore) ShipperByUser(ctx context.Context, userID primitive.ObjectID) (*models.Shipper, error) {
	return s.findOne(ctx, bson.M{"user": userID})
}

func (s *ShipperStore) ShipperByID(ctx context.Context, id primitive.ObjectID) (*models.Shipper, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ShipperStore) findOne(ctx context.Context, filter bson.M) (*models.Shipper, error) {
	var shipper models.Shipper
	err := s.coll.FindOne(ctx, filter).Decode(&shipper)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shipper, nil
}
