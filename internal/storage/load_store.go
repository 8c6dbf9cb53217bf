// server/internal/storage/load_store.go
package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/internal/models"
)

// openStatuses is the filter for loads still accepting bids.
var openStatuses = bson.A{models.LoadPosted, models.LoadBidding}

type LoadStore struct {
	coll *mongo.Collection
}

func NewLoadStore(db *mongo.Database) *LoadStore {
	return &LoadStore{coll: db.Collection("loads")}
}

func (s *LoadStore) FindLoad(ctx context.Context, id primitive.ObjectID) (*models.Load, error) {
	var load models.Load
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&load)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &load, nil
}

func (s *LoadStore) FindLoads(ctx context.Context, ids []primitive.ObjectID) ([]models.Load, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var loads []models.Load
	if err := cursor.All(ctx, &loads); err != nil {
		return nil, err
	}
	return loads, nil
}

func (s *LoadStore) LoadIDsByShipper(ctx context.Context, shipperID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"shipper": shipperID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// MarkBidding conditionally confirms the load is open and flips Posted to
// Bidding. The status write makes a concurrent accept-bid transaction a
// write conflict instead of a lost update.
func (s *LoadStore) MarkBidding(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": openStatuses}},
		bson.M{"$set": bson.M{"status": models.LoadBidding}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// CancelLoad is the compare-and-swap transition to Cancelled, legal only
// while the load is still open.
func (s *LoadStore) CancelLoad(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": openStatuses}},
		bson.M{"$set": bson.M{"status": models.LoadCancelled}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// DeleteLoad removes an open load.
func (s *LoadStore) DeleteLoad(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := s.coll.DeleteOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": openStatuses}},
	)
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// AssignLoad is the compare-and-swap transition to Assigned. MatchedCount
// zero means the load left Posted/Bidding since it was read.
func (s *LoadStore) AssignLoad(ctx context.Context, id, truckerID, bidID primitive.ObjectID) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": openStatuses}},
		bson.M{"$set": bson.M{
			"status":     models.LoadAssigned,
			"assignedTo": truckerID,
			"winningBid": bidID,
		}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
