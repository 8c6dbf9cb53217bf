// server/internal/storage/bid_store.go
package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freight-bid-api-server/internal/models"
)

type BidStore struct {
	coll *mongo.Collection
}

func NewBidStore(db *mongo.Database) *BidStore {
	return &BidStore{coll: db.Collection("bids")}
}

func (s *BidStore) FindBid(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	var bid models.Bid
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&bid)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *BidStore) InsertBid(ctx context.Context, bid *models.Bid) error {
	_, err := s.coll.InsertOne(ctx, bid)
	return err
}

func (s *BidStore) ActiveBidByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) (*models.Bid, error) {
	var bid models.Bid
	err := s.coll.FindOne(ctx, bson.M{
		"load":    loadID,
		"trucker": truckerID,
		"status":  bson.M{"$in": bson.A{models.BidPending, models.BidAccepted}},
	}).Decode(&bid)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (s *BidStore) BidsByLoad(ctx context.Context, loadID primitive.ObjectID) ([]models.Bid, error) {
	return s.find(ctx, bson.M{"load": loadID})
}

func (s *BidStore) BidsByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) ([]models.Bid, error) {
	return s.find(ctx, bson.M{"load": loadID, "trucker": truckerID})
}

func (s *BidStore) BidsByTrucker(ctx context.Context, truckerID primitive.ObjectID) ([]models.Bid, error) {
	return s.find(ctx, bson.M{"trucker": truckerID})
}

func (s *BidStore) BidsByLoads(ctx context.Context, loadIDs []primitive.ObjectID) ([]models.Bid, error) {
	if len(loadIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"load": bson.M{"$in": loadIDs}})
}

// AcceptBid settles the bid as winner only while it is still Pending.
func (s *BidStore) AcceptBid(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.BidPending},
		bson.M{"$set": bson.M{
			"status":       models.BidAccepted,
			"isWinningBid": true,
			"acceptedAt":   at,
		}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

func (s *BidStore) UpdateBidStatus(ctx context.Context, id primitive.ObjectID, from, to models.BidStatus) (bool, error) {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// RejectPendingBids bulk-rejects the losing siblings of an accepted bid.
// Bids already Withdrawn or otherwise terminal are untouched.
func (s *BidStore) RejectPendingBids(ctx context.Context, loadID, except primitive.ObjectID) ([]models.Bid, error) {
	filter := bson.M{
		"load":   loadID,
		"_id":    bson.M{"$ne": except},
		"status": models.BidPending,
	}

	rejected, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}

	if _, err := s.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": models.BidRejected}}); err != nil {
		return nil, err
	}

	for i := range rejected {
		rejected[i].Status = models.BidRejected
	}
	return rejected, nil
}

func (s *BidStore) DeleteBidsByLoad(ctx context.Context, loadID primitive.ObjectID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"load": loadID})
	return err
}

func (s *BidStore) find(ctx context.Context, filter bson.M) ([]models.Bid, error) {
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bids []models.Bid
	if err := cursor.All(ctx, &bids); err != nil {
		return nil, err
	}
	return bids, nil
}
