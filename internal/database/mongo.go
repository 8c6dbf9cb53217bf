// server/internal/database/mongo.go
package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"freight-bid-api-server/config"
	"freight-bid-api-server/internal/models"
)

// Connect establishes the Mongo client and pings the deployment.
func Connect(ctx context.Context, cfg config.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	return client, client.Database(cfg.Mongo.DBName), nil
}

// EnsureIndexes creates the indexes the bid lifecycle relies on. The partial
// unique index on (load, trucker) is the persistence-level backstop for the
// one-live-bid-per-trucker-per-load rule: it only covers Pending and
// Accepted bids, so a trucker may bid again after withdrawing.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("bids").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "load", Value: 1}, {Key: "trucker", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{models.BidPending, models.BidAccepted}},
				}),
		},
		{
			// For the lowest-bid lookup.
			Keys: bson.D{{Key: "load", Value: 1}, {Key: "amount", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "trucker", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("loads").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shipper", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
