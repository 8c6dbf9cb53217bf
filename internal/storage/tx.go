// server/internal/storage/tx.go
package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Sessions runs functions inside a Mongo multi-document transaction. The
// accept-bid settlement relies on this: the winning bid, the rejected
// siblings and the load's Assigned transition commit together or not at all.
type Sessions struct {
	client *mongo.Client
}

func NewSessions(client *mongo.Client) *Sessions {
	return &Sessions{client: client}
}

func (s *Sessions) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
