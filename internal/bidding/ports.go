// server/internal/bidding/ports.go
package bidding

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"freight-bid-api-server/internal/models"
)

// Repositories are scoped to what the lifecycle service needs. The Mongo
// adapters live in internal/storage; tests run against the in-memory store.
// Find methods return (nil, nil) when the document does not exist.

type LoadRepository interface {
	FindLoad(ctx context.Context, id primitive.ObjectID) (*models.Load, error)
	FindLoads(ctx context.Context, ids []primitive.ObjectID) ([]models.Load, error)
	LoadIDsByShipper(ctx context.Context, shipperID primitive.ObjectID) ([]primitive.ObjectID, error)

	// MarkBidding conditionally confirms the load is open for bids, flipping
	// Posted to Bidding. It reports false when the load has left the
	// Posted/Bidding states, so a concurrent assignment cannot be clobbered.
	MarkBidding(ctx context.Context, id primitive.ObjectID) (bool, error)

	// AssignLoad performs the compare-and-swap transition to Assigned,
	// setting the carrier and winning bid together with the status. It
	// reports false when the load's status changed since it was read.
	AssignLoad(ctx context.Context, id, truckerID, bidID primitive.ObjectID) (bool, error)

	// CancelLoad is the compare-and-swap transition to Cancelled, legal only
	// while the load is still open. Reports false when the status changed
	// since it was read.
	CancelLoad(ctx context.Context, id primitive.ObjectID) (bool, error)

	// DeleteLoad removes an open load. Reports false when the load is gone
	// or no longer open.
	DeleteLoad(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type BidRepository interface {
	FindBid(ctx context.Context, id primitive.ObjectID) (*models.Bid, error)
	InsertBid(ctx context.Context, bid *models.Bid) error

	// ActiveBidByLoadAndTrucker returns the trucker's Pending or Accepted bid
	// on the load, if any.
	ActiveBidByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) (*models.Bid, error)

	BidsByLoad(ctx context.Context, loadID primitive.ObjectID) ([]models.Bid, error)
	BidsByLoadAndTrucker(ctx context.Context, loadID, truckerID primitive.ObjectID) ([]models.Bid, error)
	BidsByTrucker(ctx context.Context, truckerID primitive.ObjectID) ([]models.Bid, error)
	BidsByLoads(ctx context.Context, loadIDs []primitive.ObjectID) ([]models.Bid, error)

	// AcceptBid settles the bid as winner: Pending to Accepted, winning flag
	// and acceptance timestamp set. Reports false when the bid was no longer
	// Pending.
	AcceptBid(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)

	// UpdateBidStatus is a compare-and-swap status change.
	UpdateBidStatus(ctx context.Context, id primitive.ObjectID, from, to models.BidStatus) (bool, error)

	// RejectPendingBids moves every Pending bid on the load, except the given
	// one, to Rejected and returns the bids it rejected. Bids already in
	// terminal states are untouched.
	RejectPendingBids(ctx context.Context, loadID, except primitive.ObjectID) ([]models.Bid, error)

	// DeleteBidsByLoad removes every bid on the load.
	DeleteBidsByLoad(ctx context.Context, loadID primitive.ObjectID) error
}

type TruckerRepository interface {
	TruckerByUser(ctx context.Context, userID primitive.ObjectID) (*models.Trucker, error)
	TruckerByID(ctx context.Context, id primitive.ObjectID) (*models.Trucker, error)
}

type ShipperRepository interface {
	ShipperByUser(ctx context.Context, userID primitive.ObjectID) (*models.Shipper, error)
	ShipperByID(ctx context.Context, id primitive.ObjectID) (*models.Shipper, error)
}

// TxRunner executes fn as a single atomic unit: everything fn writes becomes
// visible to other readers all at once, or not at all.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier pushes bid lifecycle events to connected clients. Delivery is best
// effort and must never fail the business operation.
type Notifier interface {
	BidPlaced(userID string, bid *models.Bid)
	BidAccepted(userID string, bid *models.Bid)
	BidRejected(userID string, bid *models.Bid)
}
