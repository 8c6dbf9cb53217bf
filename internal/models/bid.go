// server/internal/models/bid.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BidStatus is the closed set of bid lifecycle states. Pending is the only
// non-terminal state.
type BidStatus string

const (
	BidPending   BidStatus = "Pending"
	BidAccepted  BidStatus = "Accepted"
	BidRejected  BidStatus = "Rejected"
	BidWithdrawn BidStatus = "Withdrawn"
	BidExpired   BidStatus = "Expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s BidStatus) Terminal() bool {
	return s != BidPending
}

// Active reports whether the bid still counts against the one-live-bid-per-
// trucker-per-load rule.
func (s BidStatus) Active() bool {
	return s == BidPending || s == BidAccepted
}

type Bid struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Reference is the human-readable code quoted in notifications and
	// support conversations, e.g. "BID-3F2A9C41".
	Reference string `bson:"reference" json:"reference"`

	Load    primitive.ObjectID `bson:"load" json:"load"`
	Trucker primitive.ObjectID `bson:"trucker" json:"trucker"`
	Amount  float64            `bson:"amount" json:"amount"`

	// Currency is copied from the load's budget at creation time, not a live
	// reference; a later budget edit does not change existing bids.
	Currency string `bson:"currency" json:"currency"`

	Message              string     `bson:"message,omitempty" json:"message,omitempty"`
	ProposedPickupDate   *time.Time `bson:"proposedPickupDate,omitempty" json:"proposedPickupDate,omitempty"`
	ProposedDeliveryDate *time.Time `bson:"proposedDeliveryDate,omitempty" json:"proposedDeliveryDate,omitempty"`
	Status               BidStatus  `bson:"status" json:"status"`
	IsWinningBid         bool       `bson:"isWinningBid" json:"isWinningBid"`
	CreatedAt            time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt            *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	AcceptedAt           *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
}

// EffectiveStatus reports Expired for a Pending bid past its expiry. Expiry is
// evaluated lazily on read; there is no background sweep.
func (b *Bid) EffectiveStatus(now time.Time) BidStatus {
	if b.Status == BidPending && b.ExpiresAt != nil && now.After(*b.ExpiresAt) {
		return BidExpired
	}
	return b.Status
}
