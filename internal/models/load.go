// server/internal/models/load.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoadStatus is the closed set of freight load lifecycle states.
type LoadStatus string

const (
	LoadPosted    LoadStatus = "Posted"
	LoadBidding   LoadStatus = "Bidding"
	LoadAssigned  LoadStatus = "Assigned"
	LoadInTransit LoadStatus = "In Transit"
	LoadDelivered LoadStatus = "Delivered"
	LoadCompleted LoadStatus = "Completed"
	LoadCancelled LoadStatus = "Cancelled"
)

// loadTransitions is the single authority for legal load status changes.
// Completed and Cancelled are terminal.
var loadTransitions = map[LoadStatus][]LoadStatus{
	LoadPosted:    {LoadBidding, LoadAssigned, LoadCancelled},
	LoadBidding:   {LoadAssigned, LoadCancelled},
	LoadAssigned:  {LoadInTransit},
	LoadInTransit: {LoadDelivered},
	LoadDelivered: {LoadCompleted},
}

// CanTransitionTo reports whether moving from s to next is a legal status change.
func (s LoadStatus) CanTransitionTo(next LoadStatus) bool {
	for _, allowed := range loadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsBids reports whether bids may be created or accepted against a load
// in this status.
func (s LoadStatus) AcceptsBids() bool {
	return s == LoadPosted || s == LoadBidding
}

// Editable reports whether load fields may still be changed or the load
// deleted. Once a carrier is assigned the posting is frozen.
func (s LoadStatus) Editable() bool {
	return s.AcceptsBids()
}

// EligibilityCriteria are the optional thresholds a trucker must meet to bid
// on a load. A nil field imposes no constraint.
type EligibilityCriteria struct {
	MaxAccidentHistory *int `bson:"maxAccidentHistory,omitempty" json:"maxAccidentHistory,omitempty"`
	MaxTheftComplaints *int `bson:"maxTheftComplaints,omitempty" json:"maxTheftComplaints,omitempty"`
	MaxTruckAge        *int `bson:"maxTruckAge,omitempty" json:"maxTruckAge,omitempty"`
	MinExperienceYears *int `bson:"minExperienceYears,omitempty" json:"minExperienceYears,omitempty"`
}

type Load struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Reference is the human-readable code shown on the board, e.g.
	// "LOAD-9D41B7E2".
	Reference string `bson:"reference" json:"reference"`

	Shipper             primitive.ObjectID   `bson:"shipper" json:"shipper"`
	Title               string               `bson:"title" json:"title"`
	Description         string               `bson:"description" json:"description"`
	CargoType           string               `bson:"cargoType" json:"cargoType"`
	Weight              Weight               `bson:"weight" json:"weight"`
	Dimensions          *Dimensions          `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	PickupLocation      Location             `bson:"pickupLocation" json:"pickupLocation"`
	DeliveryLocation    Location             `bson:"deliveryLocation" json:"deliveryLocation"`
	Schedule            Schedule             `bson:"schedule" json:"schedule"`
	Budget              Budget               `bson:"budget" json:"budget"`
	RequiredTruckType   string               `bson:"requiredTruckType" json:"requiredTruckType"`
	SpecialRequirements []string             `bson:"specialRequirements,omitempty" json:"specialRequirements,omitempty"`
	EligibilityCriteria *EligibilityCriteria `bson:"eligibilityCriteria,omitempty" json:"eligibilityCriteria,omitempty"`
	Status              LoadStatus           `bson:"status" json:"status"`

	// AssignedTo and WinningBid are set together by the accept-bid
	// transaction, never independently. Both are nil until Assigned.
	AssignedTo *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	WinningBid *primitive.ObjectID `bson:"winningBid,omitempty" json:"winningBid,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}
