// server/internal/models/shipper.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shipper is the party that posts loads and accepts bids.
type Shipper struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User         primitive.ObjectID `bson:"user" json:"user"`
	CompanyName  string             `bson:"companyName" json:"companyName"`
	ContactName  string             `bson:"contactName" json:"contactName"`
	ContactPhone string             `bson:"contactPhone" json:"contactPhone"`
	Rating       Rating             `bson:"rating" json:"rating"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
