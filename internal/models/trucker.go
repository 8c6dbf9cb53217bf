// server/internal/models/trucker.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverLicense struct {
	Number     string    `bson:"number" json:"number"`
	IssueDate  time.Time `bson:"issueDate" json:"issueDate"`
	ExpiryDate time.Time `bson:"expiryDate" json:"expiryDate"`
	State      string    `bson:"state" json:"state"`
}

type Truck struct {
	Model              string  `bson:"model" json:"model"`
	Year               int     `bson:"year" json:"year"`
	RegistrationNumber string  `bson:"registrationNumber" json:"registrationNumber"`
	CapacityTons       float64 `bson:"capacityTons" json:"capacityTons"`
	Type               string  `bson:"type" json:"type"` // Flatbed, Refrigerated, Container, Tanker, Other
}

type AccidentRecord struct {
	Date        time.Time `bson:"date" json:"date"`
	Description string    `bson:"description" json:"description"`
	Severity    string    `bson:"severity" json:"severity"` // Minor, Moderate, Major
}

type AccidentHistory struct {
	HasAccidents bool             `bson:"hasAccidents" json:"hasAccidents"`
	Details      []AccidentRecord `bson:"details,omitempty" json:"details,omitempty"`
}

type ComplaintRecord struct {
	Date        time.Time `bson:"date" json:"date"`
	Description string    `bson:"description" json:"description"`
	Status      string    `bson:"status" json:"status"` // Pending, Resolved, Dismissed
}

type TheftComplaints struct {
	HasComplaints bool              `bson:"hasComplaints" json:"hasComplaints"`
	Details       []ComplaintRecord `bson:"details,omitempty" json:"details,omitempty"`
}

// Trucker is a carrier profile. The eligibility evaluator reads its safety
// and compliance fields; this core never mutates them.
type Trucker struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	CompanyName        string             `bson:"companyName" json:"companyName"`
	ContactName        string             `bson:"contactName" json:"contactName"`
	ContactPhone       string             `bson:"contactPhone" json:"contactPhone"`
	DriverLicense      DriverLicense      `bson:"driverLicense" json:"driverLicense"`
	Truck              Truck              `bson:"truck" json:"truck"`
	AccidentHistory    AccidentHistory    `bson:"accidentHistory" json:"accidentHistory"`
	TheftComplaints    TheftComplaints    `bson:"theftComplaints" json:"theftComplaints"`
	AvailabilityStatus string             `bson:"availabilityStatus" json:"availabilityStatus"` // Available, On Trip, Maintenance, Off Duty
	Rating             Rating             `bson:"rating" json:"rating"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}
