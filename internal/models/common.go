// server/internal/models/common.go
package models

import "time"

// Coordinates is an optional geocoordinate pair attached to a location.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Location is a structured pickup or delivery address.
type Location struct {
	Address     string       `bson:"address" json:"address"`
	City        string       `bson:"city" json:"city"`
	State       string       `bson:"state" json:"state"`
	ZipCode     string       `bson:"zipCode" json:"zipCode"`
	Country     string       `bson:"country" json:"country"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type Weight struct {
	Value float64 `bson:"value" json:"value"`
	Unit  string  `bson:"unit" json:"unit"` // kg, tons, lb
}

type Dimensions struct {
	Length float64 `bson:"length,omitempty" json:"length,omitempty"`
	Width  float64 `bson:"width,omitempty" json:"width,omitempty"`
	Height float64 `bson:"height,omitempty" json:"height,omitempty"`
	Unit   string  `bson:"unit,omitempty" json:"unit,omitempty"` // cm, m, in, ft
}

// Budget is the shipper's posted price expectation for a load.
type Budget struct {
	Amount     float64 `bson:"amount" json:"amount"`
	Currency   string  `bson:"currency" json:"currency"`
	Negotiable bool    `bson:"negotiable" json:"negotiable"`
}

// Schedule holds the pickup/delivery date window for a load.
type Schedule struct {
	PickupDate    time.Time `bson:"pickupDate" json:"pickupDate"`
	DeliveryDate  time.Time `bson:"deliveryDate" json:"deliveryDate"`
	FlexibleDates bool      `bson:"flexibleDates" json:"flexibleDates"`
}

// Rating is an aggregated review score.
type Rating struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}
