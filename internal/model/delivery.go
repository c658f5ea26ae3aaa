package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationType how the customer receives the item
const (
	LocationTypeHome  = "home"
	LocationTypeStore = "store"
)

// Delivery statuses
const (
	StatusPending   = "pending"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Delivery record stored in the item_delivery collection
type Delivery struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"            json:"id"`
	TrackingID     string             `bson:"trackingId"               json:"trackingId"`
	LineUserID     string             `bson:"line_user_id,omitempty"   json:"line_user_id,omitempty"`
	CustomerName   string             `bson:"customerName"             json:"customerName"`
	Phone          string             `bson:"phone"                    json:"phone"`
	LocationType   string             `bson:"locationType"             json:"locationType"`
	AddressDetails string             `bson:"addressDetails,omitempty" json:"addressDetails,omitempty"`
	SubDistrict    string             `bson:"subDistrict,omitempty"    json:"subDistrict,omitempty"`
	District       string             `bson:"district,omitempty"       json:"district,omitempty"`
	Province       string             `bson:"province,omitempty"       json:"province,omitempty"`
	PostalCode     string             `bson:"postalCode,omitempty"     json:"postalCode,omitempty"`
	SlipImageURL   *string            `bson:"slipImageUrl"             json:"slipImageUrl"`
	SlipFileID     string             `bson:"slipFileId,omitempty"     json:"-"`
	SlipQRDetected *bool              `bson:"slipQrDetected,omitempty" json:"slipQrDetected,omitempty"`
	Status         string             `bson:"status"                   json:"status"`
	CreatedAt      time.Time          `bson:"createdAt"                json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"                json:"updatedAt"`
}

// DeliveryFilter staff listing filter; zero values are ignored
type DeliveryFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int64
}

// ValidStatus reports whether s is a known status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransition allowed status moves
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusShipped || to == StatusCancelled
	case StatusShipped:
		return to == StatusDelivered || to == StatusCancelled
	}
	return false
}
