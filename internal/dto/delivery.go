package dto

import "time"

// ── Delivery module DTOs ──

// CreateDeliveryRequest record creation payload (JSON body or multipart "data" field)
type CreateDeliveryRequest struct {
	LineUserID     string `json:"line_user_id"   validate:"omitempty,lineuserid"`
	CustomerName   string `json:"customerName"   validate:"required,max=200"`
	Phone          string `json:"phone"          validate:"required,max=20"`
	LocationType   string `json:"locationType"   validate:"required,oneof=home store"`
	AddressDetails string `json:"addressDetails" validate:"required_if=LocationType home,max=500"`
	SubDistrict    string `json:"subDistrict"    validate:"required_if=LocationType home,max=100"`
	District       string `json:"district"       validate:"required_if=LocationType home,max=100"`
	Province       string `json:"province"       validate:"required_if=LocationType home,max=100"`
	PostalCode     string `json:"postalCode"     validate:"required_if=LocationType home,omitempty,len=5,numeric"`
}

// SlipFile optional payment slip attached to a create request
type SlipFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// CreateDeliveryResponse record creation result
type CreateDeliveryResponse struct {
	ID             string    `json:"id"`
	SlipImageURL   *string   `json:"slipImageUrl"`
	TrackingID     string    `json:"trackingId"`
	CreatedAt      time.Time `json:"createdAt"`
	SlipQRDetected *bool     `json:"slipQrDetected,omitempty"`
}

// UpdateDeliveryRequest partial update; nil fields are left untouched.
// A supplied field may not be blank, so a home record keeps a full address.
type UpdateDeliveryRequest struct {
	CustomerName   *string `json:"customerName"   validate:"omitempty,min=1,max=200"`
	Phone          *string `json:"phone"          validate:"omitempty,min=1,max=20"`
	AddressDetails *string `json:"addressDetails" validate:"omitempty,min=1,max=500"`
	SubDistrict    *string `json:"subDistrict"    validate:"omitempty,min=1,max=100"`
	District       *string `json:"district"       validate:"omitempty,min=1,max=100"`
	Province       *string `json:"province"       validate:"omitempty,min=1,max=100"`
	PostalCode     *string `json:"postalCode"     validate:"omitempty,len=5,numeric"`
}

// UpdateAddressRequest address edit by hierarchy selection.
// Either the three IDs or a postal code (with an optional sub-district to
// pick among its suggestions) must be supplied.
type UpdateAddressRequest struct {
	ProvinceID     int    `json:"province_id"     binding:"omitempty,min=1"`
	DistrictID     int    `json:"district_id"     binding:"omitempty,min=1"`
	SubDistrictID  int    `json:"sub_district_id" binding:"omitempty,min=1"`
	PostalCode     string `json:"postal_code"     binding:"omitempty,len=5,numeric"`
	AddressDetails string `json:"addressDetails"  binding:"omitempty,max=500"`
}

// FindDeliveryRequest lookup by identifier and/or phone
type FindDeliveryRequest struct {
	LineUserID string `json:"line_user_id" form:"line_user_id"`
	Phone      string `json:"phone"        form:"phone"`
}

// UpdateStatusRequest staff status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending shipped delivered cancelled"`
}

// ExportDeliveriesRequest staff export filter
type ExportDeliveriesRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending shipped delivered cancelled"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// DeliveryResponse full record view
type DeliveryResponse struct {
	ID             string  `json:"id"`
	TrackingID     string  `json:"trackingId"`
	LineUserID     string  `json:"line_user_id,omitempty"`
	CustomerName   string  `json:"customerName"`
	Phone          string  `json:"phone"`
	LocationType   string  `json:"locationType"`
	AddressDetails string  `json:"addressDetails,omitempty"`
	SubDistrict    string  `json:"subDistrict,omitempty"`
	District       string  `json:"district,omitempty"`
	Province       string  `json:"province,omitempty"`
	PostalCode     string  `json:"postalCode,omitempty"`
	SlipImageURL   *string `json:"slipImageUrl"`
	SlipQRDetected *bool   `json:"slipQrDetected,omitempty"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}
