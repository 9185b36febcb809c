package models

import "time"

type Office struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Lat             float64    `json:"lat"`
	Lng             float64    `json:"lng"`
	AddressLine1    string     `json:"address_line1"`
	AddressLine2    string     `json:"address_line2,omitempty"`
	ApprovalStatus  string     `json:"approval_status"` // pending, approved, rejected
	Hidden          bool       `json:"hidden"`
	PricePerDay     int64      `json:"price_per_day"`
	MonthlyDiscount int64      `json:"monthly_discount"`
	FeaturedImageID int64      `json:"featured_image_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`

	// Loaded relations; nil when not requested.
	Owner             *User   `json:"user,omitempty"`
	Images            []Image `json:"images,omitempty"`
	Tags              []Tag   `json:"tags,omitempty"`
	ReservationsCount int64   `json:"reservations_count"`
}

// Bookable reports whether visitors may reserve the office.
func (o *Office) Bookable() bool {
	return !o.Hidden && o.ApprovalStatus == ApprovalApproved
}
