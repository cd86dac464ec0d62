package models

import (
	"time"

	"gorm.io/gorm"
)

// Place is a directory entry: a business or point of interest in the city.
type Place struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Name     string `gorm:"not null;index" json:"name"`
	Category string `gorm:"not null;index" json:"category"` // category slug, e.g. "restaurants"
	Address  string `gorm:"type:text" json:"address"`
	Phone    string `json:"phone"`
	Summary  string `gorm:"type:text" json:"summary"`

	// Denormalized counters maintained by the batched view flush
	ViewCount   int     `gorm:"default:0" json:"view_count"`
	ReviewCount int     `gorm:"default:0" json:"review_count"`
	AvgRating   float64 `gorm:"default:0" json:"avg_rating"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Place) TableName() string {
	return "places"
}

// Listing is a marketplace classified ad.
type Listing struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	SellerID string  `gorm:"not null;index" json:"seller_id"`
	Title    string  `gorm:"not null" json:"title"`
	Category string  `gorm:"not null;index" json:"category"` // category slug, e.g. "electronics"
	Price    float64 `gorm:"not null" json:"price"`
	Body     string  `gorm:"type:text" json:"body"`

	ViewCount int `gorm:"default:0" json:"view_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Listing) TableName() string {
	return "listings"
}

// Review is a user-submitted place review. Creation is the spam-prone write
// path guarded by the rate limiter and the idempotency store.
type Review struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	PlaceID string `gorm:"not null;index" json:"place_id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	Rating  int    `gorm:"not null" json:"rating"` // 1..5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
