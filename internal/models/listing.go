package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of food categories.
type Category string

const (
	CategoryFruits     Category = "fruits"
	CategoryVegetables Category = "vegetables"
	CategoryDairy      Category = "dairy"
	CategoryGrains     Category = "grains"
	CategoryMeat       Category = "meat"
	CategoryPrepared   Category = "prepared"
	CategoryBaked      Category = "baked"
	CategoryOther      Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryFruits, CategoryVegetables, CategoryDairy, CategoryGrains,
	CategoryMeat, CategoryPrepared, CategoryBaked, CategoryOther,
}

// ListingStatus is the lifecycle state of a food listing.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingReserved  ListingStatus = "reserved"
	ListingClaimed   ListingStatus = "claimed"
	ListingExpired   ListingStatus = "expired"
)

// ListingStatuses lists every listing status.
var ListingStatuses = []ListingStatus{ListingAvailable, ListingReserved, ListingClaimed, ListingExpired}

// Coordinates is an optional latitude/longitude pair.
type Coordinates struct {
	Lat *float64 `json:"lat,omitempty" bson:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng *float64 `json:"lng,omitempty" bson:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

// PickupAddress is where a listing is collected from.
type PickupAddress struct {
	Address     `gorm:"embedded" bson:",inline"`
	Coordinates Coordinates `gorm:"embedded;embeddedPrefix:coord_" json:"coordinates" bson:"coordinates"`
}

// Located reports whether both coordinates are present.
func (p PickupAddress) Located() bool {
	return p.Coordinates.Lat != nil && p.Coordinates.Lng != nil
}

// FoodListing is a donor's offer of surplus food.
type FoodListing struct {
	BaseModel           `bson:",inline"`
	Title               string        `json:"title" bson:"title" validate:"required,max=100"`
	Description         string        `json:"description" bson:"description" validate:"required,max=500"`
	Donor               uuid.UUID     `gorm:"type:uuid;index;column:donor_id" json:"donor" bson:"donor" validate:"required"`
	Category            Category      `gorm:"index" json:"category" bson:"category" validate:"required,oneof=fruits vegetables dairy grains meat prepared baked other"`
	Quantity            string        `json:"quantity" bson:"quantity" validate:"required"`
	ExpiryDate          time.Time     `gorm:"index" json:"expiryDate" bson:"expiryDate" validate:"required"`
	Images              []string      `gorm:"type:text;serializer:json" json:"images" bson:"images"`
	PickupAddress       PickupAddress `gorm:"embedded;embeddedPrefix:pickup_" json:"pickupAddress" bson:"pickupAddress"`
	AvailableFrom       time.Time     `json:"availableFrom" bson:"availableFrom" validate:"required"`
	AvailableUntil      time.Time     `json:"availableUntil" bson:"availableUntil" validate:"required,gtefield=AvailableFrom"`
	Status              ListingStatus `gorm:"index;default:available" json:"status" bson:"status" validate:"required,oneof=available reserved claimed expired"`
	ReservedBy          *uuid.UUID    `gorm:"type:uuid;column:reserved_by_id" json:"reservedBy,omitempty" bson:"reservedBy,omitempty"`
	ClaimedBy           *uuid.UUID    `gorm:"type:uuid;column:claimed_by_id" json:"claimedBy,omitempty" bson:"claimedBy,omitempty"`
	SpecialInstructions string        `json:"specialInstructions,omitempty" bson:"specialInstructions,omitempty" validate:"max=500"`
	Allergens           []string      `gorm:"type:text;serializer:json" json:"allergens" bson:"allergens"`
}

// Normalize trims text fields and stores every instant in UTC.
func (l *FoodListing) Normalize() {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.Quantity = strings.TrimSpace(l.Quantity)
	l.ExpiryDate = utc(l.ExpiryDate)
	l.AvailableFrom = utc(l.AvailableFrom)
	l.AvailableUntil = utc(l.AvailableUntil)
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Allergens == nil {
		l.Allergens = []string{}
	}
}

// ReservedFor reports whether the listing is currently reserved by user.
func (l *FoodListing) ReservedFor(user uuid.UUID) bool {
	return l.Status == ListingReserved && l.ReservedBy != nil && *l.ReservedBy == user
}
