package models

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationReserved  DonationStatus = "reserved"
	DonationPickedUp  DonationStatus = "picked-up"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
)

// Rating is one party's feedback on a completed donation.
type Rating struct {
	Score   *int   `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment string `json:"comment,omitempty" bson:"comment,omitempty" validate:"max=500"`
}

// Rated reports whether the rating was submitted.
func (r Rating) Rated() bool { return r.Score != nil }

// DonationRating holds the two independent ratings.
type DonationRating struct {
	ByDonor     Rating `gorm:"embedded;embeddedPrefix:by_donor_" json:"byDonor" bson:"byDonor"`
	ByRecipient Rating `gorm:"embedded;embeddedPrefix:by_recipient_" json:"byRecipient" bson:"byRecipient"`
}

// Donation records the transfer of a listing from its donor to a recipient.
type Donation struct {
	BaseModel       `bson:",inline"`
	FoodListing     uuid.UUID      `gorm:"type:uuid;index;column:food_listing_id" json:"foodListing" bson:"foodListing" validate:"required"`
	Donor           uuid.UUID      `gorm:"type:uuid;index;column:donor_id" json:"donor" bson:"donor" validate:"required"`
	Recipient       uuid.UUID      `gorm:"type:uuid;index;column:recipient_id" json:"recipient" bson:"recipient" validate:"required"`
	Status          DonationStatus `gorm:"index;default:reserved" json:"status" bson:"status" validate:"required,oneof=reserved picked-up completed cancelled"`
	ScheduledPickup time.Time      `json:"scheduledPickup" bson:"scheduledPickup" validate:"required"`
	ActualPickup    *time.Time     `json:"actualPickup,omitempty" bson:"actualPickup,omitempty"`
	Rating          DonationRating `gorm:"embedded;embeddedPrefix:rating_" json:"rating" bson:"rating"`
	CompletionNotes string         `json:"completionNotes,omitempty" bson:"completionNotes,omitempty" validate:"max=1000"`
}

// Party identifies which side of a donation a user is on.
type Party string

const (
	PartyDonor     Party = "donor"
	PartyRecipient Party = "recipient"
)

// PartyOf returns the caller's side of the donation, or false if the caller
// is not involved.
func (d *Donation) PartyOf(user uuid.UUID) (Party, bool) {
	switch user {
	case d.Donor:
		return PartyDonor, true
	case d.Recipient:
		return PartyRecipient, true
	default:
		return "", false
	}
}

// Normalize stores every instant in UTC.
func (d *Donation) Normalize() {
	d.ScheduledPickup = utc(d.ScheduledPickup)
	if d.ActualPickup != nil {
		t := utc(*d.ActualPickup)
		d.ActualPickup = &t
	}
}
