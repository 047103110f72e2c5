package services

import (
	"bytes"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/query"
	"github.com/example/foodshare/internal/validation"
)

// Timestamp accepts RFC 3339 instants or bare YYYY-MM-DD dates.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := query.ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// UserSummary is the public slice of a user embedded in other records.
type UserSummary struct {
	ID      uuid.UUID       `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone,omitempty"`
	Address *models.Address `json:"address,omitempty"`
}

func summarize(u *models.User, withAddress bool) *UserSummary {
	s := &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
	if withAddress {
		addr := u.Address
		s.Address = &addr
	}
	return s
}

// ref renders a joined user, falling back to the bare id when the user is gone.
func ref(users map[uuid.UUID]*models.User, id uuid.UUID, withAddress bool) any {
	if u, ok := users[id]; ok {
		return summarize(u, withAddress)
	}
	return id
}

// ListingView is a listing with its donor joined.
type ListingView struct {
	*models.FoodListing
	Donor any `json:"donor"`
}

// NearbyListing is a listing with its distance from the search point.
type NearbyListing struct {
	ListingView
	DistanceKm float64 `json:"distanceKm"`
}

// DonationView is a donation with its listing and both parties joined.
type DonationView struct {
	*models.Donation
	FoodListing any `json:"foodListing"`
	Donor       any `json:"donor"`
	Recipient   any `json:"recipient"`
}

// ListingPatch carries the client-editable listing fields. Nil fields are
// left unchanged.
type ListingPatch struct {
	Title               *string               `json:"title"`
	Description         *string               `json:"description"`
	Category            *models.Category      `json:"category"`
	Quantity            *string               `json:"quantity"`
	ExpiryDate          *Timestamp            `json:"expiryDate"`
	Images              *[]string             `json:"images"`
	PickupAddress       *models.PickupAddress `json:"pickupAddress"`
	AvailableFrom       *Timestamp            `json:"availableFrom"`
	AvailableUntil      *Timestamp            `json:"availableUntil"`
	SpecialInstructions *string               `json:"specialInstructions"`
	Allergens           *[]string             `json:"allergens"`
}

// Apply merges the patch onto l.
func (p ListingPatch) Apply(l *models.FoodListing) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Quantity != nil {
		l.Quantity = *p.Quantity
	}
	if p.ExpiryDate != nil {
		l.ExpiryDate = p.ExpiryDate.Time
	}
	if p.Images != nil {
		l.Images = *p.Images
	}
	if p.PickupAddress != nil {
		l.PickupAddress = *p.PickupAddress
	}
	if p.AvailableFrom != nil {
		l.AvailableFrom = p.AvailableFrom.Time
	}
	if p.AvailableUntil != nil {
		l.AvailableUntil = p.AvailableUntil.Time
	}
	if p.SpecialInstructions != nil {
		l.SpecialInstructions = *p.SpecialInstructions
	}
	if p.Allergens != nil {
		l.Allergens = *p.Allergens
	}
}

// RegisterInput is the body of a registration.
type RegisterInput struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Password     string              `json:"password"`
	Role         models.Role         `json:"role"`
	Phone        string              `json:"phone"`
	Address      models.Address      `json:"address"`
	Organization models.Organization `json:"organization"`
}

// LoginInput is the body of a login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DonationInput is the body of a donation request.
type DonationInput struct {
	FoodListing     uuid.UUID `json:"foodListing"`
	ScheduledPickup Timestamp `json:"scheduledPickup"`
}

func (in DonationInput) validate() error {
	if in.FoodListing == uuid.Nil {
		return validation.Errorf("foodListing", "foodListing is required")
	}
	if in.ScheduledPickup.IsZero() {
		return validation.Errorf("scheduledPickup", "scheduledPickup is required")
	}
	return nil
}

// StatusInput is the body of a donation status change.
type StatusInput struct {
	Status          models.DonationStatus `json:"status"`
	ActualPickup    *Timestamp            `json:"actualPickup"`
	CompletionNotes *string               `json:"completionNotes"`
}

// RateInput is the body of a donation rating.
type RateInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// ListingPage is one page of listings.
type ListingPage struct {
	Count      int              `json:"count"`
	Total      int64            `json:"total"`
	Pagination query.Pagination `json:"pagination"`
	Data       []any            `json:"data"`
}
