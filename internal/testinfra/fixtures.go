package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
)

// NewUser builds an unsaved user with the given role.
func NewUser(role models.Role) *models.User {
	id := uuid.New()
	return &models.User{
		Name:         "User " + id.String()[:8],
		Email:        id.String()[:8] + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		Phone:        "555-0100",
	}
}

// NewListing builds an unsaved, valid listing owned by donor.
func NewListing(donor uuid.UUID) *models.FoodListing {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.FoodListing{
		Title:          "Fresh bread",
		Description:    "Two loaves from this morning",
		Donor:          donor,
		Category:       models.CategoryBaked,
		Quantity:       "2 loaves",
		ExpiryDate:     now.Add(48 * time.Hour),
		AvailableFrom:  now,
		AvailableUntil: now.Add(24 * time.Hour),
		Status:         models.ListingAvailable,
		Images:         []string{},
		Allergens:      []string{"gluten"},
		PickupAddress: models.PickupAddress{
			Address: models.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
		},
	}
}

// SeedUser persists a user with the given role.
func SeedUser(t testing.TB, s store.Store, role models.Role) *models.User {
	t.Helper()
	u := NewUser(role)
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedListing persists an available listing owned by donor.
func SeedListing(t testing.TB, s store.Store, donor uuid.UUID, mods ...func(*models.FoodListing)) *models.FoodListing {
	t.Helper()
	l := NewListing(donor)
	for _, m := range mods {
		m(l)
	}
	if err := s.Listings().Create(context.Background(), l); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return l
}
