package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/testinfra"
)

type donationFixture struct {
	svc       *DonationService
	store     store.Store
	donor     *models.User
	recipient *models.User
	listing   *models.FoodListing
}

func newDonationFixture(t *testing.T) *donationFixture {
	t.Helper()
	s := testinfra.NewSQLiteStore(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	return &donationFixture{
		svc:       NewDonationService(s, nil),
		store:     s,
		donor:     donor,
		recipient: testinfra.SeedUser(t, s, models.RoleRecipient),
		listing:   testinfra.SeedListing(t, s, donor.ID),
	}
}

func (f *donationFixture) request(t *testing.T, caller uuid.UUID) *models.Donation {
	t.Helper()
	d, err := f.svc.Create(context.Background(), caller, DonationInput{
		FoodListing:     f.listing.ID,
		ScheduledPickup: Timestamp{time.Now().Add(2 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return d
}

func (f *donationFixture) listingNow(t *testing.T) *models.FoodListing {
	t.Helper()
	l, err := f.store.Listings().FindByID(context.Background(), f.listing.ID)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestDonationService_CreateReservesListing(t *testing.T) {
	f := newDonationFixture(t)

	d := f.request(t, f.recipient.ID)
	if d.Donor != f.donor.ID || d.Recipient != f.recipient.ID || d.Status != models.DonationReserved {
		t.Errorf("donation = %+v", d)
	}
	if l := f.listingNow(t); !l.ReservedFor(f.recipient.ID) {
		t.Errorf("listing status = %s, reservedBy = %v", l.Status, l.ReservedBy)
	}
}

func TestDonationService_CreateConfirmsOwnReservation(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	if _, err := reserve(ctx, f.store.Listings(), f.listing.ID, f.recipient.ID); err != nil {
		t.Fatal(err)
	}
	f.request(t, f.recipient.ID)

	if l := f.listingNow(t); !l.ReservedFor(f.recipient.ID) {
		t.Errorf("listing status = %s, want reserved by recipient", l.Status)
	}
}

func TestDonationService_CreateRejects(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	other := testinfra.SeedUser(t, f.store, models.RoleRecipient)
	f.request(t, other.ID)

	tests := []struct {
		name   string
		caller uuid.UUID
		in     DonationInput
		kind   apperr.Kind
	}{
		{
			name:   "reserved by someone else",
			caller: f.recipient.ID,
			in:     DonationInput{FoodListing: f.listing.ID, ScheduledPickup: Timestamp{time.Now()}},
			kind:   apperr.KindConflict,
		},
		{
			name:   "own listing",
			caller: f.donor.ID,
			in:     DonationInput{FoodListing: f.listing.ID, ScheduledPickup: Timestamp{time.Now()}},
			kind:   apperr.KindForbidden,
		},
		{
			name:   "missing listing",
			caller: f.recipient.ID,
			in:     DonationInput{FoodListing: uuid.New(), ScheduledPickup: Timestamp{time.Now()}},
			kind:   apperr.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.caller, tt.in)
			if apperr.KindOf(err) != tt.kind {
				t.Errorf("error = %v, want kind %v", err, tt.kind)
			}
		})
	}

	if _, err := f.svc.Create(ctx, f.recipient.ID, DonationInput{FoodListing: f.listing.ID}); err == nil {
		t.Error("Create(no scheduledPickup) error = nil")
	}

	mine, err := f.svc.ListMine(ctx, f.recipient.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 0 {
		t.Errorf("rejected requests wrote %d donations", len(mine))
	}
}

func TestDonationService_PickUpCompleteAndRate(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.request(t, f.recipient.ID)

	if _, err := f.svc.UpdateStatus(ctx, f.recipient.ID, d.ID, StatusInput{Status: models.DonationPickedUp}); err == nil {
		t.Fatal("recipient marked pickup, want transition error")
	} else {
		var terr *lifecycle.TransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("error = %v, want TransitionError", err)
		}
	}

	picked, err := f.svc.UpdateStatus(ctx, f.donor.ID, d.ID, StatusInput{Status: models.DonationPickedUp})
	if err != nil {
		t.Fatalf("UpdateStatus(picked-up) error = %v", err)
	}
	if picked.Status != models.DonationPickedUp || picked.ActualPickup == nil {
		t.Errorf("donation = %+v", picked)
	}
	l := f.listingNow(t)
	if l.Status != models.ListingClaimed || l.ClaimedBy == nil || *l.ClaimedBy != f.recipient.ID {
		t.Errorf("listing status = %s, claimedBy = %v", l.Status, l.ClaimedBy)
	}

	if _, err := f.svc.Rate(ctx, f.donor.ID, d.ID, RateInput{Rating: 5}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("Rate(before completion) error = %v, want conflict", err)
	}

	notes := "all good"
	done, err := f.svc.UpdateStatus(ctx, f.recipient.ID, d.ID, StatusInput{Status: models.DonationCompleted, CompletionNotes: &notes})
	if err != nil {
		t.Fatalf("UpdateStatus(completed) error = %v", err)
	}
	if done.CompletionNotes != notes {
		t.Errorf("completionNotes = %q", done.CompletionNotes)
	}

	rated, err := f.svc.Rate(ctx, f.donor.ID, d.ID, RateInput{Rating: 4, Comment: "punctual"})
	if err != nil {
		t.Fatalf("Rate(donor) error = %v", err)
	}
	if !rated.Rating.ByDonor.Rated() || *rated.Rating.ByDonor.Score != 4 || rated.Rating.ByRecipient.Rated() {
		t.Errorf("rating = %+v", rated.Rating)
	}

	if _, err := f.svc.Rate(ctx, f.donor.ID, d.ID, RateInput{Rating: 1}); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second donor rating error = %v, want conflict", err)
	}
	if _, err := f.svc.Rate(ctx, f.recipient.ID, d.ID, RateInput{Rating: 6}); err == nil || apperr.KindOf(err) != 0 {
		t.Errorf("Rate(6) error = %v, want validation error", err)
	}
	if _, err := f.svc.Rate(ctx, f.recipient.ID, d.ID, RateInput{Rating: 5}); err != nil {
		t.Errorf("Rate(recipient) error = %v", err)
	}
}

func TestDonationService_CancelReleasesListing(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.request(t, f.recipient.ID)

	stranger := testinfra.SeedUser(t, f.store, models.RoleVolunteer)
	if _, err := f.svc.UpdateStatus(ctx, stranger.ID, d.ID, StatusInput{Status: models.DonationCancelled}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("stranger cancel error = %v, want forbidden", err)
	}

	cancelled, err := f.svc.UpdateStatus(ctx, f.recipient.ID, d.ID, StatusInput{Status: models.DonationCancelled})
	if err != nil {
		t.Fatalf("UpdateStatus(cancelled) error = %v", err)
	}
	if cancelled.Status != models.DonationCancelled {
		t.Errorf("status = %s", cancelled.Status)
	}

	l := f.listingNow(t)
	if l.Status != models.ListingAvailable || l.ReservedBy != nil {
		t.Errorf("listing status = %s, reservedBy = %v, want released", l.Status, l.ReservedBy)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.donor.ID, d.ID, StatusInput{Status: models.DonationPickedUp}); err == nil {
		t.Error("pickup after cancel error = nil")
	}
}

func TestDonationService_ListMine(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	d := f.request(t, f.recipient.ID)

	for _, caller := range []uuid.UUID{f.donor.ID, f.recipient.ID} {
		views, err := f.svc.ListMine(ctx, caller)
		if err != nil {
			t.Fatalf("ListMine() error = %v", err)
		}
		if len(views) != 1 || views[0].ID != d.ID {
			t.Fatalf("views = %+v", views)
		}
		listing, ok := views[0].FoodListing.(*models.FoodListing)
		if !ok || listing.ID != f.listing.ID {
			t.Errorf("foodListing = %+v", views[0].FoodListing)
		}
		donor, ok := views[0].Donor.(*UserSummary)
		if !ok || donor.ID != f.donor.ID {
			t.Errorf("donor = %+v", views[0].Donor)
		}
		recipient, ok := views[0].Recipient.(*UserSummary)
		if !ok || recipient.ID != f.recipient.ID {
			t.Errorf("recipient = %+v", views[0].Recipient)
		}
	}

	stranger := testinfra.SeedUser(t, f.store, models.RoleVolunteer)
	views, err := f.svc.ListMine(ctx, stranger.ID)
	if err != nil || len(views) != 0 {
		t.Errorf("stranger views = %v, %v", views, err)
	}
}
