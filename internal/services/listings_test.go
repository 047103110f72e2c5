package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/geo"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/testinfra"
	"github.com/example/foodshare/internal/validation"
)

type capturedListing struct {
	listing *models.FoodListing
	donor   *models.User
}

type captureNotifier struct {
	mu    sync.Mutex
	calls []capturedListing
}

func (n *captureNotifier) ListingCreated(l *models.FoodListing, donor *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, capturedListing{listing: l, donor: donor})
}

func ptr[T any](v T) *T { return &v }

func validPatch() ListingPatch {
	now := time.Now().UTC()
	return ListingPatch{
		Title:          ptr("  Apples "),
		Description:    ptr("A crate of apples"),
		Category:       ptr(models.CategoryFruits),
		Quantity:       ptr("10 kg"),
		ExpiryDate:     &Timestamp{now.Add(72 * time.Hour)},
		AvailableFrom:  &Timestamp{now},
		AvailableUntil: &Timestamp{now.Add(24 * time.Hour)},
		PickupAddress: &models.PickupAddress{
			Address:     models.Address{City: "Springfield"},
			Coordinates: models.Coordinates{Lat: ptr(39.78), Lng: ptr(-89.65)},
		},
	}
}

func newListingFixture(t *testing.T) (*ListingService, store.Store, *geo.MemoryIndex, *captureNotifier) {
	t.Helper()
	s := testinfra.NewSQLiteStore(t)
	idx := geo.NewMemoryIndex()
	n := &captureNotifier{}
	return NewListingService(s, idx, n), s, idx, n
}

func TestListingService_Create(t *testing.T) {
	ctx := context.Background()
	svc, s, idx, n := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)

	l, err := svc.Create(ctx, donor.ID, validPatch())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if l.Donor != donor.ID || l.Status != models.ListingAvailable || l.Title != "Apples" {
		t.Errorf("listing = %+v", l)
	}
	if len(n.calls) != 1 || n.calls[0].listing.ID != l.ID || n.calls[0].donor == nil || n.calls[0].donor.ID != donor.ID {
		t.Errorf("notifications = %+v", n.calls)
	}

	hits, _ := idx.Nearby(ctx, 39.78, -89.65, 1, 10)
	if len(hits) != 1 || hits[0].ID != l.ID {
		t.Errorf("geo hits = %+v", hits)
	}
}

func TestListingService_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	svc, s, _, n := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)

	tests := []struct {
		name   string
		mutate func(*ListingPatch)
	}{
		{name: "missing title", mutate: func(p *ListingPatch) { p.Title = nil }},
		{name: "blank title", mutate: func(p *ListingPatch) { p.Title = ptr("   ") }},
		{name: "bad category", mutate: func(p *ListingPatch) { p.Category = ptr(models.Category("candy")) }},
		{name: "window reversed", mutate: func(p *ListingPatch) {
			p.AvailableUntil = &Timestamp{p.AvailableFrom.Add(-time.Hour)}
		}},
		{name: "latitude out of range", mutate: func(p *ListingPatch) {
			p.PickupAddress.Coordinates.Lat = ptr(91.0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPatch()
			tt.mutate(&p)
			_, err := svc.Create(ctx, donor.ID, p)
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want validation error", err)
			}
		})
	}
	if len(n.calls) != 0 {
		t.Errorf("notifier called %d times for invalid listings", len(n.calls))
	}
}

func TestListingService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, s, idx, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	other := testinfra.SeedUser(t, s, models.RoleRecipient)

	l, err := svc.Create(ctx, donor.ID, validPatch())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, other.ID, l.ID, ListingPatch{Title: ptr("Mine now")}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Update(non-owner) error = %v, want forbidden", err)
	}
	if _, err := svc.Update(ctx, donor.ID, uuid.New(), ListingPatch{}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Update(missing) error = %v, want not found", err)
	}

	updated, err := svc.Update(ctx, donor.ID, l.ID, ListingPatch{Quantity: ptr("5 kg")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Quantity != "5 kg" || updated.Title != "Apples" || updated.Donor != donor.ID {
		t.Errorf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, other.ID, l.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Delete(non-owner) error = %v, want forbidden", err)
	}
	if err := svc.Delete(ctx, donor.ID, l.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, l.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Get(deleted) error = %v, want not found", err)
	}
	if hits, _ := idx.Nearby(ctx, 39.78, -89.65, 1, 10); len(hits) != 0 {
		t.Errorf("deleted listing still indexed: %+v", hits)
	}
}

func TestListingService_Reserve(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	l := testinfra.SeedListing(t, s, donor.ID)

	if _, err := svc.Reserve(ctx, donor.ID, l.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Reserve(own) error = %v, want forbidden", err)
	}
	if _, err := svc.Reserve(ctx, uuid.New(), uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Reserve(missing) error = %v, want not found", err)
	}

	const n = 8
	recipients := make([]*models.User, n)
	for i := range recipients {
		recipients[i] = testinfra.SeedUser(t, s, models.RoleRecipient)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []uuid.UUID
		conflicts int
	)
	for _, r := range recipients {
		wg.Add(1)
		go func(caller uuid.UUID) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, caller, l.ID)
			mu.Lock()
			defer mu.Unlock()
			switch apperr.KindOf(err) {
			case 0:
				succeeded = append(succeeded, caller)
			case apperr.KindConflict:
				conflicts++
			default:
				t.Errorf("Reserve() unexpected error = %v", err)
			}
		}(r.ID)
	}
	wg.Wait()

	if len(succeeded) != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d", len(succeeded), conflicts)
	}
	got, err := s.Listings().FindByID(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.ReservedFor(succeeded[0]) {
		t.Errorf("listing = %s reserved by %v, want %v", got.Status, got.ReservedBy, succeeded[0])
	}
}

func TestListingService_List(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	for _, c := range []models.Category{models.CategoryFruits, models.CategoryDairy, models.CategoryFruits} {
		testinfra.SeedListing(t, s, donor.ID, func(l *models.FoodListing) { l.Category = c })
	}

	page, err := svc.List(ctx, map[string]string{"category": "fruits", "limit": "1", "select": "title"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 || page.Count != 1 {
		t.Errorf("total = %d, count = %d", page.Total, page.Count)
	}
	if page.Pagination.Next == nil || page.Pagination.Prev != nil {
		t.Errorf("pagination = %+v", page.Pagination)
	}

	doc, ok := page.Data[0].(map[string]json.RawMessage)
	if !ok {
		t.Fatalf("projected record type = %T", page.Data[0])
	}
	if _, ok := doc["id"]; !ok || len(doc) != 2 {
		t.Errorf("projected keys = %v", doc)
	}

	full, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	view, ok := full.Data[0].(ListingView)
	if !ok {
		t.Fatalf("record type = %T", full.Data[0])
	}
	summary, ok := view.Donor.(*UserSummary)
	if !ok || summary.Name != donor.Name || summary.Address != nil {
		t.Errorf("donor = %+v", view.Donor)
	}

	if _, err := svc.List(ctx, map[string]string{"colour": "red"}); err == nil {
		t.Error("List(unknown field) error = nil")
	}
}

func TestListingService_GetIncludesDonorAddress(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newListingFixture(t)
	donor := testinfra.NewUser(models.RoleDonor)
	donor.Address = models.Address{City: "Shelbyville"}
	if err := s.Users().Create(ctx, donor); err != nil {
		t.Fatal(err)
	}
	l := testinfra.SeedListing(t, s, donor.ID)

	view, err := svc.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	summary, ok := view.Donor.(*UserSummary)
	if !ok || summary.Address == nil || summary.Address.City != "Shelbyville" {
		t.Errorf("donor = %+v", view.Donor)
	}
}

func TestListingService_Nearby(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	recipient := testinfra.SeedUser(t, s, models.RoleRecipient)

	at := func(lat, lng float64) ListingPatch {
		p := validPatch()
		p.PickupAddress.Coordinates = models.Coordinates{Lat: ptr(lat), Lng: ptr(lng)}
		return p
	}
	near, err := svc.Create(ctx, donor.ID, at(39.80, -89.65))
	if err != nil {
		t.Fatal(err)
	}
	nearest, err := svc.Create(ctx, donor.ID, at(39.781, -89.651))
	if err != nil {
		t.Fatal(err)
	}
	reserved, err := svc.Create(ctx, donor.ID, at(39.782, -89.65))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reserve(ctx, recipient.ID, reserved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, donor.ID, at(41.88, -87.63)); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Nearby(ctx, 39.78, -89.65, 10, 10)
	if err != nil {
		t.Fatalf("Nearby() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != nearest.ID || got[1].ID != near.ID {
		t.Fatalf("nearby = %+v", got)
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Errorf("not ordered by distance: %v, %v", got[0].DistanceKm, got[1].DistanceKm)
	}

	if _, err := svc.Nearby(ctx, 95, 0, 10, 10); err == nil {
		t.Error("Nearby(lat 95) error = nil")
	}
}

func TestListingService_ExpireStaleAndWarm(t *testing.T) {
	ctx := context.Background()
	svc, s, idx, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)

	located := func(l *models.FoodListing) {
		l.PickupAddress.Coordinates = models.Coordinates{Lat: ptr(10.0), Lng: ptr(10.0)}
	}
	live := testinfra.SeedListing(t, s, donor.ID, located)
	stale := testinfra.SeedListing(t, s, donor.ID, located, func(l *models.FoodListing) {
		l.AvailableFrom = time.Now().UTC().Add(-48 * time.Hour)
		l.AvailableUntil = time.Now().UTC().Add(-time.Hour)
	})

	warmed, err := svc.WarmGeoIndex(ctx)
	if err != nil {
		t.Fatalf("WarmGeoIndex() error = %v", err)
	}
	if warmed != 2 {
		t.Errorf("warmed = %d, want 2", warmed)
	}

	n, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}

	got, _ := s.Listings().FindByID(ctx, stale.ID)
	if got.Status != models.ListingExpired {
		t.Errorf("stale status = %s", got.Status)
	}
	hits, _ := idx.Nearby(ctx, 10, 10, 1, 10)
	if len(hits) != 1 || hits[0].ID != live.ID {
		t.Errorf("index after expiry = %+v", hits)
	}
}

func TestListingService_ReserveUnavailableLeavesRecord(t *testing.T) {
	ctx := context.Background()
	svc, s, _, _ := newListingFixture(t)
	donor := testinfra.SeedUser(t, s, models.RoleDonor)
	holder := testinfra.SeedUser(t, s, models.RoleRecipient)
	caller := testinfra.SeedUser(t, s, models.RoleRecipient)

	tests := []struct {
		name   string
		status models.ListingStatus
		holder *uuid.UUID
	}{
		{name: "reserved", status: models.ListingReserved, holder: &holder.ID},
		{name: "claimed", status: models.ListingClaimed, holder: &holder.ID},
		{name: "expired", status: models.ListingExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testinfra.SeedListing(t, s, donor.ID, func(l *models.FoodListing) {
				l.Status = tt.status
				l.ReservedBy = tt.holder
			})
			before, err := s.Listings().FindByID(ctx, l.ID)
			if err != nil {
				t.Fatal(err)
			}

			if _, err := svc.Reserve(ctx, caller.ID, l.ID); apperr.KindOf(err) != apperr.KindConflict {
				t.Fatalf("Reserve() error = %v, want conflict", err)
			}

			after, err := s.Listings().FindByID(ctx, l.ID)
			if err != nil {
				t.Fatal(err)
			}
			if after.Status != before.Status {
				t.Errorf("Status = %s, want %s", after.Status, before.Status)
			}
			if (after.ReservedBy == nil) != (before.ReservedBy == nil) ||
				(after.ReservedBy != nil && *after.ReservedBy != *before.ReservedBy) {
				t.Errorf("ReservedBy = %v, want %v", after.ReservedBy, before.ReservedBy)
			}
			if !after.UpdatedAt.Equal(before.UpdatedAt) {
				t.Errorf("UpdatedAt = %v, want %v", after.UpdatedAt, before.UpdatedAt)
			}
		})
	}
}

func TestListingService_NearbyWithoutIndex(t *testing.T) {
	s := testinfra.NewSQLiteStore(t)
	svc := NewListingService(s, nil, nil)

	got, err := svc.Nearby(context.Background(), 39.78, -89.65, 5, 10)
	if err != nil {
		t.Fatalf("Nearby() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Nearby() = %v, want empty slice", got)
	}
}

func TestListingService_CreateNotifiesWhenDonorMissing(t *testing.T) {
	svc, _, _, n := newListingFixture(t)

	l, err := svc.Create(context.Background(), uuid.New(), validPatch())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(n.calls) != 1 || n.calls[0].listing.ID != l.ID || n.calls[0].donor != nil {
		t.Errorf("notifications = %+v, want one without donor", n.calls)
	}
}
