package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/geo"
	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/observability"
	"github.com/example/foodshare/internal/query"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/validation"
)

// Nearby search bounds, in kilometres.
const (
	DefaultRadiusKm = 10
	MaxRadiusKm     = 500
)

// ListingService implements the food listing operations.
type ListingService struct {
	store    store.Store
	geo      geo.Index
	notifier ListingNotifier
	now      func() time.Time
}

// NewListingService creates a ListingService. notifier may be nil.
func NewListingService(s store.Store, idx geo.Index, notifier ListingNotifier) *ListingService {
	return &ListingService{store: s, geo: idx, notifier: notifier, now: time.Now}
}

// List returns one page of listings matching params, each joined to a donor
// summary.
func (s *ListingService) List(ctx context.Context, params map[string]string) (*ListingPage, error) {
	q, err := query.Parse(params, query.Listings)
	if err != nil {
		return nil, err
	}

	listings, total, err := s.store.Listings().Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}

	views, err := s.withDonors(ctx, listings, false)
	if err != nil {
		return nil, err
	}
	data, err := query.Project(views, q.Select)
	if err != nil {
		return nil, err
	}

	return &ListingPage{
		Count:      len(data),
		Total:      total,
		Pagination: q.Paginate(total),
		Data:       data,
	}, nil
}

// Get returns one listing with its donor's contact details.
func (s *ListingService) Get(ctx context.Context, id uuid.UUID) (*ListingView, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.withDonors(ctx, []models.FoodListing{*l}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create stores a new listing owned by donor and announces it.
func (s *ListingService) Create(ctx context.Context, donor uuid.UUID, patch ListingPatch) (*models.FoodListing, error) {
	l := &models.FoodListing{Donor: donor, Status: models.ListingAvailable}
	patch.Apply(l)
	l.Normalize()
	if err := validation.ValidateStruct(l); err != nil {
		return nil, err
	}

	if err := s.store.Listings().Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	observability.ListingsCreated.Inc()
	logging.Info().Str("listing_id", l.ID.String()).Str("donor_id", donor.String()).Msg("listing created")

	s.index(ctx, l)

	if s.notifier != nil {
		owner, err := s.store.Users().FindByID(ctx, donor)
		if err != nil {
			logging.Warn().Err(err).Str("listing_id", l.ID.String()).Str("donor_id", donor.String()).Msg("notify without donor details")
		}
		s.notifier.ListingCreated(l, owner)
	}
	return l, nil
}

// Update merges patch onto a listing owned by caller.
func (s *ListingService) Update(ctx context.Context, caller, id uuid.UUID, patch ListingPatch) (*models.FoodListing, error) {
	l, err := s.owned(ctx, caller, id, "update")
	if err != nil {
		return nil, err
	}

	patch.Apply(l)
	l.Normalize()
	if err := validation.ValidateStruct(l); err != nil {
		return nil, err
	}

	if err := s.store.Listings().Update(ctx, l); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("food listing")
		}
		return nil, fmt.Errorf("update listing: %w", err)
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)
	return updated, nil
}

// Delete removes a listing owned by caller.
func (s *ListingService) Delete(ctx context.Context, caller, id uuid.UUID) error {
	if _, err := s.owned(ctx, caller, id, "delete"); err != nil {
		return err
	}
	if err := s.store.Listings().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("food listing")
		}
		return fmt.Errorf("delete listing: %w", err)
	}
	s.unindex(ctx, id)
	logging.Info().Str("listing_id", id.String()).Msg("listing deleted")
	return nil
}

// Reserve marks an available listing as reserved by caller. Of several
// concurrent callers exactly one succeeds.
func (s *ListingService) Reserve(ctx context.Context, caller, id uuid.UUID) (*models.FoodListing, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Donor == caller {
		return nil, apperr.Forbidden("you cannot reserve your own listing")
	}

	reserved, err := reserve(ctx, s.store.Listings(), id, caller)
	if err != nil {
		return nil, err
	}
	observability.ListingsReserved.Inc()
	logging.Info().Str("listing_id", id.String()).Str("reserved_by", caller.String()).Msg("listing reserved")
	return reserved, nil
}

// reserve is the compare-and-swap shared by Reserve and donation creation.
func reserve(ctx context.Context, listings store.ListingRepository, id, caller uuid.UUID) (*models.FoodListing, error) {
	reserved, err := listings.Swap(ctx, store.ListingSwap{
		ID:            id,
		To:            models.ListingReserved,
		SetReservedBy: &caller,
	})
	switch {
	case err == nil:
		return reserved, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("food listing")
	case errors.Is(err, store.ErrConflict):
		observability.ReserveConflicts.Inc()
		status := models.ListingStatus("unknown")
		if reserved != nil {
			status = reserved.Status
		}
		return nil, apperr.Conflict("food listing is not available (status: %s)", status)
	default:
		return nil, fmt.Errorf("reserve listing: %w", err)
	}
}

// Nearby returns available listings within radiusKm of a point, nearest first.
func (s *ListingService) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]NearbyListing, error) {
	if lat < -90 || lat > 90 {
		return nil, validation.Errorf("lat", "lat must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return nil, validation.Errorf("lng", "lng must be between -180 and 180")
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if radiusKm > MaxRadiusKm {
		return nil, validation.Errorf("radius", "radius must be at most %d km", MaxRadiusKm)
	}
	if limit <= 0 {
		limit = query.DefaultLimit
	}
	limit = min(limit, query.MaxLimit)
	if s.geo == nil {
		return []NearbyListing{}, nil
	}

	// The index also holds reserved listings, so over-fetch before filtering.
	hits, err := s.geo.Nearby(ctx, lat, lng, radiusKm, limit*3)
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}
	if len(hits) == 0 {
		return []NearbyListing{}, nil
	}

	ids := make([]uuid.UUID, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.store.Listings().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load nearby listings: %w", err)
	}

	found := make([]models.FoodListing, 0, len(hits))
	distances := make([]float64, 0, len(hits))
	for _, h := range hits {
		l, ok := byID[h.ID]
		if !ok || l.Status != models.ListingAvailable {
			continue
		}
		found = append(found, *l)
		distances = append(distances, h.DistanceKm)
		if len(found) == limit {
			break
		}
	}

	views, err := s.withDonors(ctx, found, false)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyListing, len(views))
	for i, v := range views {
		out[i] = NearbyListing{ListingView: v, DistanceKm: distances[i]}
	}
	return out, nil
}

// ExpireStale marks listings past their expiry or availability window as
// expired and drops them from the geo index.
func (s *ListingService) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.store.Listings().ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire listings: %w", err)
	}
	for _, id := range ids {
		s.unindex(ctx, id)
	}
	observability.ListingsExpired.Add(float64(len(ids)))
	return len(ids), nil
}

// WarmGeoIndex loads the coordinates of every open listing into the geo index.
func (s *ListingService) WarmGeoIndex(ctx context.Context) (int, error) {
	open := query.Member{
		Field:  query.Listings.MustLookup("status"),
		Values: []any{string(models.ListingAvailable), string(models.ListingReserved)},
	}

	indexed := 0
	for page := 1; ; page++ {
		q := &query.Query{
			Page:  page,
			Limit: query.MaxLimit,
			Sort:  []query.SortKey{{Field: query.Listings.MustLookup("createdAt")}},
		}
		q.And(open)

		batch, _, err := s.store.Listings().Find(ctx, q)
		if err != nil {
			return indexed, fmt.Errorf("load listings page %d: %w", page, err)
		}
		for i := range batch {
			if batch[i].PickupAddress.Located() {
				s.index(ctx, &batch[i])
				indexed++
			}
		}
		if len(batch) < query.MaxLimit {
			return indexed, nil
		}
	}
}

func (s *ListingService) find(ctx context.Context, id uuid.UUID) (*models.FoodListing, error) {
	l, err := s.store.Listings().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("food listing")
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return l, nil
}

func (s *ListingService) owned(ctx context.Context, caller, id uuid.UUID, action string) (*models.FoodListing, error) {
	l, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Donor != caller {
		return nil, apperr.Forbidden("not authorized to %s this listing", action)
	}
	return l, nil
}

func (s *ListingService) withDonors(ctx context.Context, listings []models.FoodListing, detail bool) ([]ListingView, error) {
	ids := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.Donor)
	}
	donors, err := s.store.Users().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load donors: %w", err)
	}

	views := make([]ListingView, len(listings))
	for i := range listings {
		views[i] = ListingView{FoodListing: &listings[i], Donor: ref(donors, listings[i].Donor, detail)}
	}
	return views, nil
}

// index keeps the geo index in step with l. Failures only degrade nearby
// search, so they are logged.
func (s *ListingService) index(ctx context.Context, l *models.FoodListing) {
	if s.geo == nil {
		return
	}
	var err error
	open := l.Status == models.ListingAvailable || l.Status == models.ListingReserved
	if open && l.PickupAddress.Located() {
		err = s.geo.Upsert(ctx, l.ID, *l.PickupAddress.Coordinates.Lat, *l.PickupAddress.Coordinates.Lng)
	} else {
		err = s.geo.Remove(ctx, l.ID)
	}
	if err != nil {
		logging.Warn().Err(err).Str("listing_id", l.ID.String()).Msg("geo index update failed")
	}
}

func (s *ListingService) unindex(ctx context.Context, id uuid.UUID) {
	if s.geo == nil {
		return
	}
	if err := s.geo.Remove(ctx, id); err != nil {
		logging.Warn().Err(err).Str("listing_id", id.String()).Msg("geo index removal failed")
	}
}
