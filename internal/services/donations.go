package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/geo"
	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/observability"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/validation"
)

// DonationService implements the donation workflow.
type DonationService struct {
	store store.Store
	geo   geo.Index
	now   func() time.Time
}

// NewDonationService creates a DonationService. idx may be nil.
func NewDonationService(s store.Store, idx geo.Index) *DonationService {
	return &DonationService{store: s, geo: idx, now: time.Now}
}

// ListMine returns the donations caller takes part in, newest first, with
// the listing and both parties joined.
func (s *DonationService) ListMine(ctx context.Context, caller uuid.UUID) ([]DonationView, error) {
	donations, err := s.store.Donations().ListForUser(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	if len(donations) == 0 {
		return []DonationView{}, nil
	}

	listingIDs := make([]uuid.UUID, 0, len(donations))
	userIDs := make([]uuid.UUID, 0, 2*len(donations))
	for _, d := range donations {
		listingIDs = append(listingIDs, d.FoodListing)
		userIDs = append(userIDs, d.Donor, d.Recipient)
	}

	listings, err := s.store.Listings().FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("load donation listings: %w", err)
	}
	users, err := s.store.Users().FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load donation parties: %w", err)
	}

	views := make([]DonationView, len(donations))
	for i := range donations {
		d := &donations[i]
		var listing any = d.FoodListing
		if l, ok := listings[d.FoodListing]; ok {
			listing = l
		}
		views[i] = DonationView{
			Donation:    d,
			FoodListing: listing,
			Donor:       ref(users, d.Donor, false),
			Recipient:   ref(users, d.Recipient, false),
		}
	}
	return views, nil
}

// Create reserves the listing for caller, or confirms caller's existing
// reservation, and records the donation. Both steps commit together; on a
// store without transactions a reservation made here is released again if
// the donation cannot be written.
func (s *DonationService) Create(ctx context.Context, caller uuid.UUID, in DonationInput) (*models.Donation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *models.Donation
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		l, err := tx.Listings().FindByID(ctx, in.FoodListing)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("food listing")
		}
		if err != nil {
			return fmt.Errorf("find listing: %w", err)
		}
		if l.Donor == caller {
			return apperr.Forbidden("you cannot request your own listing")
		}

		reservedHere := false
		if l.ReservedFor(caller) {
			if _, err := confirm(ctx, tx.Listings(), l.ID, caller); err != nil {
				return err
			}
		} else {
			if _, err := reserve(ctx, tx.Listings(), l.ID, caller); err != nil {
				return err
			}
			reservedHere = true
		}

		d := &models.Donation{
			FoodListing:     l.ID,
			Donor:           l.Donor,
			Recipient:       caller,
			Status:          models.DonationReserved,
			ScheduledPickup: in.ScheduledPickup.Time,
		}
		d.Normalize()
		if err := validation.ValidateStruct(d); err != nil {
			return err
		}

		if err := tx.Donations().Create(ctx, d); err != nil {
			if reservedHere && !s.store.Transactional() {
				s.release(ctx, tx.Listings(), l.ID, caller)
			}
			return fmt.Errorf("create donation: %w", err)
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.DonationTransitions.WithLabelValues(string(models.DonationReserved)).Inc()
	logging.Info().Str("donation_id", created.ID.String()).Str("listing_id", created.FoodListing.String()).
		Str("recipient_id", caller.String()).Msg("donation created")
	return created, nil
}

// UpdateStatus moves a donation along its lifecycle on behalf of one of its
// parties and carries the listing along: picked-up claims it, cancelled
// releases it.
func (s *DonationService) UpdateStatus(ctx context.Context, caller, id uuid.UUID, in StatusInput) (*models.Donation, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	party, ok := d.PartyOf(caller)
	if !ok {
		return nil, apperr.Forbidden("not authorized to update this donation")
	}
	if in.Status == "" {
		return nil, validation.Errorf("status", "status is required")
	}
	if err := lifecycle.CanTransitionDonation(d.Status, in.Status, party); err != nil {
		return nil, err
	}

	swap := store.DonationSwap{ID: id, From: d.Status, To: in.Status, CompletionNotes: in.CompletionNotes}
	if in.Status == models.DonationPickedUp {
		at := s.now().UTC()
		if in.ActualPickup != nil && !in.ActualPickup.IsZero() {
			at = in.ActualPickup.Time.UTC()
		}
		swap.ActualPickup = &at
	}
	if in.CompletionNotes != nil && len(*in.CompletionNotes) > 1000 {
		return nil, validation.Errorf("completionNotes", "completionNotes must be at most 1000 characters")
	}

	var updated *models.Donation
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		next, err := tx.Donations().Swap(ctx, swap)
		if err != nil {
			return s.swapError(err, next)
		}

		switch in.Status {
		case models.DonationPickedUp:
			if err := s.claim(ctx, tx.Listings(), d); err != nil {
				if !s.store.Transactional() {
					s.revert(ctx, tx.Donations(), swap)
				}
				return err
			}
		case models.DonationCancelled:
			s.release(ctx, tx.Listings(), d.FoodListing, d.Recipient)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Status == models.DonationPickedUp && s.geo != nil {
		if err := s.geo.Remove(ctx, d.FoodListing); err != nil {
			logging.Warn().Err(err).Str("listing_id", d.FoodListing.String()).Msg("geo index removal failed")
		}
	}

	observability.DonationTransitions.WithLabelValues(string(in.Status)).Inc()
	logging.Info().Str("donation_id", id.String()).Str("from", string(d.Status)).Str("to", string(in.Status)).
		Str("actor", string(party)).Msg("donation status changed")
	return updated, nil
}

// Rate records caller's rating of a completed donation. Each side rates once.
func (s *DonationService) Rate(ctx context.Context, caller, id uuid.UUID, in RateInput) (*models.Donation, error) {
	d, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	party, ok := d.PartyOf(caller)
	if !ok {
		return nil, apperr.Forbidden("not authorized to rate this donation")
	}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	if d.Status != models.DonationCompleted {
		return nil, apperr.Conflict("donation must be completed before it can be rated")
	}

	score := in.Rating
	rated, err := s.store.Donations().Rate(ctx, id, party, models.Rating{Score: &score, Comment: in.Comment})
	switch {
	case err == nil:
		return rated, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("donation")
	case errors.Is(err, store.ErrConflict):
		if rated != nil && rated.Status != models.DonationCompleted {
			return nil, apperr.Conflict("donation must be completed before it can be rated")
		}
		return nil, apperr.Conflict("donation already rated by the %s", party)
	default:
		return nil, fmt.Errorf("rate donation: %w", err)
	}
}

func (s *DonationService) find(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	d, err := s.store.Donations().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("donation")
	}
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return d, nil
}

func (s *DonationService) swapError(err error, current *models.Donation) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("donation")
	case errors.Is(err, store.ErrConflict):
		status := models.DonationStatus("unknown")
		if current != nil {
			status = current.Status
		}
		return apperr.Conflict("donation changed concurrently (status: %s)", status)
	default:
		return fmt.Errorf("update donation: %w", err)
	}
}

func (s *DonationService) claim(ctx context.Context, listings store.ListingRepository, d *models.Donation) error {
	recipient := d.Recipient
	_, err := listings.Swap(ctx, store.ListingSwap{
		ID:           d.FoodListing,
		ReservedBy:   &recipient,
		To:           models.ListingClaimed,
		SetClaimedBy: &recipient,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("food listing")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("food listing is no longer reserved for this donation")
	default:
		return fmt.Errorf("claim listing: %w", err)
	}
}

// release returns a listing reserved by recipient to available. A listing
// that has since expired, been deleted or moved on is left alone.
func (s *DonationService) release(ctx context.Context, listings store.ListingRepository, id, recipient uuid.UUID) {
	_, err := listings.Swap(ctx, store.ListingSwap{
		ID:              id,
		ReservedBy:      &recipient,
		To:              models.ListingAvailable,
		ClearReservedBy: true,
	})
	if err != nil && !errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrNotFound) {
		logging.Error().Err(err).Str("listing_id", id.String()).Msg("release listing failed")
	}
}

// revert undoes a donation swap when its listing step failed on a store
// without transactions.
func (s *DonationService) revert(ctx context.Context, donations store.DonationRepository, applied store.DonationSwap) {
	_, err := donations.Swap(ctx, store.DonationSwap{ID: applied.ID, From: applied.To, To: applied.From})
	if err != nil {
		logging.Error().Err(err).Str("donation_id", applied.ID.String()).Msg("revert donation status failed")
	}
}

// confirm checks, atomically, that the listing is still reserved by caller.
func confirm(ctx context.Context, listings store.ListingRepository, id, caller uuid.UUID) (*models.FoodListing, error) {
	l, err := listings.Swap(ctx, store.ListingSwap{
		ID:         id,
		From:       []models.ListingStatus{models.ListingReserved},
		ReservedBy: &caller,
		To:         models.ListingReserved,
	})
	switch {
	case err == nil:
		return l, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("food listing")
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Conflict("food listing is no longer reserved for you")
	default:
		return nil, fmt.Errorf("confirm reservation: %w", err)
	}
}
