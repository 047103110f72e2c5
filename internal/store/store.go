// Package store defines persistence for users, listings and donations.
// Implementations live in sqlstore (GORM) and mongostore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/query"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update does not apply.
	ErrConflict = errors.New("record changed concurrently")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the root persistence handle.
type Store interface {
	Users() UserRepository
	Listings() ListingRepository
	Donations() DonationRepository

	// WithinTx runs fn against a store whose writes commit or roll back
	// together. Without transaction support fn runs against the store itself.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Transactional reports whether WithinTx is atomic.
	Transactional() bool

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

// ListingRepository persists food listings.
type ListingRepository interface {
	Create(ctx context.Context, l *models.FoodListing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.FoodListing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.FoodListing, error)
	Find(ctx context.Context, q *query.Query) ([]models.FoodListing, int64, error)
	// Update overwrites the client-editable fields of l.
	Update(ctx context.Context, l *models.FoodListing) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Swap applies a conditional status change and returns the new record.
	Swap(ctx context.Context, s ListingSwap) (*models.FoodListing, error)
	// ExpireBefore marks available or reserved listings whose expiry or
	// availability window ended before cutoff as expired.
	ExpireBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// DonationRepository persists donations.
type DonationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	// ListForUser returns donations where user is donor or recipient, newest first.
	ListForUser(ctx context.Context, user uuid.UUID) ([]models.Donation, error)
	Swap(ctx context.Context, s DonationSwap) (*models.Donation, error)
	// Rate stores one side's rating if the donation is completed and that
	// side has not rated yet.
	Rate(ctx context.Context, id uuid.UUID, party models.Party, r models.Rating) (*models.Donation, error)
}

// ListingSwap is a compare-and-swap on a listing's status.
type ListingSwap struct {
	ID uuid.UUID
	// From defaults to every status the transition table allows into To.
	From []models.ListingStatus
	// ReservedBy, when set, also requires the current reserver to match.
	ReservedBy *uuid.UUID
	To         models.ListingStatus

	SetReservedBy   *uuid.UUID
	SetClaimedBy    *uuid.UUID
	ClearReservedBy bool
}

// Sources returns the statuses the swap applies from.
func (s ListingSwap) Sources() []models.ListingStatus {
	if len(s.From) > 0 {
		return s.From
	}
	return lifecycle.ListingSources(s.To)
}

// Check rejects a swap the listing transition table does not allow. A source
// equal to To re-asserts the current status and is always allowed.
func (s ListingSwap) Check() error {
	for _, from := range s.Sources() {
		if from == s.To {
			continue
		}
		if err := lifecycle.CanTransitionListing(from, s.To); err != nil {
			return err
		}
	}
	return nil
}

// DonationSwap is a compare-and-swap on a donation's status.
type DonationSwap struct {
	ID              uuid.UUID
	From            models.DonationStatus
	To              models.DonationStatus
	ActualPickup    *time.Time
	CompletionNotes *string
}
