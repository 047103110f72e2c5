// Package sqlstore implements store.Store on GORM (postgres or sqlite).
package sqlstore

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/foodshare/internal/store"
)

// Store is a GORM-backed store.Store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps a connected, migrated GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() store.UserRepository         { return &userRepo{db: s.db} }
func (s *Store) Listings() store.ListingRepository   { return &listingRepo{db: s.db} }
func (s *Store) Donations() store.DonationRepository { return &donationRepo{db: s.db} }

// Transactional is always true for SQL databases.
func (s *Store) Transactional() bool { return true }

// WithinTx runs fn inside a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key value"):
		return store.ErrDuplicate
	default:
		return err
	}
}
