// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/store"
)

const (
	usersCollection     = "users"
	listingsCollection  = "food_listings"
	donationsCollection = "donations"
)

// Store is a MongoDB-backed store.Store.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

var _ store.Store = (*Store)(nil)

// Options configure Connect.
type Options struct {
	URI      string
	Database string
	// Transactions enables multi-document transactions; requires a replica set.
	Transactions bool
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetRegistry(Registry()))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	s := &Store{client: client, db: client.Database(opts.Database), transactions: opts.Transactions}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}

	logging.Info().Str("database", opts.Database).Bool("transactions", opts.Transactions).Msg("mongo connected")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "donor", Value: 1}}},
			{Keys: bson.D{{Key: "expiryDate", Value: 1}}},
		},
		donationsCollection: {
			{Keys: bson.D{{Key: "donor", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Users() store.UserRepository {
	return &userRepo{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Listings() store.ListingRepository {
	return &listingRepo{coll: s.db.Collection(listingsCollection)}
}

func (s *Store) Donations() store.DonationRepository {
	return &donationRepo{coll: s.db.Collection(donationsCollection)}
}

// Transactional reports whether multi-document transactions are enabled.
func (s *Store) Transactional() bool { return s.transactions }

// WithinTx runs fn in a session transaction when enabled. Otherwise fn runs
// directly and callers must compensate on failure.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if !s.transactions {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
