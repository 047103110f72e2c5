package mongostore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
)

var ratingPaths = map[models.Party]string{
	models.PartyDonor:     "rating.byDonor",
	models.PartyRecipient: "rating.byRecipient",
}

type donationRepo struct {
	coll *mongo.Collection
}

func (r *donationRepo) Create(ctx context.Context, d *models.Donation) error {
	d.Stamp(now())
	_, err := r.coll.InsertOne(ctx, d)
	return translate(err)
}

func (r *donationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&donation); err != nil {
		return nil, translate(err)
	}
	return &donation, nil
}

func (r *donationRepo) ListForUser(ctx context.Context, user uuid.UUID) ([]models.Donation, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "donor", Value: user}},
		bson.D{{Key: "recipient", Value: user}},
	}}}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	donations := []models.Donation{}
	if err := cur.All(ctx, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

func (r *donationRepo) Swap(ctx context.Context, s store.DonationSwap) (*models.Donation, error) {
	set := bson.D{{Key: "status", Value: s.To}, {Key: "updatedAt", Value: now()}}
	if s.ActualPickup != nil {
		set = append(set, bson.E{Key: "actualPickup", Value: s.ActualPickup.UTC()})
	}
	if s.CompletionNotes != nil {
		set = append(set, bson.E{Key: "completionNotes", Value: *s.CompletionNotes})
	}
	filter := bson.D{{Key: "_id", Value: s.ID}, {Key: "status", Value: s.From}}
	return r.swap(ctx, s.ID, filter, bson.D{{Key: "$set", Value: set}})
}

func (r *donationRepo) Rate(ctx context.Context, id uuid.UUID, party models.Party, rating models.Rating) (*models.Donation, error) {
	path, ok := ratingPaths[party]
	if !ok || !rating.Rated() {
		return nil, store.ErrConflict
	}
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: models.DonationCompleted},
		{Key: path + ".rating", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: path, Value: rating},
		{Key: "updatedAt", Value: now()},
	}}}
	return r.swap(ctx, id, filter, update)
}

func (r *donationRepo) swap(ctx context.Context, id uuid.UUID, filter, update bson.D) (*models.Donation, error) {
	var donation models.Donation
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&donation)
	if err == nil {
		return &donation, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, store.ErrConflict
}
