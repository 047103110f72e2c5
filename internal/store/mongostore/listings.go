package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/query"
	"github.com/example/foodshare/internal/store"
)

type listingRepo struct {
	coll *mongo.Collection
}

func (r *listingRepo) Create(ctx context.Context, l *models.FoodListing) error {
	l.Stamp(now())
	_, err := r.coll.InsertOne(ctx, l)
	return translate(err)
}

func (r *listingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.FoodListing, error) {
	var listing models.FoodListing
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&listing); err != nil {
		return nil, translate(err)
	}
	return &listing, nil
}

func (r *listingRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.FoodListing, error) {
	out := make(map[uuid.UUID]*models.FoodListing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	var listings []models.FoodListing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, err
	}
	for i := range listings {
		out[listings[i].ID] = &listings[i]
	}
	return out, nil
}

func (r *listingRepo) Find(ctx context.Context, q *query.Query) ([]models.FoodListing, int64, error) {
	filter := Filter(q.Filter)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetSort(Sort(q.Sort)).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit)))
	if err != nil {
		return nil, 0, err
	}
	listings := []models.FoodListing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *listingRepo) Update(ctx context.Context, l *models.FoodListing) error {
	l.UpdatedAt = now()
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: l.ID}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: l.Title},
		{Key: "description", Value: l.Description},
		{Key: "category", Value: l.Category},
		{Key: "quantity", Value: l.Quantity},
		{Key: "expiryDate", Value: l.ExpiryDate},
		{Key: "images", Value: l.Images},
		{Key: "pickupAddress", Value: l.PickupAddress},
		{Key: "availableFrom", Value: l.AvailableFrom},
		{Key: "availableUntil", Value: l.AvailableUntil},
		{Key: "specialInstructions", Value: l.SpecialInstructions},
		{Key: "allergens", Value: l.Allergens},
		{Key: "updatedAt", Value: l.UpdatedAt},
	}}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *listingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *listingRepo) Swap(ctx context.Context, s store.ListingSwap) (*models.FoodListing, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	filter := bson.D{
		{Key: "_id", Value: s.ID},
		{Key: "status", Value: bson.D{{Key: "$in", Value: s.Sources()}}},
	}
	if s.ReservedBy != nil {
		filter = append(filter, bson.E{Key: "reservedBy", Value: *s.ReservedBy})
	}

	set := bson.D{{Key: "status", Value: s.To}, {Key: "updatedAt", Value: now()}}
	if s.SetReservedBy != nil {
		set = append(set, bson.E{Key: "reservedBy", Value: *s.SetReservedBy})
	}
	if s.SetClaimedBy != nil {
		set = append(set, bson.E{Key: "claimedBy", Value: *s.SetClaimedBy})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if s.ClearReservedBy {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "reservedBy", Value: ""}}})
	}

	var listing models.FoodListing
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&listing)
	if err == nil {
		return &listing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, err := r.FindByID(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return current, store.ErrConflict
}

func (r *listingRepo) ExpireBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	live := bson.D{{Key: "$in", Value: lifecycle.ListingSources(models.ListingExpired)}}
	filter := bson.D{
		{Key: "status", Value: live},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "expiryDate", Value: bson.D{{Key: "$lt", Value: cutoff}}}},
			bson.D{{Key: "availableUntil", Value: bson.D{{Key: "$lt", Value: cutoff}}}},
		}},
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID uuid.UUID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	_, err = r.coll.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}, {Key: "status", Value: live}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: models.ListingExpired}, {Key: "updatedAt", Value: now()}}}})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
