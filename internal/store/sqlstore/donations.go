package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/store"
)

var ratingColumns = map[models.Party][2]string{
	models.PartyDonor:     {"rating_by_donor_score", "rating_by_donor_comment"},
	models.PartyRecipient: {"rating_by_recipient_score", "rating_by_recipient_comment"},
}

type donationRepo struct {
	db *gorm.DB
}

func (r *donationRepo) Create(ctx context.Context, d *models.Donation) error {
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *donationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).First(&donation, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &donation, nil
}

func (r *donationRepo) ListForUser(ctx context.Context, user uuid.UUID) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.WithContext(ctx).
		Where("donor_id = ? OR recipient_id = ?", user, user).
		Order("created_at DESC").
		Find(&donations).Error
	return donations, err
}

func (r *donationRepo) Swap(ctx context.Context, s store.DonationSwap) (*models.Donation, error) {
	updates := map[string]interface{}{
		"status":     s.To,
		"updated_at": time.Now().UTC(),
	}
	if s.ActualPickup != nil {
		updates["actual_pickup"] = s.ActualPickup.UTC()
	}
	if s.CompletionNotes != nil {
		updates["completion_notes"] = *s.CompletionNotes
	}

	res := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND status = ?", s.ID, s.From).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.afterSwap(ctx, s.ID, res.RowsAffected)
}

func (r *donationRepo) Rate(ctx context.Context, id uuid.UUID, party models.Party, rating models.Rating) (*models.Donation, error) {
	cols, ok := ratingColumns[party]
	if !ok || !rating.Rated() {
		return nil, store.ErrConflict
	}

	res := r.db.WithContext(ctx).Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, models.DonationCompleted).
		Where(cols[0] + " IS NULL").
		Updates(map[string]interface{}{
			cols[0]:      *rating.Score,
			cols[1]:      rating.Comment,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.afterSwap(ctx, id, res.RowsAffected)
}

func (r *donationRepo) afterSwap(ctx context.Context, id uuid.UUID, affected int64) (*models.Donation, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return current, store.ErrConflict
	}
	return current, nil
}
