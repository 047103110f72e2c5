package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodshare/internal/lifecycle"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/query"
	"github.com/example/foodshare/internal/store"
)

type listingRepo struct {
	db *gorm.DB
}

func (r *listingRepo) Create(ctx context.Context, l *models.FoodListing) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}

func (r *listingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.FoodListing, error) {
	var listing models.FoodListing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &listing, nil
}

func (r *listingRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.FoodListing, error) {
	out := make(map[uuid.UUID]*models.FoodListing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var listings []models.FoodListing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, err
	}
	for i := range listings {
		out[listings[i].ID] = &listings[i]
	}
	return out, nil
}

func (r *listingRepo) Find(ctx context.Context, q *query.Query) ([]models.FoodListing, int64, error) {
	conds := Where(q.Filter)
	base := r.db.WithContext(ctx).Model(&models.FoodListing{})
	if len(conds) > 0 {
		base = base.Clauses(conds...)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.FoodListing
	err := base.Session(&gorm.Session{}).
		Order(OrderBy(q.Sort)).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&listings).Error
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// Update writes every column except ownership and lifecycle state, which
// change only through Swap.
func (r *listingRepo) Update(ctx context.Context, l *models.FoodListing) error {
	res := r.db.WithContext(ctx).
		Model(&models.FoodListing{BaseModel: models.BaseModel{ID: l.ID}}).
		Select("*").
		Omit("ID", "CreatedAt", "Donor", "Status", "ReservedBy", "ClaimedBy").
		Updates(l)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *listingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.FoodListing{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *listingRepo) Swap(ctx context.Context, s store.ListingSwap) (*models.FoodListing, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"status":     s.To,
		"updated_at": time.Now().UTC(),
	}
	if s.SetReservedBy != nil {
		updates["reserved_by_id"] = *s.SetReservedBy
	}
	if s.ClearReservedBy {
		updates["reserved_by_id"] = nil
	}
	if s.SetClaimedBy != nil {
		updates["claimed_by_id"] = *s.SetClaimedBy
	}

	tx := r.db.WithContext(ctx).Model(&models.FoodListing{}).
		Where("id = ? AND status IN ?", s.ID, s.Sources())
	if s.ReservedBy != nil {
		tx = tx.Where("reserved_by_id = ?", *s.ReservedBy)
	}

	res := tx.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}

	current, err := r.FindByID(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return current, store.ErrConflict
	}
	return current, nil
}

func (r *listingRepo) ExpireBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	live := lifecycle.ListingSources(models.ListingExpired)
	var ids []uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.FoodListing{}).
			Where("status IN ?", live).
			Where(tx.Where("expiry_date < ?", cutoff).Or("available_until < ?", cutoff)).
			Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return err
		}
		return tx.Model(&models.FoodListing{}).
			Where("id IN ? AND status IN ?", ids, live).
			Updates(map[string]interface{}{
				"status":     models.ListingExpired,
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Where renders filter nodes as GORM clause expressions.
func Where(nodes []query.Node) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(nodes))
	for _, n := range nodes {
		col := clause.Column{Name: n.Target().Column}
		switch n := n.(type) {
		case query.Equal:
			exprs = append(exprs, clause.Eq{Column: col, Value: n.Value})
		case query.Member:
			exprs = append(exprs, clause.IN{Column: col, Values: n.Values})
		case query.Compare:
			switch n.Op {
			case query.OpGt:
				exprs = append(exprs, clause.Gt{Column: col, Value: n.Value})
			case query.OpGte:
				exprs = append(exprs, clause.Gte{Column: col, Value: n.Value})
			case query.OpLt:
				exprs = append(exprs, clause.Lt{Column: col, Value: n.Value})
			case query.OpLte:
				exprs = append(exprs, clause.Lte{Column: col, Value: n.Value})
			}
		}
	}
	return exprs
}

// OrderBy renders sort keys as a GORM ORDER BY clause.
func OrderBy(keys []query.SortKey) clause.OrderBy {
	cols := make([]clause.OrderByColumn, 0, len(keys)+1)
	for _, k := range keys {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: k.Field.Column}, Desc: k.Desc})
	}
	// Stable pages when sort values tie.
	cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	return clause.OrderBy{Columns: cols}
}
