package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shortlist/internal/logger"
	"shortlist/internal/models"
)

type RatingRepo interface {
	// Upsert writes rows keyed on (user_id, property_id, rating_id); an
	// existing row gets its score overwritten.
	Upsert(ctx context.Context, tx *gorm.DB, rows []*models.PropertyRating) error
	ListPrimaryByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.PropertyRating, error)
	ListByUserAndProperty(ctx context.Context, tx *gorm.DB, userID, propertyID uuid.UUID) ([]*models.PropertyRating, error)
	ListByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.PropertyRating, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (r *ratingRepo) Upsert(ctx context.Context, tx *gorm.DB, rows []*models.PropertyRating) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for _, row := range rows {
		row.UpdatedAt = now
	}
	return pick(tx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "property_id"}, {Name: "rating_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).
		Create(&rows).Error
}

// ListPrimaryByProperty returns the property's scores given by users whose
// role is currently primary.
func (r *ratingRepo) ListPrimaryByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.PropertyRating, error) {
	db := pick(tx, r.db).WithContext(ctx)
	primaryIDs := db.Model(&models.User{}).Select("id").Where("role = ?", models.RolePrimary)

	var results []*models.PropertyRating
	if err := db.
		Where("property_id = ? AND user_id IN (?)", propertyID, primaryIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ratingRepo) ListByUserAndProperty(ctx context.Context, tx *gorm.DB, userID, propertyID uuid.UUID) ([]*models.PropertyRating, error) {
	var results []*models.PropertyRating
	if err := pick(tx, r.db).WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ratingRepo) ListByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.PropertyRating, error) {
	var results []*models.PropertyRating
	if err := pick(tx, r.db).WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("user_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
