package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"shortlist/internal/logger"
	"shortlist/internal/models"
)

const (
	SortByScore  = "score"
	SortByPrice  = "price"
	SortByNewest = "newest"
)

// PropertyFilter narrows a property listing. Nil fields are ignored.
type PropertyFilter struct {
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	Location     string
	Reduced      *bool
	Views        *bool
	Gardens      *bool
	Outbuildings *bool
	Sort         string
	Limit        int
	Offset       int
}

type PropertyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, property *models.Property) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Property, error)
	List(ctx context.Context, tx *gorm.DB, filter PropertyFilter) ([]*models.Property, error)
	// SwapFeatures writes next only if the stored list still equals prev.
	// It reports false when another writer got there first.
	SwapFeatures(ctx context.Context, tx *gorm.DB, id uuid.UUID, prev, next datatypes.JSON) (bool, error)
	UpdateImage(ctx context.Context, tx *gorm.DB, id uuid.UUID, imageURL string) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type propertyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPropertyRepo(db *gorm.DB, baseLog *logger.Logger) PropertyRepo {
	return &propertyRepo{db: db, log: baseLog.With("repo", "PropertyRepo")}
}

func (r *propertyRepo) Create(ctx context.Context, tx *gorm.DB, property *models.Property) error {
	if len(property.Features) == 0 {
		property.SetFeatures(nil)
	}
	return pick(tx, r.db).WithContext(ctx).Create(property).Error
}

func (r *propertyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := pick(tx, r.db).WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepo) List(ctx context.Context, tx *gorm.DB, filter PropertyFilter) ([]*models.Property, error) {
	q := pick(tx, r.db).WithContext(ctx).Model(&models.Property{}).Select("properties.*")

	if filter.MinPrice != nil {
		q = q.Where("properties.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("properties.price <= ?", *filter.MaxPrice)
	}
	if filter.MinBedrooms != nil {
		q = q.Where("properties.bedrooms >= ?", *filter.MinBedrooms)
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		q = q.Where("LOWER(properties.location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if filter.Reduced != nil {
		q = q.Where("properties.reduced = ?", *filter.Reduced)
	}
	if filter.Views != nil {
		q = q.Where("properties.views = ?", *filter.Views)
	}
	if filter.Gardens != nil {
		q = q.Where("properties.gardens = ?", *filter.Gardens)
	}
	if filter.Outbuildings != nil {
		q = q.Where("properties.outbuildings = ?", *filter.Outbuildings)
	}

	switch filter.Sort {
	case SortByPrice:
		q = q.Order("properties.price ASC").Order("properties.created_at DESC")
	case SortByNewest:
		q = q.Order("properties.created_at DESC")
	default:
		// Unscored properties sort after every scored one.
		q = q.Joins("LEFT JOIN property_scores ON property_scores.property_id = properties.id").
			Order("CASE WHEN property_scores.combined_score IS NULL THEN 1 ELSE 0 END").
			Order("property_scores.combined_score DESC").
			Order("properties.created_at DESC")
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var results []*models.Property
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *propertyRepo) SwapFeatures(ctx context.Context, tx *gorm.DB, id uuid.UUID, prev, next datatypes.JSON) (bool, error) {
	q := pick(tx, r.db).WithContext(ctx).Model(&models.Property{}).Where("id = ?", id)
	if len(prev) == 0 {
		q = q.Where("features IS NULL")
	} else {
		q = q.Where("features = ?", prev)
	}
	res := q.Update("features", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *propertyRepo) UpdateImage(ctx context.Context, tx *gorm.DB, id uuid.UUID, imageURL string) error {
	return r.updateColumn(ctx, tx, id, "image_url", imageURL)
}

func (r *propertyRepo) updateColumn(ctx context.Context, tx *gorm.DB, id uuid.UUID, column string, value interface{}) error {
	res := pick(tx, r.db).WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the property together with its ratings, feedback and score.
func (r *propertyRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	run := func(t *gorm.DB) error {
		t = t.WithContext(ctx)
		if err := t.Where("property_id = ?", id).Delete(&models.PropertyRating{}).Error; err != nil {
			return err
		}
		if err := t.Where("property_id = ?", id).Delete(&models.Feedback{}).Error; err != nil {
			return err
		}
		if err := t.Where("property_id = ?", id).Delete(&models.PropertyScore{}).Error; err != nil {
			return err
		}
		res := t.Where("id = ?", id).Delete(&models.Property{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}
	if tx != nil {
		return run(tx)
	}
	return r.db.Transaction(run)
}
