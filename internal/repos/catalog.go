package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/logger"
	"shortlist/internal/models"
)

// CatalogRepo stores the per-user priorities and rating criteria.
type CatalogRepo interface {
	CreatePriority(ctx context.Context, tx *gorm.DB, priority *models.Priority) error
	ListPriorities(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.Priority, error)
	CountPriorities(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	DeletePriority(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error

	CreateCriterion(ctx context.Context, tx *gorm.DB, criterion *models.RatingCriterion) error
	GetCriterion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.RatingCriterion, error)
	ListCriteria(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.RatingCriterion, error)
	CountCriteria(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	DeleteCriterion(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return &catalogRepo{db: db, log: baseLog.With("repo", "CatalogRepo")}
}

func (r *catalogRepo) CreatePriority(ctx context.Context, tx *gorm.DB, priority *models.Priority) error {
	return pick(tx, r.db).WithContext(ctx).Create(priority).Error
}

func (r *catalogRepo) ListPriorities(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.Priority, error) {
	var results []*models.Priority
	if err := pick(tx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *catalogRepo) CountPriorities(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := pick(tx, r.db).WithContext(ctx).Model(&models.Priority{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *catalogRepo) DeletePriority(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
	res := pick(tx, r.db).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Priority{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *catalogRepo) CreateCriterion(ctx context.Context, tx *gorm.DB, criterion *models.RatingCriterion) error {
	return pick(tx, r.db).WithContext(ctx).Create(criterion).Error
}

func (r *catalogRepo) GetCriterion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.RatingCriterion, error) {
	var criterion models.RatingCriterion
	if err := pick(tx, r.db).WithContext(ctx).First(&criterion, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &criterion, nil
}

func (r *catalogRepo) ListCriteria(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*models.RatingCriterion, error) {
	var results []*models.RatingCriterion
	if err := pick(tx, r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *catalogRepo) CountCriteria(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := pick(tx, r.db).WithContext(ctx).Model(&models.RatingCriterion{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// DeleteCriterion removes an owned criterion and every score recorded against it.
func (r *catalogRepo) DeleteCriterion(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) error {
	run := func(t *gorm.DB) error {
		t = t.WithContext(ctx)
		res := t.Where("id = ? AND user_id = ?", id, userID).Delete(&models.RatingCriterion{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return t.Where("rating_id = ?", id).Delete(&models.PropertyRating{}).Error
	}
	if tx != nil {
		return run(tx)
	}
	return r.db.Transaction(run)
}
