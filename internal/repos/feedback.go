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

type FeedbackRepo interface {
	// Upsert writes one row per (user_id, property_id); re-voting replaces
	// the vote and notes.
	Upsert(ctx context.Context, tx *gorm.DB, fb *models.Feedback) error
	ListByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.Feedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Upsert(ctx context.Context, tx *gorm.DB, fb *models.Feedback) error {
	fb.UpdatedAt = time.Now()
	return pick(tx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "property_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote", "notes", "updated_at"}),
		}).
		Create(fb).Error
}

func (r *feedbackRepo) ListByProperty(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) ([]*models.Feedback, error) {
	var results []*models.Feedback
	if err := pick(tx, r.db).WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
