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

type ScoreRepo interface {
	// Upsert replaces the property's single combined score row.
	Upsert(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID, combined float64) error
	Get(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) (*models.PropertyScore, error)
	GetMany(ctx context.Context, tx *gorm.DB, propertyIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}

type scoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreRepo(db *gorm.DB, baseLog *logger.Logger) ScoreRepo {
	return &scoreRepo{db: db, log: baseLog.With("repo", "ScoreRepo")}
}

func (r *scoreRepo) Upsert(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID, combined float64) error {
	row := &models.PropertyScore{
		PropertyID:    propertyID,
		CombinedScore: combined,
		UpdatedAt:     time.Now(),
	}
	return pick(tx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "property_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"combined_score", "updated_at"}),
		}).
		Create(row).Error
}

func (r *scoreRepo) Get(ctx context.Context, tx *gorm.DB, propertyID uuid.UUID) (*models.PropertyScore, error) {
	var row models.PropertyScore
	if err := pick(tx, r.db).WithContext(ctx).First(&row, "property_id = ?", propertyID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *scoreRepo) GetMany(ctx context.Context, tx *gorm.DB, propertyIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	out := make(map[uuid.UUID]float64, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return out, nil
	}
	var rows []models.PropertyScore
	if err := pick(tx, r.db).WithContext(ctx).Where("property_id IN ?", propertyIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PropertyID] = row.CombinedScore
	}
	return out, nil
}
