package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyRating is one user's score for one property against one criterion.
type PropertyRating struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_property_rating" json:"user_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_property_rating" json:"property_id"`
	RatingID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_property_rating" json:"rating_id"`
	Score      float64   `gorm:"not null;default:0" json:"score"` // 0-100
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PropertyRating) TableName() string { return "user_property_ratings" }

// PropertyScore is the derived combined score, one row per property.
type PropertyScore struct {
	PropertyID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"property_id"`
	CombinedScore float64   `gorm:"not null;default:0" json:"combined_score"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (PropertyScore) TableName() string { return "property_scores" }
