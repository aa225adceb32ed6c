package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority is a named, weighted axis of importance owned by one user.
type Priority struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Weight    int       `gorm:"not null" json:"weight"` // 1-10
	CreatedAt time.Time `json:"created_at"`
}

func (Priority) TableName() string { return "user_priorities" }

type Category string

const (
	CategoryMustHave     Category = "must_have"
	CategoryNiceToHave   Category = "nice_to_have"
	CategoryWouldLike    Category = "would_like"
	CategoryNotImportant Category = "not_important"
)

var categoryPoints = map[Category]int{
	CategoryMustHave:     10,
	CategoryNiceToHave:   5,
	CategoryWouldLike:    2,
	CategoryNotImportant: 0,
}

// Points returns the fixed point value for c and whether c is known.
func (c Category) Points() (int, bool) {
	p, ok := categoryPoints[c]
	return p, ok
}

// RatingCriterion is a named, point-valued evaluation axis owned by one user.
type RatingCriterion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Category  Category  `gorm:"size:20;not null" json:"category"`
	Points    int       `gorm:"not null" json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

func (RatingCriterion) TableName() string { return "user_ratings" }
