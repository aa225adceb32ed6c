package models

import (
	"time"

	"github.com/google/uuid"
)

type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

func (v Vote) Valid() bool { return v == VoteUp || v == VoteDown }

// Feedback is a user's up/down vote on a property, one per (user, property).
type Feedback struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_property_feedback" json:"user_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_property_feedback" json:"property_id"`
	Vote       Vote      `gorm:"size:4;not null" json:"vote"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Not persisted; filled when loading property details.
	NotesHTML string `gorm:"-" json:"notes_html,omitempty"`
	UserEmail string `gorm:"-" json:"user_email,omitempty"`
}

func (Feedback) TableName() string { return "user_feedback" }
