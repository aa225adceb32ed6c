package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID gives a row a fresh uuid when the caller left it empty.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (p *Priority) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (r *RatingCriterion) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (r *PropertyRating) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}
