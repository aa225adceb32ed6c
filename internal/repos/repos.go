package repos

import (
	"gorm.io/gorm"

	"shortlist/internal/logger"
)

// Repos is the explicitly passed store-client handle. Every table the
// service touches is reached through one of these.
type Repos struct {
	Users      UserRepo
	Properties PropertyRepo
	Catalog    CatalogRepo
	Ratings    RatingRepo
	Feedback   FeedbackRepo
	Scores     ScoreRepo
}

func New(db *gorm.DB, log *logger.Logger) *Repos {
	return &Repos{
		Users:      NewUserRepo(db, log),
		Properties: NewPropertyRepo(db, log),
		Catalog:    NewCatalogRepo(db, log),
		Ratings:    NewRatingRepo(db, log),
		Feedback:   NewFeedbackRepo(db, log),
		Scores:     NewScoreRepo(db, log),
	}
}

func pick(tx, db *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
