// Package testutil provides in-memory stores and seed helpers for tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"shortlist/internal/db"
	"shortlist/internal/logger"
	"shortlist/internal/models"
)

// DB opens a private in-memory sqlite database with every table migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

func SeedUser(tb testing.TB, gdb *gorm.DB, email string, role models.Role) *models.User {
	tb.Helper()
	u := &models.User{Email: email, Password: "x", Role: role}
	if err := gdb.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProperty(tb testing.TB, gdb *gorm.DB, addedBy uuid.UUID, features ...string) *models.Property {
	tb.Helper()
	p := &models.Property{AddedBy: addedBy, Location: "Somewhere"}
	p.SetFeatures(features)
	if err := gdb.Create(p).Error; err != nil {
		tb.Fatalf("seed property: %v", err)
	}
	return p
}

func SeedPriority(tb testing.TB, gdb *gorm.DB, userID uuid.UUID, name string, weight int) *models.Priority {
	tb.Helper()
	p := &models.Priority{UserID: userID, Name: name, Weight: weight}
	if err := gdb.Create(p).Error; err != nil {
		tb.Fatalf("seed priority: %v", err)
	}
	return p
}

func SeedCriterion(tb testing.TB, gdb *gorm.DB, userID uuid.UUID, name string, category models.Category) *models.RatingCriterion {
	tb.Helper()
	points, _ := category.Points()
	c := &models.RatingCriterion{UserID: userID, Name: name, Category: category, Points: points}
	if err := gdb.Create(c).Error; err != nil {
		tb.Fatalf("seed criterion: %v", err)
	}
	return c
}

func SeedRating(tb testing.TB, gdb *gorm.DB, userID, propertyID, ratingID uuid.UUID, score float64) *models.PropertyRating {
	tb.Helper()
	r := &models.PropertyRating{UserID: userID, PropertyID: propertyID, RatingID: ratingID, Score: score}
	if err := gdb.Create(r).Error; err != nil {
		tb.Fatalf("seed rating: %v", err)
	}
	return r
}

func SeedVote(tb testing.TB, gdb *gorm.DB, userID, propertyID uuid.UUID, vote models.Vote) *models.Feedback {
	tb.Helper()
	f := &models.Feedback{UserID: userID, PropertyID: propertyID, Vote: vote}
	if err := gdb.Create(f).Error; err != nil {
		tb.Fatalf("seed vote: %v", err)
	}
	return f
}
