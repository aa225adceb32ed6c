package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"shortlist/internal/logger"
	"shortlist/internal/models"
)

// Open connects to the database named by databaseURL.
// "postgres://" URLs use the postgres driver, "sqlite://<path>" the pure-Go sqlite driver.
func Open(databaseURL string, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
		log.Info("Connecting to PostgreSQL database...")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Info("Connecting to SQLite database", "path", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL prefix: must start with postgres:// or sqlite://")
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("Database connection established")
	return gdb, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Priority{},
		&models.RatingCriterion{},
		&models.PropertyRating{},
		&models.Feedback{},
		&models.PropertyScore{},
	)
}
